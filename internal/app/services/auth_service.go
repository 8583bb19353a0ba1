package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/app/models/dto"
	"github.com/okaya/courseregistry/internal/app/repositories"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
	"github.com/okaya/courseregistry/internal/pkg/auth"
	"github.com/okaya/courseregistry/internal/pkg/logger"
)

// AuthService handles registration, login and refresh-token rotation.
type AuthService struct {
	users  *repositories.UserRepository
	tokens *repositories.TokenRepository
	jwt    *auth.JWTService
	log    zerolog.Logger
}

func NewAuthService(users *repositories.UserRepository, tokens *repositories.TokenRepository, jwtService *auth.JWTService) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		jwt:    jwtService,
		log:    logger.With().Str("service", "auth").Logger(),
	}
}

// Register creates a new account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     req.Email,
		Password:  hashed,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleType:  models.RoleType(req.RoleType),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", user.ID).Str("role", string(user.RoleType)).Msg("User registered")
	return user, nil
}

// Login verifies credentials and issues a token pair. A wrong email and a
// wrong password report the same error.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// RefreshToken rotates a valid refresh token into a fresh token pair. The
// presented token is invalidated even though a replacement is stored under
// the same user, because Save overwrites the user's row.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	userID, err := s.tokens.Lookup(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperrors.ErrTokenNotFound) {
			return nil, apperrors.ErrTokenInvalid
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, user)
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	access, refresh, expiresIn, refreshExpiresIn, err := s.jwt.GenerateTokenPair(user)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Save(ctx, user.ID, refresh, s.jwt.RefreshTokenExpiry()); err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        expiresIn,
		RefreshExpiresIn: refreshExpiresIn,
	}, nil
}
