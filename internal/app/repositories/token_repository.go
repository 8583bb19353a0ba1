package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
)

// TokenRepository stores refresh tokens so that access tokens can be rotated
// without a new login.
type TokenRepository struct {
	db Querier
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db Querier) *TokenRepository {
	return &TokenRepository{
		db: db,
	}
}

// Save persists a refresh token for a user, replacing any previous one.
func (r *TokenRepository) Save(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET token = $2, expires_at = $3
	`

	if _, err := r.db.Exec(ctx, query, userID, token, expiresAt); err != nil {
		return fmt.Errorf("error saving refresh token: %w", err)
	}
	return nil
}

// Lookup resolves a refresh token to its owning user. Expired tokens are
// treated as missing.
func (r *TokenRepository) Lookup(ctx context.Context, token string) (int64, error) {
	query := `
		SELECT user_id
		FROM refresh_tokens
		WHERE token = $1 AND expires_at > NOW()
	`

	var userID int64
	err := r.db.QueryRow(ctx, query, token).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrTokenNotFound
		}
		return 0, fmt.Errorf("error looking up refresh token: %w", err)
	}
	return userID, nil
}

// Delete removes a refresh token.
func (r *TokenRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}
