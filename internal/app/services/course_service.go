package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/app/models/dto"
	"github.com/okaya/courseregistry/internal/app/repositories"
	"github.com/okaya/courseregistry/internal/pkg/logger"
)

// CourseService manages the course catalog.
type CourseService struct {
	courses *repositories.CourseRepository
	log     zerolog.Logger
}

func NewCourseService(courses *repositories.CourseRepository) *CourseService {
	return &CourseService{
		courses: courses,
		log:     logger.With().Str("service", "course").Logger(),
	}
}

// Create adds a catalog course. Codes are normalized to upper case so
// "cs101" and "CS101" hit the same unique constraint.
func (s *CourseService) Create(ctx context.Context, req dto.CreateCourseRequest) (*models.Course, error) {
	course := &models.Course{
		Code:        strings.ToUpper(strings.TrimSpace(req.Code)),
		Title:       req.Title,
		Description: req.Description,
		Credits:     req.Credits,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, err
	}

	s.log.Info().Int64("course_id", course.ID).Str("code", course.Code).Msg("Course created")
	return course, nil
}

// GetByID returns a single catalog course.
func (s *CourseService) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	return s.courses.GetByID(ctx, id)
}

// GetAll lists the catalog.
func (s *CourseService) GetAll(ctx context.Context) ([]*models.Course, error) {
	return s.courses.GetAll(ctx)
}
