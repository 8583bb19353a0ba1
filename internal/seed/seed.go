package seed

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appModels "github.com/okaya/courseregistry/internal/app/models"
	appRepos "github.com/okaya/courseregistry/internal/app/repositories"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
	"github.com/okaya/courseregistry/internal/pkg/auth"
)

// CreateDemoData seeds a demo instructor, a catalog course and two sections
// so a fresh install has something to enroll into. Existing rows are left
// alone, so reruns are safe.
func CreateDemoData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	userRepo := appRepos.NewUserRepository(dbPool)
	courseRepo := appRepos.NewCourseRepository(dbPool)
	sectionRepo := appRepos.NewSectionRepository(dbPool)

	lgr.Info().Msg("Checking/creating demo data...")
	var finalErr error

	// --- Demo instructor ---
	instructorID := int64(0)
	hashed, err := auth.HashPassword("instructor123")
	if err != nil {
		return err
	}
	instructor := &appModels.User{
		Email:     "instructor@demo.edu",
		Password:  hashed,
		FirstName: "Grace",
		LastName:  "Hopper",
		RoleType:  appModels.RoleInstructor,
	}
	err = userRepo.Create(ctx, instructor)
	switch {
	case err == nil:
		instructorID = instructor.ID
	case errors.Is(err, apperrors.ErrEmailAlreadyExists):
		existing, errGet := userRepo.GetByEmail(ctx, instructor.Email)
		if errGet != nil {
			finalErr = errors.Join(finalErr, errGet)
		} else {
			instructorID = existing.ID
		}
	default:
		lgr.Error().Err(err).Msg("Error creating demo instructor")
		finalErr = errors.Join(finalErr, err)
	}

	// --- Demo course ---
	courseID := int64(0)
	description := "Fundamentals of programming and computational thinking."
	course := &appModels.Course{
		Code:        "CS101",
		Title:       "Introduction to Computer Science",
		Description: &description,
		Credits:     3,
	}
	err = courseRepo.Create(ctx, course)
	switch {
	case err == nil:
		courseID = course.ID
	case errors.Is(err, apperrors.ErrCourseAlreadyExists):
		courses, errGet := courseRepo.GetAll(ctx)
		if errGet != nil {
			finalErr = errors.Join(finalErr, errGet)
		} else {
			for _, c := range courses {
				if c.Code == "CS101" {
					courseID = c.ID
					break
				}
			}
		}
	default:
		lgr.Error().Err(err).Msg("Error creating demo course")
		finalErr = errors.Join(finalErr, err)
	}

	// --- Demo sections ---
	if courseID > 0 && instructorID > 0 {
		existing, errGet := sectionRepo.GetAll(ctx, courseID)
		if errGet != nil {
			finalErr = errors.Join(finalErr, errGet)
		} else if len(existing) == 0 {
			sections := []*appModels.Section{
				{
					CourseID:     courseID,
					InstructorID: &instructorID,
					Semester:     "Fall 2026",
					Capacity:     30,
					RoomNumber:   "B-204",
					Schedule:     "Mon/Wed 10:00-11:30",
				},
				{
					CourseID:     courseID,
					InstructorID: &instructorID,
					Semester:     "Fall 2026",
					Capacity:     2,
					RoomNumber:   "B-108",
					Schedule:     "Tue/Thu 14:00-15:30",
				},
			}
			for _, section := range sections {
				if err := sectionRepo.Create(ctx, section); err != nil {
					lgr.Error().Err(err).Msg("Error creating demo section")
					finalErr = errors.Join(finalErr, err)
				}
			}
		}
	}

	if finalErr == nil {
		lgr.Info().Msg("Demo data ready")
	}
	return finalErr
}
