package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
)

// SectionRepository handles database operations for sections
type SectionRepository struct {
	db Querier
}

// NewSectionRepository creates a new section repository
func NewSectionRepository(db Querier) *SectionRepository {
	return &SectionRepository{
		db: db,
	}
}

// WithTx returns a repository bound to the given transaction.
func (r *SectionRepository) WithTx(tx pgx.Tx) *SectionRepository {
	return &SectionRepository{db: tx}
}

const sectionColumns = `s.id, s.course_id, s.instructor_id, s.semester, s.capacity, s.room_number, s.schedule`

func scanSection(row pgx.Row) (*models.Section, error) {
	var section models.Section
	err := row.Scan(
		&section.ID,
		&section.CourseID,
		&section.InstructorID,
		&section.Semester,
		&section.Capacity,
		&section.RoomNumber,
		&section.Schedule,
	)
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// Create inserts a new section
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	query := `
		INSERT INTO sections (course_id, instructor_id, semester, capacity, room_number, schedule)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		section.CourseID, section.InstructorID, section.Semester,
		section.Capacity, section.RoomNumber, section.Schedule,
	).Scan(&section.ID)
	if err != nil {
		return fmt.Errorf("error creating section: %w", err)
	}

	return nil
}

// Update edits the mutable section fields
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	query := `
		UPDATE sections
		SET semester = $1, capacity = $2, room_number = $3, schedule = $4
		WHERE id = $5
	`

	cmdTag, err := r.db.Exec(ctx, query,
		section.Semester, section.Capacity, section.RoomNumber, section.Schedule, section.ID)
	if err != nil {
		return fmt.Errorf("error updating section: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrSectionNotFound
	}

	return nil
}

// GetByID retrieves a section by ID with its course attached
func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*models.Section, error) {
	query := `
		SELECT ` + sectionColumns + `, c.id, c.code, c.title, c.description, c.credits
		FROM sections s
		JOIN courses c ON c.id = s.course_id
		WHERE s.id = $1
	`

	var section models.Section
	var course models.Course
	err := r.db.QueryRow(ctx, query, id).Scan(
		&section.ID,
		&section.CourseID,
		&section.InstructorID,
		&section.Semester,
		&section.Capacity,
		&section.RoomNumber,
		&section.Schedule,
		&course.ID,
		&course.Code,
		&course.Title,
		&course.Description,
		&course.Credits,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSectionNotFound
		}
		return nil, fmt.Errorf("error retrieving section: %w", err)
	}

	section.Course = &course
	return &section, nil
}

// GetAll retrieves sections, optionally filtered by course
func (r *SectionRepository) GetAll(ctx context.Context, courseID int64) ([]*models.Section, error) {
	query := `
		SELECT ` + sectionColumns + `, c.id, c.code, c.title, c.description, c.credits
		FROM sections s
		JOIN courses c ON c.id = s.course_id
	`
	var args []any
	if courseID > 0 {
		query += ` WHERE s.course_id = $1`
		args = append(args, courseID)
	}
	query += ` ORDER BY s.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		var section models.Section
		var course models.Course
		if err := rows.Scan(
			&section.ID,
			&section.CourseID,
			&section.InstructorID,
			&section.Semester,
			&section.Capacity,
			&section.RoomNumber,
			&section.Schedule,
			&course.ID,
			&course.Code,
			&course.Title,
			&course.Description,
			&course.Credits,
		); err != nil {
			return nil, err
		}
		section.Course = &course
		sections = append(sections, &section)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sections, nil
}

// LockByID acquires an exclusive row-level lock on the section for the
// lifetime of the surrounding transaction. Every capacity decision is made
// after this lock is held; a second caller blocks here until the first
// caller's transaction ends.
func (r *SectionRepository) LockByID(ctx context.Context, id int64) (*models.Section, error) {
	query := `
		SELECT ` + sectionColumns + `
		FROM sections s
		WHERE s.id = $1
		FOR UPDATE
	`

	section, err := scanSection(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSectionNotFound
		}
		return nil, fmt.Errorf("error locking section: %w", err)
	}

	return section, nil
}
