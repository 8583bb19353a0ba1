package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
	"github.com/okaya/courseregistry/internal/pkg/dberrors"
)

// EnrollmentRepository handles database operations for enrollments
type EnrollmentRepository struct {
	db Querier
}

// NewEnrollmentRepository creates a new enrollment repository
func NewEnrollmentRepository(db Querier) *EnrollmentRepository {
	return &EnrollmentRepository{
		db: db,
	}
}

// WithTx returns a repository bound to the given transaction.
func (r *EnrollmentRepository) WithTx(tx pgx.Tx) *EnrollmentRepository {
	return &EnrollmentRepository{db: tx}
}

// Create inserts a new enrollment for a (student, section) pair.
func (r *EnrollmentRepository) Create(ctx context.Context, studentID, sectionID int64) (*models.Enrollment, error) {
	query := `
		INSERT INTO enrollments (student_id, section_id)
		VALUES ($1, $2)
		RETURNING id, enrolled_at
	`

	enrollment := &models.Enrollment{StudentID: studentID, SectionID: sectionID}
	err := r.db.QueryRow(ctx, query, studentID, sectionID).Scan(&enrollment.ID, &enrollment.EnrolledAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "enrollments_student_id_section_id_key") {
			return nil, apperrors.ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("error creating enrollment: %w", err)
	}

	return enrollment, nil
}

// Delete removes the enrollment for a (student, section) pair and reports
// whether a row was actually deleted.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, sectionID int64) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM enrollments WHERE student_id = $1 AND section_id = $2`,
		studentID, sectionID)
	if err != nil {
		return false, fmt.Errorf("error deleting enrollment: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// Exists checks whether a (student, section) enrollment exists.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, sectionID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2)`,
		studentID, sectionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking enrollment existence: %w", err)
	}
	return exists, nil
}

// CountBySection returns the live enrollment count for a section. Inside a
// section-locked transaction this is the authoritative "seats taken" value;
// there is no stored counter that could go stale.
func (r *EnrollmentRepository) CountBySection(ctx context.Context, sectionID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE section_id = $1`,
		sectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting enrollments: %w", err)
	}
	return count, nil
}

// GetByStudentAndSemester retrieves a student's enrollments whose sections
// fall in the given semester, with each section (and its course) attached.
// Used for schedule-conflict checking.
func (r *EnrollmentRepository) GetByStudentAndSemester(ctx context.Context, studentID int64, semester string) ([]*models.Enrollment, error) {
	query := `
		SELECT e.id, e.student_id, e.section_id, e.enrolled_at, e.grade,
		       ` + sectionColumns + `, c.id, c.code, c.title, c.description, c.credits
		FROM enrollments e
		JOIN sections s ON s.id = e.section_id
		JOIN courses c ON c.id = s.course_id
		WHERE e.student_id = $1 AND s.semester = $2
	`

	return r.queryWithSections(ctx, query, studentID, semester)
}

// GetByStudent retrieves all of a student's enrollments with sections attached.
func (r *EnrollmentRepository) GetByStudent(ctx context.Context, studentID int64) ([]*models.Enrollment, error) {
	query := `
		SELECT e.id, e.student_id, e.section_id, e.enrolled_at, e.grade,
		       ` + sectionColumns + `, c.id, c.code, c.title, c.description, c.credits
		FROM enrollments e
		JOIN sections s ON s.id = e.section_id
		JOIN courses c ON c.id = s.course_id
		WHERE e.student_id = $1
		ORDER BY e.enrolled_at DESC
	`

	return r.queryWithSections(ctx, query, studentID)
}

func (r *EnrollmentRepository) queryWithSections(ctx context.Context, query string, args ...any) ([]*models.Enrollment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []*models.Enrollment
	for rows.Next() {
		var enrollment models.Enrollment
		var section models.Section
		var course models.Course
		if err := rows.Scan(
			&enrollment.ID,
			&enrollment.StudentID,
			&enrollment.SectionID,
			&enrollment.EnrolledAt,
			&enrollment.Grade,
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
		enrollment.Section = &section
		enrollments = append(enrollments, &enrollment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return enrollments, nil
}
