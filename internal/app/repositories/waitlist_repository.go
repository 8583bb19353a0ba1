package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
	"github.com/okaya/courseregistry/internal/pkg/dberrors"
)

// WaitlistRepository handles database operations for waitlist entries.
// FIFO order is joined_at ascending with id as the tie-break, which keeps
// positions well-defined even when two students join in the same instant.
type WaitlistRepository struct {
	db Querier
}

// NewWaitlistRepository creates a new waitlist repository
func NewWaitlistRepository(db Querier) *WaitlistRepository {
	return &WaitlistRepository{
		db: db,
	}
}

// WithTx returns a repository bound to the given transaction.
func (r *WaitlistRepository) WithTx(tx pgx.Tx) *WaitlistRepository {
	return &WaitlistRepository{db: tx}
}

const waitlistColumns = `id, student_id, section_id, joined_at, notified`

func scanWaitlistEntry(row pgx.Row) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := row.Scan(
		&entry.ID,
		&entry.StudentID,
		&entry.SectionID,
		&entry.JoinedAt,
		&entry.Notified,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Enqueue appends a student to a section's waitlist.
func (r *WaitlistRepository) Enqueue(ctx context.Context, studentID, sectionID int64) (*models.WaitlistEntry, error) {
	query := `
		INSERT INTO waitlist_entries (student_id, section_id)
		VALUES ($1, $2)
		RETURNING ` + waitlistColumns

	entry, err := scanWaitlistEntry(r.db.QueryRow(ctx, query, studentID, sectionID))
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "waitlist_entries_student_id_section_id_key") {
			return nil, apperrors.ErrAlreadyWaitlisted
		}
		return nil, fmt.Errorf("error enqueueing waitlist entry: %w", err)
	}

	return entry, nil
}

// Head returns the earliest entry for a section without removing it, so a
// failed promotion can re-inspect state. ErrWaitlistEntryNotFound signals an
// empty queue.
func (r *WaitlistRepository) Head(ctx context.Context, sectionID int64) (*models.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE section_id = $1
		ORDER BY joined_at, id
		LIMIT 1
	`

	entry, err := scanWaitlistEntry(r.db.QueryRow(ctx, query, sectionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWaitlistEntryNotFound
		}
		return nil, fmt.Errorf("error reading waitlist head: %w", err)
	}

	return entry, nil
}

// GetByID retrieves a waitlist entry by ID
func (r *WaitlistRepository) GetByID(ctx context.Context, id int64) (*models.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE id = $1
	`

	entry, err := scanWaitlistEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWaitlistEntryNotFound
		}
		return nil, fmt.Errorf("error retrieving waitlist entry: %w", err)
	}

	return entry, nil
}

// GetByStudentAndSection retrieves the entry for a (student, section) pair.
func (r *WaitlistRepository) GetByStudentAndSection(ctx context.Context, studentID, sectionID int64) (*models.WaitlistEntry, error) {
	query := `
		SELECT ` + waitlistColumns + `
		FROM waitlist_entries
		WHERE student_id = $1 AND section_id = $2
	`

	entry, err := scanWaitlistEntry(r.db.QueryRow(ctx, query, studentID, sectionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWaitlistEntryNotFound
		}
		return nil, fmt.Errorf("error retrieving waitlist entry: %w", err)
	}

	return entry, nil
}

// Exists checks whether a (student, section) waitlist entry exists.
func (r *WaitlistRepository) Exists(ctx context.Context, studentID, sectionID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM waitlist_entries WHERE student_id = $1 AND section_id = $2)`,
		studentID, sectionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking waitlist existence: %w", err)
	}
	return exists, nil
}

// Remove deletes an entry by ID and reports whether a row was deleted.
// Removing an already-removed entry is a no-op, not an error; a concurrent
// promotion and a voluntary leave can race on the same entry.
func (r *WaitlistRepository) Remove(ctx context.Context, id int64) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("error removing waitlist entry: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// MarkNotified flags an entry as having received a notification.
func (r *WaitlistRepository) MarkNotified(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE waitlist_entries SET notified = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error marking waitlist entry notified: %w", err)
	}
	return nil
}

// Position returns the 1-indexed queue position of an entry: one plus the
// number of entries for the same section that joined strictly earlier.
func (r *WaitlistRepository) Position(ctx context.Context, entry *models.WaitlistEntry) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM waitlist_entries
		WHERE section_id = $1
		  AND (joined_at < $2 OR (joined_at = $2 AND id < $3))
	`

	var ahead int
	err := r.db.QueryRow(ctx, query, entry.SectionID, entry.JoinedAt, entry.ID).Scan(&ahead)
	if err != nil {
		return 0, fmt.Errorf("error computing waitlist position: %w", err)
	}
	return ahead + 1, nil
}

// CountBySection returns the waitlist length for a section.
func (r *WaitlistRepository) CountBySection(ctx context.Context, sectionID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE section_id = $1`,
		sectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting waitlist entries: %w", err)
	}
	return count, nil
}

// GetBySection lists a section's waitlist in FIFO order with students attached.
func (r *WaitlistRepository) GetBySection(ctx context.Context, sectionID int64) ([]*models.WaitlistEntry, error) {
	query := `
		SELECT w.id, w.student_id, w.section_id, w.joined_at, w.notified,
		       u.id, u.email, u.first_name, u.last_name, u.role_type, u.created_at
		FROM waitlist_entries w
		JOIN users u ON u.id = w.student_id
		WHERE w.section_id = $1
		ORDER BY w.joined_at, w.id
	`

	rows, err := r.db.Query(ctx, query, sectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.WaitlistEntry
	for rows.Next() {
		var entry models.WaitlistEntry
		var student models.User
		if err := rows.Scan(
			&entry.ID,
			&entry.StudentID,
			&entry.SectionID,
			&entry.JoinedAt,
			&entry.Notified,
			&student.ID,
			&student.Email,
			&student.FirstName,
			&student.LastName,
			&student.RoleType,
			&student.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Student = &student
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// GetByStudent lists a student's waitlist entries with sections attached.
func (r *WaitlistRepository) GetByStudent(ctx context.Context, studentID int64) ([]*models.WaitlistEntry, error) {
	query := `
		SELECT w.id, w.student_id, w.section_id, w.joined_at, w.notified,
		       ` + sectionColumns + `, c.id, c.code, c.title, c.description, c.credits
		FROM waitlist_entries w
		JOIN sections s ON s.id = w.section_id
		JOIN courses c ON c.id = s.course_id
		WHERE w.student_id = $1
		ORDER BY w.joined_at, w.id
	`

	rows, err := r.db.Query(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.WaitlistEntry
	for rows.Next() {
		var entry models.WaitlistEntry
		var section models.Section
		var course models.Course
		if err := rows.Scan(
			&entry.ID,
			&entry.StudentID,
			&entry.SectionID,
			&entry.JoinedAt,
			&entry.Notified,
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
		entry.Section = &section
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
