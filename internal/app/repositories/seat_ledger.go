package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/db"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
	"github.com/okaya/courseregistry/internal/pkg/dberrors"
)

// SectionTx exposes the operations available while a section's row lock is
// held. Every method runs on the same transaction that acquired the lock, so
// the counts it reports cannot go stale under a concurrent enroll or drop.
type SectionTx interface {
	// Section returns the locked section row.
	Section() *models.Section
	// EnrolledCount returns the live enrollment count for the locked section.
	EnrolledCount(ctx context.Context) (int, error)
	HasEnrollment(ctx context.Context, studentID int64) (bool, error)
	CreateEnrollment(ctx context.Context, studentID int64) (*models.Enrollment, error)
	DeleteEnrollment(ctx context.Context, studentID int64) (bool, error)
	HasWaitlistEntry(ctx context.Context, studentID int64) (bool, error)
	EnqueueWaitlist(ctx context.Context, studentID int64) (*models.WaitlistEntry, error)
	// WaitlistHead returns the earliest entry without removing it.
	WaitlistHead(ctx context.Context) (*models.WaitlistEntry, error)
	WaitlistEntryByID(ctx context.Context, entryID int64) (*models.WaitlistEntry, error)
	// RemoveWaitlistEntry is idempotent; removing a missing entry reports false.
	RemoveWaitlistEntry(ctx context.Context, entryID int64) (bool, error)
	WaitlistPosition(ctx context.Context, entry *models.WaitlistEntry) (int, error)
	// StudentEnrollments lists the student's committed enrollments in the
	// given semester, sections attached, for schedule-conflict checking.
	// These rows are read without locking their sections; the invariant the
	// ledger protects is per-section capacity, not cross-section schedule
	// consistency for a student enrolling in two sections at once.
	StudentEnrollments(ctx context.Context, studentID int64, semester string) ([]*models.Enrollment, error)
}

// SeatLedger serializes all seat decisions for a section behind that
// section's row lock. It is the single coordination point of the enrollment
// core: no in-process mutexes are used because multiple API processes must
// serialize through the database itself.
type SeatLedger struct {
	db          *db.PostgresDB
	sections    *SectionRepository
	enrollments *EnrollmentRepository
	waitlist    *WaitlistRepository
	lockTimeout time.Duration
}

// NewSeatLedger creates a seat ledger. lockTimeout bounds how long a caller
// waits for a section lock; zero disables the bound.
func NewSeatLedger(database *db.PostgresDB, lockTimeout time.Duration) *SeatLedger {
	return &SeatLedger{
		db:          database,
		sections:    NewSectionRepository(database.Pool),
		enrollments: NewEnrollmentRepository(database.Pool),
		waitlist:    NewWaitlistRepository(database.Pool),
		lockTimeout: lockTimeout,
	}
}

// WithSectionLock opens a transaction, locks the section row FOR UPDATE, and
// invokes fn with a SectionTx bound to that transaction. The transaction
// commits when fn returns nil and rolls back otherwise, so an operation's
// writes become visible all at once or not at all.
//
// Returns apperrors.ErrSectionNotFound for a missing section and
// apperrors.ErrLockTimeout when the lock wait exceeds the configured bound.
func (l *SeatLedger) WithSectionLock(ctx context.Context, sectionID int64, fn func(ctx context.Context, tx SectionTx) error) error {
	err := l.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if l.lockTimeout > 0 {
			// SET LOCAL scopes the timeout to this transaction only.
			timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", l.lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, timeout); err != nil {
				return fmt.Errorf("error setting lock timeout: %w", err)
			}
		}

		section, err := l.sections.WithTx(tx).LockByID(ctx, sectionID)
		if err != nil {
			return err
		}

		return fn(ctx, &sectionTx{
			section:     section,
			enrollments: l.enrollments.WithTx(tx),
			waitlist:    l.waitlist.WithTx(tx),
		})
	})

	if dberrors.IsLockNotAvailable(err) {
		return fmt.Errorf("%w: section %d", apperrors.ErrLockTimeout, sectionID)
	}
	return err
}

// sectionTx is the transaction-bound SectionTx implementation.
type sectionTx struct {
	section     *models.Section
	enrollments *EnrollmentRepository
	waitlist    *WaitlistRepository
}

func (t *sectionTx) Section() *models.Section {
	return t.section
}

func (t *sectionTx) EnrolledCount(ctx context.Context) (int, error) {
	return t.enrollments.CountBySection(ctx, t.section.ID)
}

func (t *sectionTx) HasEnrollment(ctx context.Context, studentID int64) (bool, error) {
	return t.enrollments.Exists(ctx, studentID, t.section.ID)
}

func (t *sectionTx) CreateEnrollment(ctx context.Context, studentID int64) (*models.Enrollment, error) {
	return t.enrollments.Create(ctx, studentID, t.section.ID)
}

func (t *sectionTx) DeleteEnrollment(ctx context.Context, studentID int64) (bool, error) {
	return t.enrollments.Delete(ctx, studentID, t.section.ID)
}

func (t *sectionTx) HasWaitlistEntry(ctx context.Context, studentID int64) (bool, error) {
	return t.waitlist.Exists(ctx, studentID, t.section.ID)
}

func (t *sectionTx) EnqueueWaitlist(ctx context.Context, studentID int64) (*models.WaitlistEntry, error) {
	return t.waitlist.Enqueue(ctx, studentID, t.section.ID)
}

func (t *sectionTx) WaitlistHead(ctx context.Context) (*models.WaitlistEntry, error) {
	return t.waitlist.Head(ctx, t.section.ID)
}

func (t *sectionTx) WaitlistEntryByID(ctx context.Context, entryID int64) (*models.WaitlistEntry, error) {
	return t.waitlist.GetByID(ctx, entryID)
}

func (t *sectionTx) RemoveWaitlistEntry(ctx context.Context, entryID int64) (bool, error) {
	return t.waitlist.Remove(ctx, entryID)
}

func (t *sectionTx) WaitlistPosition(ctx context.Context, entry *models.WaitlistEntry) (int, error) {
	return t.waitlist.Position(ctx, entry)
}

func (t *sectionTx) StudentEnrollments(ctx context.Context, studentID int64, semester string) ([]*models.Enrollment, error) {
	return t.enrollments.GetByStudentAndSemester(ctx, studentID, semester)
}
