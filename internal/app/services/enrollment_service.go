package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/app/repositories"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
	"github.com/okaya/courseregistry/internal/pkg/cache"
	"github.com/okaya/courseregistry/internal/pkg/logger"
	"github.com/okaya/courseregistry/internal/pkg/schedule"
)

// EnrollmentOutcome reports what Enroll did for the student: a confirmed
// seat, or a waitlist entry with its 1-indexed position.
type EnrollmentOutcome struct {
	Enrolled      bool
	Enrollment    *models.Enrollment
	WaitlistEntry *models.WaitlistEntry
	Position      int
}

// enrollmentReader covers the unlocked reads Enroll's sibling operations
// need. Satisfied by repositories.EnrollmentRepository.
type enrollmentReader interface {
	GetByStudent(ctx context.Context, studentID int64) ([]*models.Enrollment, error)
}

// waitlistReader covers unlocked waitlist reads. Satisfied by
// repositories.WaitlistRepository.
type waitlistReader interface {
	GetByID(ctx context.Context, id int64) (*models.WaitlistEntry, error)
	GetByStudentAndSection(ctx context.Context, studentID, sectionID int64) (*models.WaitlistEntry, error)
	Position(ctx context.Context, entry *models.WaitlistEntry) (int, error)
	GetByStudent(ctx context.Context, studentID int64) ([]*models.WaitlistEntry, error)
}

// EnrollmentService coordinates enrollment, drops and waitlist membership.
// Every write runs inside a section lock held by the SeatLedger, so the
// capacity invariant (enrolled count never exceeds capacity) holds under
// concurrent requests.
type EnrollmentService struct {
	ledger      SeatLedger
	enrollments enrollmentReader
	waitlist    waitlistReader
	scheduler   PromotionScheduler
	seats       *cache.SeatCache
	log         zerolog.Logger
}

func NewEnrollmentService(
	ledger SeatLedger,
	enrollments enrollmentReader,
	waitlist waitlistReader,
	scheduler PromotionScheduler,
	seats *cache.SeatCache,
) *EnrollmentService {
	return &EnrollmentService{
		ledger:      ledger,
		enrollments: enrollments,
		waitlist:    waitlist,
		scheduler:   scheduler,
		seats:       seats,
		log:         logger.With().Str("service", "enrollment").Logger(),
	}
}

// Enroll registers studentID into sectionID, or joins the waitlist when the
// section is full. All checks and the write happen under the section lock:
//
//  1. already enrolled -> ErrAlreadyEnrolled
//  2. already waitlisted -> ErrAlreadyWaitlisted
//  3. section full -> enqueue on the waitlist, report position
//  4. schedule conflict with an existing same-semester enrollment -> error
//  5. otherwise create the enrollment
//
// The waitlist path deliberately skips the conflict check; conflicts are
// re-evaluated at promotion time, when they are actionable.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID, sectionID int64) (*EnrollmentOutcome, error) {
	var outcome *EnrollmentOutcome

	err := s.withLockRetry(ctx, sectionID, func(ctx context.Context, tx repositories.SectionTx) error {
		section := tx.Section()

		enrolled, err := tx.HasEnrollment(ctx, studentID)
		if err != nil {
			return err
		}
		if enrolled {
			return apperrors.ErrAlreadyEnrolled
		}

		waitlisted, err := tx.HasWaitlistEntry(ctx, studentID)
		if err != nil {
			return err
		}
		if waitlisted {
			return apperrors.ErrAlreadyWaitlisted
		}

		count, err := tx.EnrolledCount(ctx)
		if err != nil {
			return err
		}
		if count >= section.Capacity {
			entry, err := tx.EnqueueWaitlist(ctx, studentID)
			if err != nil {
				return err
			}
			position, err := tx.WaitlistPosition(ctx, entry)
			if err != nil {
				return err
			}
			outcome = &EnrollmentOutcome{WaitlistEntry: entry, Position: position}
			return nil
		}

		if err := s.checkScheduleConflict(ctx, tx, studentID, section); err != nil {
			return err
		}

		enrollment, err := tx.CreateEnrollment(ctx, studentID)
		if err != nil {
			return err
		}
		outcome = &EnrollmentOutcome{Enrolled: true, Enrollment: enrollment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.seats.Invalidate(ctx, sectionID)

	if outcome.Enrolled {
		s.log.Info().Int64("student_id", studentID).Int64("section_id", sectionID).Msg("Student enrolled")
	} else {
		s.log.Info().Int64("student_id", studentID).Int64("section_id", sectionID).
			Int("position", outcome.Position).Msg("Student waitlisted")
	}
	return outcome, nil
}

// Drop removes the student's enrollment and schedules a waitlist promotion
// for the freed seat. Scheduling happens only after the delete has
// committed; a failed schedule is logged, not surfaced, since the entry can
// be promoted by any later run.
func (s *EnrollmentService) Drop(ctx context.Context, studentID, sectionID int64) error {
	err := s.withLockRetry(ctx, sectionID, func(ctx context.Context, tx repositories.SectionTx) error {
		deleted, err := tx.DeleteEnrollment(ctx, studentID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperrors.ErrNotEnrolled
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.seats.Invalidate(ctx, sectionID)

	if err := s.scheduler.SchedulePromotion(ctx, sectionID); err != nil {
		s.log.Error().Err(err).Int64("section_id", sectionID).Msg("Failed to schedule waitlist promotion")
	}

	s.log.Info().Int64("student_id", studentID).Int64("section_id", sectionID).Msg("Enrollment dropped")
	return nil
}

// LeaveWaitlist removes the student's own waitlist entry and schedules
// position notifications for the students behind it.
func (s *EnrollmentService) LeaveWaitlist(ctx context.Context, studentID, entryID int64) error {
	entry, err := s.waitlist.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.StudentID != studentID {
		return apperrors.ErrWaitlistEntryNotOwned
	}
	sectionID := entry.SectionID

	err = s.withLockRetry(ctx, sectionID, func(ctx context.Context, tx repositories.SectionTx) error {
		// Re-read under the lock; the worker may have promoted or removed
		// the entry since the unlocked ownership check.
		current, err := tx.WaitlistEntryByID(ctx, entryID)
		if err != nil {
			return err
		}
		if current.StudentID != studentID {
			return apperrors.ErrWaitlistEntryNotOwned
		}
		_, err = tx.RemoveWaitlistEntry(ctx, entryID)
		return err
	})
	if err != nil {
		return err
	}

	s.seats.Invalidate(ctx, sectionID)

	if err := s.scheduler.SchedulePositionNotifications(ctx, sectionID); err != nil {
		s.log.Error().Err(err).Int64("section_id", sectionID).Msg("Failed to schedule position notifications")
	}

	s.log.Info().Int64("student_id", studentID).Int64("entry_id", entryID).Msg("Left waitlist")
	return nil
}

// Position returns the student's waitlist entry for the section together
// with its 1-indexed position. The read is unlocked, so the position is a
// point-in-time snapshot.
func (s *EnrollmentService) Position(ctx context.Context, studentID, sectionID int64) (*models.WaitlistEntry, int, error) {
	entry, err := s.waitlist.GetByStudentAndSection(ctx, studentID, sectionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrWaitlistEntryNotFound) {
			return nil, 0, apperrors.ErrNotWaitlisted
		}
		return nil, 0, err
	}
	position, err := s.waitlist.Position(ctx, entry)
	if err != nil {
		return nil, 0, err
	}
	return entry, position, nil
}

// MyEnrollments lists the student's current enrollments with section and
// course details.
func (s *EnrollmentService) MyEnrollments(ctx context.Context, studentID int64) ([]*models.Enrollment, error) {
	return s.enrollments.GetByStudent(ctx, studentID)
}

// MyWaitlists lists the student's waitlist entries with section details.
func (s *EnrollmentService) MyWaitlists(ctx context.Context, studentID int64) ([]*models.WaitlistEntry, error) {
	return s.waitlist.GetByStudent(ctx, studentID)
}

// checkScheduleConflict compares the target section's meeting times against
// the student's other enrollments in the same semester. Sections whose
// schedule text does not parse never conflict.
func (s *EnrollmentService) checkScheduleConflict(ctx context.Context, tx repositories.SectionTx, studentID int64, section *models.Section) error {
	target := schedule.Parse(section.Schedule)
	if target == nil {
		return nil
	}

	enrollments, err := tx.StudentEnrollments(ctx, studentID, section.Semester)
	if err != nil {
		return err
	}
	for _, e := range enrollments {
		if e.Section == nil || e.SectionID == section.ID {
			continue
		}
		if schedule.Overlaps(target, schedule.Parse(e.Section.Schedule)) {
			code := ""
			if e.Section.Course != nil {
				code = e.Section.Course.Code
			}
			return apperrors.NewScheduleConflictError(e.SectionID, code)
		}
	}
	return nil
}

// withLockRetry runs fn under the section lock, retrying exactly once when
// the lock wait times out. A second timeout surfaces ErrLockTimeout to the
// caller.
func (s *EnrollmentService) withLockRetry(ctx context.Context, sectionID int64, fn func(ctx context.Context, tx repositories.SectionTx) error) error {
	err := s.ledger.WithSectionLock(ctx, sectionID, fn)
	if err != nil && errors.Is(err, apperrors.ErrLockTimeout) {
		s.log.Warn().Int64("section_id", sectionID).Msg("Section lock timed out, retrying once")
		err = s.ledger.WithSectionLock(ctx, sectionID, fn)
	}
	return err
}
