package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/okaya/courseregistry/internal/app/models"
	"github.com/okaya/courseregistry/internal/app/repositories"
	"github.com/okaya/courseregistry/internal/pkg/apperrors"
	"github.com/okaya/courseregistry/internal/pkg/cache"
	"github.com/okaya/courseregistry/internal/pkg/email"
	"github.com/okaya/courseregistry/internal/pkg/logger"
	"github.com/okaya/courseregistry/internal/pkg/schedule"
)

// PromotionOutcome reports what a promotion run did.
type PromotionOutcome string

const (
	// PromotionNoOp means no seat was free, the waitlist was empty, or the
	// head entry was stale.
	PromotionNoOp PromotionOutcome = "noop"
	// PromotionCompleted means the head entry was enrolled.
	PromotionCompleted PromotionOutcome = "promoted"
	// PromotionSkippedConflict means the head entry was removed because the
	// student now has a conflicting enrollment. The freed seat waits for the
	// next promotion trigger.
	PromotionSkippedConflict PromotionOutcome = "skipped_conflict"
)

// waitlistLister covers the unlocked waitlist reads position notification
// needs. Satisfied by repositories.WaitlistRepository.
type waitlistLister interface {
	GetBySection(ctx context.Context, sectionID int64) ([]*models.WaitlistEntry, error)
	MarkNotified(ctx context.Context, id int64) error
}

type sectionGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Section, error)
}

type userGetter interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// PromotionService is the waitlist promotion worker. Each run handles at
// most one candidate under the section lock; runs are idempotent, so
// at-least-once job delivery is safe.
type PromotionService struct {
	ledger   SeatLedger
	waitlist waitlistLister
	sections sectionGetter
	users    userGetter
	notifier email.Notifier
	seats    *cache.SeatCache
	log      zerolog.Logger
}

func NewPromotionService(
	ledger SeatLedger,
	waitlist waitlistLister,
	sections sectionGetter,
	users userGetter,
	notifier email.Notifier,
	seats *cache.SeatCache,
) *PromotionService {
	return &PromotionService{
		ledger:   ledger,
		waitlist: waitlist,
		sections: sections,
		users:    users,
		notifier: notifier,
		seats:    seats,
		log:      logger.With().Str("service", "promotion").Logger(),
	}
}

// PromoteWaitlist attempts to fill one freed seat in sectionID from the
// waitlist. Under the section lock it:
//
//  1. re-checks capacity; full means another enrollment won the seat
//  2. reads the queue head without removing it
//  3. drops a stale head (student already enrolled) and stops
//  4. on a schedule conflict, removes the entry and stops; the run does not
//     try the next entry, a later trigger will
//  5. otherwise enrolls the student and removes the entry atomically
//
// Notifications go out only after the transaction has committed.
func (s *PromotionService) PromoteWaitlist(ctx context.Context, sectionID int64) (PromotionOutcome, error) {
	outcome := PromotionNoOp
	var (
		candidate   *models.WaitlistEntry
		conflicting *models.Section
	)

	run := func(ctx context.Context, tx repositories.SectionTx) error {
		outcome, candidate, conflicting = PromotionNoOp, nil, nil
		section := tx.Section()

		count, err := tx.EnrolledCount(ctx)
		if err != nil {
			return err
		}
		if count >= section.Capacity {
			return nil
		}

		head, err := tx.WaitlistHead(ctx)
		if err != nil {
			if errors.Is(err, apperrors.ErrWaitlistEntryNotFound) {
				return nil
			}
			return err
		}

		enrolled, err := tx.HasEnrollment(ctx, head.StudentID)
		if err != nil {
			return err
		}
		if enrolled {
			// Stale entry; the student got a seat some other way.
			_, err := tx.RemoveWaitlistEntry(ctx, head.ID)
			return err
		}

		if other, err := s.findConflict(ctx, tx, head.StudentID, section); err != nil {
			return err
		} else if other != nil {
			if _, err := tx.RemoveWaitlistEntry(ctx, head.ID); err != nil {
				return err
			}
			outcome, candidate, conflicting = PromotionSkippedConflict, head, other
			return nil
		}

		if _, err := tx.CreateEnrollment(ctx, head.StudentID); err != nil {
			return err
		}
		if _, err := tx.RemoveWaitlistEntry(ctx, head.ID); err != nil {
			return err
		}
		outcome, candidate = PromotionCompleted, head
		return nil
	}

	err := s.ledger.WithSectionLock(ctx, sectionID, run)
	if err != nil && errors.Is(err, apperrors.ErrLockTimeout) {
		s.log.Warn().Int64("section_id", sectionID).Msg("Section lock timed out during promotion, retrying once")
		err = s.ledger.WithSectionLock(ctx, sectionID, run)
	}
	if err != nil {
		return PromotionNoOp, err
	}

	if outcome != PromotionNoOp {
		s.seats.Invalidate(ctx, sectionID)
		s.notifyOutcome(ctx, sectionID, outcome, candidate, conflicting)
	}

	s.log.Info().Int64("section_id", sectionID).Str("outcome", string(outcome)).Msg("Waitlist promotion run finished")
	return outcome, nil
}

// NotifyPositions emails every remaining entry of a section's waitlist its
// current position. Individual send failures are logged and skipped so one
// bad address cannot stall the rest of the queue.
func (s *PromotionService) NotifyPositions(ctx context.Context, sectionID int64) error {
	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrSectionNotFound) {
			return nil
		}
		return err
	}

	entries, err := s.waitlist.GetBySection(ctx, sectionID)
	if err != nil {
		return err
	}

	total := len(entries)
	for i, entry := range entries {
		if entry.Student == nil {
			continue
		}
		if err := s.notifier.NotifyPositionChanged(entry.Student, section, i+1, total); err != nil {
			s.log.Error().Err(err).Int64("entry_id", entry.ID).Msg("Failed to send position notification")
			continue
		}
		if err := s.waitlist.MarkNotified(ctx, entry.ID); err != nil {
			s.log.Error().Err(err).Int64("entry_id", entry.ID).Msg("Failed to mark waitlist entry notified")
		}
	}
	return nil
}

// findConflict returns the first of the student's same-semester sections
// whose meeting times overlap the target, or nil.
func (s *PromotionService) findConflict(ctx context.Context, tx repositories.SectionTx, studentID int64, section *models.Section) (*models.Section, error) {
	target := schedule.Parse(section.Schedule)
	if target == nil {
		return nil, nil
	}
	enrollments, err := tx.StudentEnrollments(ctx, studentID, section.Semester)
	if err != nil {
		return nil, err
	}
	for _, e := range enrollments {
		if e.Section == nil || e.SectionID == section.ID {
			continue
		}
		if schedule.Overlaps(target, schedule.Parse(e.Section.Schedule)) {
			return e.Section, nil
		}
	}
	return nil, nil
}

// notifyOutcome sends the post-commit email for a promotion or a conflict
// skip. Failures are logged; the database outcome already stands.
func (s *PromotionService) notifyOutcome(ctx context.Context, sectionID int64, outcome PromotionOutcome, candidate *models.WaitlistEntry, conflicting *models.Section) {
	if candidate == nil || s.notifier == nil {
		return
	}

	student, err := s.users.GetByID(ctx, candidate.StudentID)
	if err != nil {
		s.log.Error().Err(err).Int64("student_id", candidate.StudentID).Msg("Failed to load student for notification")
		return
	}
	section, err := s.sections.GetByID(ctx, sectionID)
	if err != nil {
		s.log.Error().Err(err).Int64("section_id", sectionID).Msg("Failed to load section for notification")
		return
	}

	switch outcome {
	case PromotionCompleted:
		err = s.notifier.NotifyPromoted(student, section)
	case PromotionSkippedConflict:
		err = s.notifier.NotifyConflictSkipped(student, section, conflicting)
	}
	if err != nil {
		s.log.Error().Err(err).Int64("student_id", candidate.StudentID).Msg("Failed to send promotion notification")
	}
}
