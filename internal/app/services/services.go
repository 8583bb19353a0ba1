package services

import (
	"context"

	"github.com/okaya/courseregistry/internal/app/repositories"
)

// Services defined in this package:
// - AuthService: registration, login, token refresh
// - CourseService: catalog courses
// - SectionService: section management and live availability
// - EnrollmentService: the enrollment coordinator (enroll/drop/waitlist)
// - PromotionService: the asynchronous waitlist promotion worker

// SeatLedger is the section-lock primitive the coordinator and the promotion
// worker run on. Implemented by repositories.SeatLedger; tests substitute an
// in-memory ledger.
type SeatLedger interface {
	WithSectionLock(ctx context.Context, sectionID int64, fn func(ctx context.Context, tx repositories.SectionTx) error) error
}

// PromotionScheduler schedules asynchronous waitlist work. Scheduling always
// happens strictly after the transaction that freed a seat has committed, so
// the worker never observes pre-commit state. Implementations must provide
// at-least-once delivery; the handlers are idempotent.
type PromotionScheduler interface {
	SchedulePromotion(ctx context.Context, sectionID int64) error
	SchedulePositionNotifications(ctx context.Context, sectionID int64) error
}
