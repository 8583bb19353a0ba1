package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/okaya/courseregistry/internal/pkg/logger"
)

// InProcessScheduler runs promotion jobs on a goroutine in the API process.
// It is the fallback when no message broker is configured; deployments with
// more than one API process should use the broker-backed scheduler so a job
// survives a process crash.
type InProcessScheduler struct {
	promotions *PromotionService
	timeout    time.Duration
	log        zerolog.Logger
}

func NewInProcessScheduler(promotions *PromotionService) *InProcessScheduler {
	return &InProcessScheduler{
		promotions: promotions,
		timeout:    30 * time.Second,
		log:        logger.With().Str("component", "inprocess_scheduler").Logger(),
	}
}

func (s *InProcessScheduler) SchedulePromotion(_ context.Context, sectionID int64) error {
	go func() {
		// Detached from the request context; the job must outlive the
		// HTTP response that triggered it.
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.promotions.PromoteWaitlist(ctx, sectionID); err != nil {
			s.log.Error().Err(err).Int64("section_id", sectionID).Msg("In-process promotion failed")
		}
	}()
	return nil
}

func (s *InProcessScheduler) SchedulePositionNotifications(_ context.Context, sectionID int64) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.promotions.NotifyPositions(ctx, sectionID); err != nil {
			s.log.Error().Err(err).Int64("section_id", sectionID).Msg("In-process position notification failed")
		}
	}()
	return nil
}
