package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Handlers are the callbacks invoked for consumed jobs. Each must be
// idempotent: deliveries are at-least-once and the same section can be
// scheduled redundantly by concurrent drops.
type Handlers struct {
	PromoteWaitlist func(ctx context.Context, sectionID int64) error
	NotifyPositions func(ctx context.Context, sectionID int64) error
}

// Consumer drains the waitlist job queues and dispatches them to the
// promotion worker. It runs a reconnect loop with exponential backoff and
// only stops when its context is cancelled.
type Consumer struct {
	url      string
	handlers Handlers
	logger   zerolog.Logger
}

// NewConsumer creates a consumer for the given broker URL.
func NewConsumer(url string, handlers Handlers, logger zerolog.Logger) *Consumer {
	return &Consumer{
		url:      url,
		handlers: handlers,
		logger:   logger,
	}
}

// Run blocks, consuming jobs until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn().Err(err).Dur("backoff", backoff).Msg("Promotion consumer failed to dial broker, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consume(ctx, conn); err != nil && ctx.Err() == nil {
			c.logger.Warn().Err(err).Msg("Promotion consumer loop ended, reconnecting")
		}
		_ = conn.Close()
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to set QoS on promotion consumer")
	}

	for _, name := range []string{PromoteQueueName, PositionsQueueName} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	promotions, err := ch.Consume(PromoteQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", PromoteQueueName, err)
	}
	positions, err := ch.Consume(PositionsQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", PositionsQueueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-promotions:
			if !ok {
				return errors.New("promotion deliveries channel closed")
			}
			c.dispatch(ctx, d, c.handlePromote)
		case d, ok := <-positions:
			if !ok {
				return errors.New("positions deliveries channel closed")
			}
			c.dispatch(ctx, d, c.handlePositions)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery, handle func(ctx context.Context, body []byte) error) {
	if err := handle(ctx, d.Body); err != nil {
		c.logger.Error().Err(err).Str("queue", d.RoutingKey).Msg("Waitlist job failed")
		// Reject without requeue: a poisoned job would otherwise loop
		// forever, and the next drop re-surfaces the same section anyway.
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) handlePromote(ctx context.Context, body []byte) error {
	var job PromoteWaitlistJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal promote job: %w", err)
	}

	c.logger.Info().Str("jobId", job.JobID).Int64("sectionId", job.SectionID).Msg("Processing waitlist promotion job")
	return c.handlers.PromoteWaitlist(ctx, job.SectionID)
}

func (c *Consumer) handlePositions(ctx context.Context, body []byte) error {
	var job WaitlistPositionsJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("unmarshal positions job: %w", err)
	}

	c.logger.Info().Str("jobId", job.JobID).Int64("sectionId", job.SectionID).Msg("Processing waitlist positions job")
	return c.handlers.NotifyPositions(ctx, job.SectionID)
}
