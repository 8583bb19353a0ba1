package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher dispatches waitlist jobs to RabbitMQ. A fresh connection is
// dialed per publish; publishes are rare (one per drop or leave) and this
// keeps the publisher free of connection-recovery state.
type Publisher struct {
	url    string
	logger zerolog.Logger
}

// NewPublisher creates a publisher for the given broker URL.
func NewPublisher(url string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		url:    url,
		logger: logger,
	}
}

// SchedulePromotion enqueues a PromoteWaitlistJob for the section.
func (p *Publisher) SchedulePromotion(ctx context.Context, sectionID int64) error {
	job := PromoteWaitlistJob{
		JobID:       uuid.New().String(),
		SectionID:   sectionID,
		RequestedAt: time.Now().UTC(),
	}
	return p.publish(ctx, PromoteQueueName, job)
}

// SchedulePositionNotifications enqueues a WaitlistPositionsJob for the section.
func (p *Publisher) SchedulePositionNotifications(ctx context.Context, sectionID int64) error {
	job := WaitlistPositionsJob{
		JobID:       uuid.New().String(),
		SectionID:   sectionID,
		RequestedAt: time.Now().UTC(),
	}
	return p.publish(ctx, PositionsQueueName, job)
}

func (p *Publisher) publish(ctx context.Context, queueName string, payload interface{}) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Error().Err(err).Str("queue", queueName).Msg("RabbitMQ dial failed")
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Error().Err(err).Str("queue", queueName).Msg("RabbitMQ channel open failed")
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so jobs survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.logger.Error().Err(err).Str("queue", queueName).Msg("RabbitMQ publish failed")
		return fmt.Errorf("amqp publish: %w", err)
	}

	return nil
}
