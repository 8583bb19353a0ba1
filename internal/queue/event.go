// Package queue defines the asynchronous job payloads exchanged over the
// message broker and the publisher/consumer pair that moves them. Jobs are
// dispatched at-least-once; every handler is idempotent, so redundant or
// duplicate deliveries for the same section are harmless.
package queue

import "time"

// Queue names. Both are declared durable so jobs survive broker restarts.
const (
	PromoteQueueName   = "waitlist.promote"
	PositionsQueueName = "waitlist.positions"
)

// PromoteWaitlistJob asks the promotion worker to attempt one promotion for
// a section. Published after a drop commits, never from inside the dropping
// transaction.
type PromoteWaitlistJob struct {
	JobID       string    `json:"job_id"`
	SectionID   int64     `json:"section_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// WaitlistPositionsJob asks the worker to notify every remaining entry of a
// section's waitlist about their updated position.
type WaitlistPositionsJob struct {
	JobID       string    `json:"job_id"`
	SectionID   int64     `json:"section_id"`
	RequestedAt time.Time `json:"requested_at"`
}
