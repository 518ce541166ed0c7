// Package notify delivers post-commit notifications through a queue so that
// the committing operation never waits on delivery.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrQueueFull is returned by a bounded queue that cannot take another job.
var ErrQueueFull = errors.New("notification queue full")

// Job is one notification waiting for delivery.
type Job struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Type       string    `json:"type"`
	EntityID   string    `json:"entity_id"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue transports jobs from the dispatcher to the worker.
type Queue interface {
	Push(ctx context.Context, job Job) error
	// Pop waits up to timeout for a job; it returns nil, nil when none arrived.
	Pop(ctx context.Context, timeout time.Duration) (*Job, error)
	// DeadLetter parks a job that exhausted its retries.
	DeadLetter(ctx context.Context, job Job) error
}
