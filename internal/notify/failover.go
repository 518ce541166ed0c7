package notify

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverQueue prefers the primary queue and falls back to the secondary
// once the primary errors. The primary is retried after recoveryInterval.
type FailoverQueue struct {
	primary   Queue
	fallback  Queue
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverQueue(primary, fallback Queue, logger *zerolog.Logger) *FailoverQueue {
	return &FailoverQueue{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (q *FailoverQueue) markDown(err error) {
	if !q.isDown.Swap(true) {
		q.logger.Error().Err(err).Msg("primary notification queue failed, falling back to memory")
	}
	q.lastCheck.Store(q.now().UnixNano())
}

// usePrimary reports whether the primary should be tried now.
func (q *FailoverQueue) usePrimary() bool {
	if !q.isDown.Load() {
		return true
	}
	return q.now().Sub(time.Unix(0, q.lastCheck.Load())) > recoveryInterval
}

func (q *FailoverQueue) recovered() {
	if q.isDown.Swap(false) {
		q.logger.Info().Msg("primary notification queue recovered")
	}
}

func (q *FailoverQueue) Push(ctx context.Context, job Job) error {
	if q.usePrimary() {
		err := q.primary.Push(ctx, job)
		if err == nil {
			q.recovered()
			return nil
		}
		q.markDown(err)
	}
	return q.fallback.Push(ctx, job)
}

// Pop drains jobs parked in the fallback before waiting on the primary.
func (q *FailoverQueue) Pop(ctx context.Context, timeout time.Duration) (*Job, error) {
	if job, err := q.fallback.Pop(ctx, 0); job != nil || err != nil {
		return job, err
	}

	if q.usePrimary() {
		job, err := q.primary.Pop(ctx, timeout)
		if err == nil {
			q.recovered()
			return job, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		q.markDown(err)
	}
	return q.fallback.Pop(ctx, timeout)
}

func (q *FailoverQueue) DeadLetter(ctx context.Context, job Job) error {
	if q.usePrimary() {
		err := q.primary.DeadLetter(ctx, job)
		if err == nil {
			return nil
		}
		q.markDown(err)
	}
	return q.fallback.DeadLetter(ctx, job)
}
