package notify

import (
	"context"
	"errors"
	"time"

	"supperclub/internal/metrics"

	"github.com/rs/zerolog"
)

// Sink is the delivery target for notifications.
type Sink interface {
	Deliver(ctx context.Context, job Job) error
}

// Worker pops jobs from the queue and hands them to the sink, re-queuing
// failures with exponential backoff and parking exhausted jobs as dead letters.
type Worker struct {
	queue       Queue
	sink        Sink
	retryPolicy RetryPolicy
	popTimeout  time.Duration
	logger      *zerolog.Logger
}

func NewWorker(queue Queue, sink Sink, retry RetryPolicy, popTimeout time.Duration, logger *zerolog.Logger) *Worker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if popTimeout <= 0 {
		popTimeout = time.Second
	}
	return &Worker{
		queue:       queue,
		sink:        sink,
		retryPolicy: retry,
		popTimeout:  popTimeout,
		logger:      logger,
	}
}

// Start runs the delivery loop until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info().Msg("notification worker started")
	defer w.logger.Info().Msg("notification worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.ProcessOne(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error().Err(err).Msg("notification queue pop error")
			select {
			case <-ctx.Done():
			case <-time.After(w.popTimeout):
			}
		}
	}
}

// ProcessOne waits for a single job and handles it. It reports whether a job was found.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	job, err := w.queue.Pop(ctx, w.popTimeout)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.handle(ctx, *job)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, job Job) {
	err := w.sink.Deliver(ctx, job)
	if err == nil {
		metrics.IncNotification(job.Type, "delivered")
		return
	}

	job.Attempts++
	job.LastError = err.Error()
	if w.retryPolicy.Exhausted(job.Attempts) {
		metrics.IncNotification(job.Type, "dead")
		w.logger.Error().Err(err).Str("job_id", job.ID).Int("attempts", job.Attempts).Msg("notification parked as dead letter")
		if dlErr := w.queue.DeadLetter(context.WithoutCancel(ctx), job); dlErr != nil {
			w.logger.Error().Err(dlErr).Str("job_id", job.ID).Msg("dead letter push error")
		}
		return
	}

	delay := w.retryPolicy.NextDelay(job.Attempts)
	metrics.IncNotification(job.Type, "retried")
	w.logger.Warn().Err(err).Str("job_id", job.ID).Dur("retry_in", delay).Msg("notification delivery failed")

	time.AfterFunc(delay, func() {
		if pushErr := w.queue.Push(context.WithoutCancel(ctx), job); pushErr != nil {
			w.logger.Error().Err(pushErr).Str("job_id", job.ID).Msg("notification requeue error")
		}
	})
}
