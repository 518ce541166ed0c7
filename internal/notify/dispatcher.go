package notify

import (
	"context"
	"errors"
	"time"

	"supperclub/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dispatcher enqueues notifications. It never delivers them itself.
type Dispatcher struct {
	queue  Queue
	logger *zerolog.Logger
}

func NewDispatcher(queue Queue, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{queue: queue, logger: logger}
}

func (d *Dispatcher) Notify(ctx context.Context, userID, notificationType, entityID string) error {
	if userID == "" {
		return errors.New("notification recipient is required")
	}

	job := Job{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       notificationType,
		EntityID:   entityID,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := d.queue.Push(ctx, job); err != nil {
		metrics.IncNotification(notificationType, "dropped")
		return err
	}

	metrics.IncNotification(notificationType, "queued")
	d.logger.Debug().
		Str("job_id", job.ID).
		Str("user_id", userID).
		Str("type", notificationType).
		Msg("notification queued")
	return nil
}
