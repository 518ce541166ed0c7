package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"supperclub/internal/domain"
	"supperclub/internal/models"
)

// InboxSink delivers notifications into the recipients' in-app inbox.
type InboxSink struct {
	store domain.Store
}

func NewInboxSink(store domain.Store) *InboxSink {
	return &InboxSink{store: store}
}

// Deliver writes the job as an inbox entry. Redelivery of the same job is a no-op.
func (s *InboxSink) Deliver(ctx context.Context, job Job) error {
	entry := models.Notification{
		ID:        job.ID,
		UserID:    job.UserID,
		Type:      job.Type,
		EntityID:  job.EntityID,
		Attempts:  job.Attempts + 1,
		CreatedAt: job.EnqueuedAt,
	}
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		err := tx.Create(models.CollectionNotifications, job.ID, entry)
		if errors.Is(err, domain.ErrDocExists) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to deliver notification %s: %w", job.ID, err)
	}
	return nil
}

// List returns userID's inbox, newest first.
func (s *InboxSink) List(ctx context.Context, userID string) ([]models.Notification, error) {
	docs, err := s.store.List(ctx, models.CollectionNotifications)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	var out []models.Notification
	for _, doc := range docs {
		var n models.Notification
		if err := json.Unmarshal(doc, &n); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
