package service

import (
	"context"
	"errors"

	"supperclub/internal/domain"
	"supperclub/internal/metrics"
	"supperclub/internal/models"

	"github.com/rs/zerolog"
)

// Hooks runs the best-effort work that follows a committed operation.
// Failures are logged and never change the operation's result.
type Hooks struct {
	notifier domain.Notifier
	auditor  domain.Auditor
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewHooks(notifier domain.Notifier, auditor domain.Auditor, eventBus domain.EventPublisher, logger *zerolog.Logger) *Hooks {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hooks{
		notifier: notifier,
		auditor:  auditor,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (h *Hooks) notify(ctx context.Context, userID, notificationType, entityID string) {
	if h == nil || h.notifier == nil || userID == "" {
		return
	}
	if err := h.notifier.Notify(context.WithoutCancel(ctx), userID, notificationType, entityID); err != nil {
		h.logger.Error().Err(err).
			Str("user_id", userID).
			Str("type", notificationType).
			Str("entity_id", entityID).
			Msg("notify error")
	}
}

func (h *Hooks) audit(ctx context.Context, actor models.Actor, action, targetType, targetID string, metadata map[string]any) {
	if h == nil || h.auditor == nil {
		return
	}
	entry := models.AuditEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
	}
	if err := h.auditor.Record(context.WithoutCancel(ctx), entry); err != nil {
		h.logger.Error().Err(err).Str("action", action).Str("target_id", targetID).Msg("audit record error")
	}
}

func (h *Hooks) publish(eventType string, payload interface{}) {
	if h == nil || h.eventBus == nil {
		return
	}
	if err := h.eventBus.PublishJSON(eventType, payload); err != nil {
		h.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

// observe counts the outcome of op.
func observe(op string, err error) {
	if err == nil {
		metrics.IncOperation(op, "ok")
		return
	}
	outcome := string(domain.KindOf(err))
	if outcome == "" {
		outcome = "internal"
	}
	metrics.IncOperation(op, outcome)
}

// txError maps a RunTransaction failure to the error surfaced by op.
// Typed errors raised inside the transaction pass through; anything else
// means the store could not commit.
func txError(op, entity, id string, err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.CommitFailed(op, entity, id, err)
}

// readError maps a transactional read failure.
func readError(op, entity, id string, err error) error {
	if errors.Is(err, domain.ErrDocNotFound) {
		return domain.NotFound(op, entity, id)
	}
	return err
}
