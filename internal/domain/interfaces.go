package domain

import (
	"context"
	"encoding/json"
	"errors"

	"supperclub/internal/models"
)

var (
	// ErrDocNotFound is returned by stores when collection/key holds no document.
	ErrDocNotFound = errors.New("document not found")
	// ErrDocExists is returned by Txn.Create when the key is taken.
	ErrDocExists = errors.New("document already exists")
	// ErrCommitConflict is returned when a transaction lost a race on a document it read.
	ErrCommitConflict = errors.New("transaction conflict")
	// ErrDocMalformed is returned when a stored document cannot be decoded.
	ErrDocMalformed = errors.New("malformed document")
)

// Store is the transactional document store every operation commits through.
type Store interface {
	Get(ctx context.Context, collection, key string, dst any) error
	List(ctx context.Context, collection string) ([]json.RawMessage, error)
	// RunTransaction applies every write made through tx atomically iff fn returns nil.
	// The function may be invoked more than once; it must not have side effects outside tx.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Txn) error) error
	Close() error
}

// Txn is a transaction handle. Reads observe the transaction's own pending writes.
type Txn interface {
	Get(collection, key string, dst any) error
	Create(collection, key string, doc any) error
	Set(collection, key string, doc any) error
	Update(collection, key string, fields map[string]any) error
	Increment(collection, key, field string, delta int64) error
	Delete(collection, key string) error
}

// Notifier enqueues a user-facing notification. Fire-and-forget from the caller's view.
type Notifier interface {
	Notify(ctx context.Context, userID, notificationType, entityID string) error
}

// Auditor appends an audit entry, best effort.
type Auditor interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
