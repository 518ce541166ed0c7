package models

import "time"

// Notification is a user-facing inbox entry produced after a committed operation.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	EntityID  string    `json:"entityId"`
	Read      bool      `json:"read"`
	Attempts  int       `json:"attempts,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditEntry records who did what to what.
type AuditEntry struct {
	ID         int64          `json:"id"`
	ActorID    string         `json:"actorId"`
	ActorRole  string         `json:"actorRole"`
	Action     string         `json:"action"`
	TargetType string         `json:"targetType"`
	TargetID   string         `json:"targetId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}
