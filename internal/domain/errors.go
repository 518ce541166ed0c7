package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every error the engine surfaces to its callers.
type Kind string

const (
	KindNotFound               Kind = "not_found"
	KindPermissionDenied       Kind = "permission_denied"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindValidationFailed       Kind = "validation_failed"
	KindStoreCommitFailed      Kind = "store_commit_failed"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrPermissionDenied       = errors.New("permission denied")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrValidationFailed       = errors.New("validation failed")
	ErrStoreCommitFailed      = errors.New("store commit failed")
)

var sentinels = map[Kind]error{
	KindNotFound:               ErrNotFound,
	KindPermissionDenied:       ErrPermissionDenied,
	KindInvalidStateTransition: ErrInvalidStateTransition,
	KindValidationFailed:       ErrValidationFailed,
	KindStoreCommitFailed:      ErrStoreCommitFailed,
}

// Error is the structured error returned by every mutating operation.
// It carries enough context for a caller to render its own message.
type Error struct {
	Kind   Kind
	Op     string
	Entity string
	ID     string
	Rule   string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(sentinels[e.Kind].Error())
	if e.Entity != "" {
		fmt.Fprintf(&b, " (%s %s)", e.Entity, e.ID)
	}
	if e.Rule != "" {
		b.WriteString(": ")
		b.WriteString(e.Rule)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func NotFound(op, entity, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Entity: entity, ID: id}
}

func PermissionDenied(op, entity, id, rule string) *Error {
	return &Error{Kind: KindPermissionDenied, Op: op, Entity: entity, ID: id, Rule: rule}
}

func InvalidTransition(op, entity, id, from, to string) *Error {
	return &Error{
		Kind:   KindInvalidStateTransition,
		Op:     op,
		Entity: entity,
		ID:     id,
		Rule:   fmt.Sprintf("%s -> %s not allowed", from, to),
	}
}

func Validation(op, entity, id, rule string) *Error {
	return &Error{Kind: KindValidationFailed, Op: op, Entity: entity, ID: id, Rule: rule}
}

func CommitFailed(op, entity, id string, cause error) *Error {
	return &Error{Kind: KindStoreCommitFailed, Op: op, Entity: entity, ID: id, Err: cause}
}

// KindOf returns the classification of err, or "" for foreign errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}
