package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"supperclub/internal/domain"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Op      string `json:"op,omitempty"`
	Entity  string `json:"entity,omitempty"`
	ID      string `json:"id,omitempty"`
	Rule    string `json:"rule,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorBody{Error: code, Message: message})
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindInvalidStateTransition:
		return http.StatusConflict
	case domain.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case domain.KindStoreCommitFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError renders err with its structured fields. Store causes are
// never echoed back to the caller.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	body := errorBody{Error: string(kind)}
	if kind == "" {
		body.Error = "internal"
	}

	var de *domain.Error
	if errors.As(err, &de) {
		body.Op = de.Op
		body.Entity = de.Entity
		body.ID = de.ID
		body.Rule = de.Rule
	}
	writeJSON(w, statusFor(kind), body)
}
