package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"supperclub/internal/models"

	"github.com/rs/zerolog"
)

// SQLRecorder appends audit entries to the audit_log table. Entries are never updated.
type SQLRecorder struct {
	db     *sql.DB
	logger *zerolog.Logger
	now    func() time.Time
}

func NewSQLRecorder(db *sql.DB, logger *zerolog.Logger) (*SQLRecorder, error) {
	if db == nil {
		return nil, errors.New("audit database is nil")
	}
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create audit tables: %w", err)
	}
	return &SQLRecorder{db: db, logger: logger, now: time.Now}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS audit_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            actor_id TEXT NOT NULL,
            actor_role TEXT NOT NULL DEFAULT '',
            action TEXT NOT NULL,
            target_type TEXT NOT NULL,
            target_id TEXT NOT NULL,
            metadata TEXT,
            created_at DATETIME NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_log(target_type, target_id)`,
	}
	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (r *SQLRecorder) Record(ctx context.Context, entry models.AuditEntry) error {
	if entry.Action == "" || entry.TargetID == "" {
		return errors.New("audit entry needs an action and a target")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	var metadata sql.NullString
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode audit metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	query := `INSERT INTO audit_log (actor_id, actor_role, action, target_type, target_id, metadata, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		entry.ActorID,
		entry.ActorRole,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	r.logger.Debug().
		Str("actor_id", entry.ActorID).
		Str("action", entry.Action).
		Str("target", entry.TargetType+"/"+entry.TargetID).
		Msg("audit entry recorded")
	return nil
}

// ListByTarget returns the entries recorded against one target, oldest first.
func (r *SQLRecorder) ListByTarget(ctx context.Context, targetType, targetID string) ([]models.AuditEntry, error) {
	query := `SELECT id, actor_id, actor_role, action, target_type, target_id, metadata, created_at
              FROM audit_log WHERE target_type = ? AND target_id = ? ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var metadata sql.NullString
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorRole, &e.Action, &e.TargetType, &e.TargetID, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if metadata.Valid {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// NopRecorder discards entries. Used when auditing is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, models.AuditEntry) error { return nil }
