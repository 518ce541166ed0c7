package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"supperclub/internal/domain"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// SQLiteStore keeps documents as JSON rows keyed by collection and key.
// Write transactions take the database write lock at BEGIN, so a transaction's
// reads stay valid until it commits.
type SQLiteStore struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewSQLiteStore(path string, logger *zerolog.Logger) (*SQLiteStore, error) {
	inMemory := path == ":memory:"
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if logger != nil {
		logger.Info().Str("path", path).Msg("ledger store initialized")
	}
	return &SQLiteStore{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            collection TEXT NOT NULL,
            key TEXT NOT NULL,
            data TEXT NOT NULL,
            version INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (collection, key)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, collection, key string, dst any) error {
	var data string
	err := s.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND key = ?`, collection, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, key, domain.ErrDocNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get document %s/%s: %w", collection, key, err)
	}
	return decodeDoc([]byte(data), dst)
}

func (s *SQLiteStore) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	rows, err := s.QueryContext(ctx, `SELECT data FROM documents WHERE collection = ? ORDER BY created_at, key`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan %s document: %w", collection, err)
		}
		docs = append(docs, json.RawMessage(data))
	}
	return docs, rows.Err()
}

// RunTransaction runs fn inside one SQL transaction. Once started it is not
// cancelled by ctx; callers may only discard the result.
func (s *SQLiteStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx domain.Txn) error) error {
	ctx = context.WithoutCancel(ctx)

	sqlTx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	txn := &sqliteTxn{ctx: ctx, tx: sqlTx, writes: newWriteSet()}
	if err := fn(ctx, txn); err != nil {
		return err
	}

	if err := txn.flush(); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqliteTxn struct {
	ctx    context.Context
	tx     *sql.Tx
	writes *writeSet
}

func (t *sqliteTxn) load(k docKey) ([]byte, bool, error) {
	if pw, ok := t.writes.get(k); ok {
		return pw.data, !pw.deleted, nil
	}
	var data string
	err := t.tx.QueryRowContext(t.ctx, `SELECT data FROM documents WHERE collection = ? AND key = ?`, k.collection, k.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s in tx: %w", k, err)
	}
	return []byte(data), true, nil
}

func (t *sqliteTxn) Get(collection, key string, dst any) error {
	k := docKey{collection, key}
	data, ok, err := t.load(k)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", k, domain.ErrDocNotFound)
	}
	return decodeDoc(data, dst)
}

func (t *sqliteTxn) Create(collection, key string, doc any) error {
	k := docKey{collection, key}
	_, exists, err := t.load(k)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", k, domain.ErrDocExists)
	}
	return t.Set(collection, key, doc)
}

func (t *sqliteTxn) Set(collection, key string, doc any) error {
	data, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	t.writes.put(docKey{collection, key}, pendingWrite{data: data})
	return nil
}

func (t *sqliteTxn) Update(collection, key string, fields map[string]any) error {
	k := docKey{collection, key}
	data, ok, err := t.load(k)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", k, domain.ErrDocNotFound)
	}
	merged, err := mergeFields(data, fields)
	if err != nil {
		return err
	}
	t.writes.put(k, pendingWrite{data: merged})
	return nil
}

func (t *sqliteTxn) Increment(collection, key, field string, delta int64) error {
	k := docKey{collection, key}
	data, ok, err := t.load(k)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", k, domain.ErrDocNotFound)
	}
	updated, err := incrementField(data, field, delta)
	if err != nil {
		return err
	}
	t.writes.put(k, pendingWrite{data: updated})
	return nil
}

func (t *sqliteTxn) Delete(collection, key string) error {
	t.writes.put(docKey{collection, key}, pendingWrite{deleted: true})
	return nil
}

func (t *sqliteTxn) flush() error {
	now := time.Now()
	for _, k := range t.writes.order {
		pw := t.writes.writes[k]
		if pw.deleted {
			if _, err := t.tx.ExecContext(t.ctx, `DELETE FROM documents WHERE collection = ? AND key = ?`, k.collection, k.key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", k, err)
			}
			continue
		}
		query := `INSERT INTO documents (collection, key, data, version, created_at, updated_at)
                  VALUES (?, ?, ?, 1, ?, ?)
                  ON CONFLICT(collection, key) DO UPDATE SET
                    data = excluded.data,
                    version = documents.version + 1,
                    updated_at = excluded.updated_at`
		if _, err := t.tx.ExecContext(t.ctx, query, k.collection, k.key, string(pw.data), now, now); err != nil {
			return fmt.Errorf("failed to write %s: %w", k, err)
		}
	}
	return nil
}
