package ledger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"supperclub/internal/config"
	"supperclub/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService_PerformBackup(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(io.Discard)

	store, err := NewSQLiteStore(filepath.Join(dir, "ledger.db"), &logger)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.RunTransaction(ctx, func(_ context.Context, tx domain.Txn) error {
		return tx.Create("coupons", "SAVE10", map[string]any{"code": "SAVE10", "timesUsed": 3})
	}))

	svc := NewBackupService(store, config.BackupConfig{Enabled: true, StoragePath: filepath.Join(dir, "backups")}, &logger)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ledger_20261016_093000.db", filepath.Base(path))

	restored, err := NewSQLiteStore(path, &logger)
	require.NoError(t, err)
	defer restored.Close()

	var doc map[string]any
	require.NoError(t, restored.Get(ctx, "coupons", "SAVE10", &doc))
	assert.Equal(t, float64(3), doc["timesUsed"])
}

func TestBackupService_CleanupOldBackups(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(io.Discard)

	oldFile := filepath.Join(dir, "ledger_old.db")
	newFile := filepath.Join(dir, "ledger_new.db")
	otherFile := filepath.Join(dir, "notes.txt")
	for _, f := range []string{oldFile, newFile, otherFile} {
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o600))
	}
	past := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(oldFile, past, past))
	require.NoError(t, os.Chtimes(otherFile, past, past))

	svc := NewBackupService(nil, config.BackupConfig{Enabled: true, StoragePath: dir, RetentionDays: 7}, &logger)
	svc.CleanupOldBackups()

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)
	assert.FileExists(t, otherFile)
}

func TestBackupService_Disabled(t *testing.T) {
	logger := zerolog.New(io.Discard)
	svc := NewBackupService(nil, config.BackupConfig{}, &logger)

	done := make(chan struct{})
	go func() {
		svc.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled backup service should return immediately")
	}
}
