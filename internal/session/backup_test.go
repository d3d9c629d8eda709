package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barberclub/internal/config"
)

func TestBackupCopiesDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sessions.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("sqlite-bytes"), 0o644))

	logger := zerolog.Nop()
	cfg := config.BackupConfig{
		Enabled:     true,
		StoragePath: filepath.Join(dir, "backups"),
	}
	svc := NewBackupService(dbPath, cfg, &logger)
	require.NoError(t, svc.Backup())

	entries, err := os.ReadDir(cfg.StoragePath)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	copied, err := os.ReadFile(filepath.Join(cfg.StoragePath, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, []byte("sqlite-bytes"), copied)
}

func TestBackupMissingSource(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.Nop()
	svc := NewBackupService(filepath.Join(dir, "absent.db"), config.BackupConfig{
		Enabled:     true,
		StoragePath: filepath.Join(dir, "backups"),
	}, &logger)

	assert.Error(t, svc.Backup())
}
