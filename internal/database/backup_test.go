package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"agenda/internal/config"
	"agenda/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "source.db")
	storagePath := filepath.Join(tempDir, "backups")

	logger := zerolog.Nop()
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SyncCatalog(context.Background(), &models.Catalog{
		Professionals: []models.Professional{{ID: 1, Name: "Ana", IsActive: true}},
	}))

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	s := NewBackupService(db, cfg, &logger)

	var backupPath string
	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)
		backupPath = path
		assert.FileExists(t, path)

		files, err := os.ReadDir(storagePath)
		assert.NoError(t, err)
		assert.Len(t, files, 1)

		copied, err := NewDB(path, &logger)
		require.NoError(t, err)
		defer copied.Close()
		pros, err := copied.ListActiveProfessionals(context.Background())
		require.NoError(t, err)
		assert.Len(t, pros, 1)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, "backup_old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		unrelated := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())

		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, unrelated)
		assert.FileExists(t, backupPath)
	})
}

func TestBackupService_InMemory(t *testing.T) {
	db := setupTestDB(t)
	logger := zerolog.Nop()
	s := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: t.TempDir()}, &logger)

	_, err := s.PerformBackup(context.Background())
	assert.Error(t, err)
}

func TestBackupService_Disabled(t *testing.T) {
	db := setupTestDB(t)
	logger := zerolog.Nop()
	s := NewBackupService(db, config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}
