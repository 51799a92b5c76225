package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/dbcache/internal/models"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t, Config{Driver: "sqlite", DSN: "file:open_memory?mode=memory&cache=shared"})

	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenSQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.sqlite")
	db := openTestDB(t, Config{Driver: "sqlite", Path: path})

	require.NoError(t, MigrateCache(db, "cache"))
	require.FileExists(t, path)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestMigrateCacheCreatesTable(t *testing.T) {
	db := openTestDB(t, Config{Driver: "sqlite", DSN: "file:migrate_cache?mode=memory&cache=shared"})

	require.NoError(t, MigrateCache(db, "app_cache"))
	require.True(t, db.Migrator().HasTable("app_cache"))

	entry := models.CacheEntry{Key: "k", Value: "v", Expiration: 42}
	require.NoError(t, db.Table("app_cache").Create(&entry).Error)

	duplicate := models.CacheEntry{Key: "k", Value: "other", Expiration: 43}
	err := db.Table("app_cache").Create(&duplicate).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestMigrateCacheValidatesInput(t *testing.T) {
	require.Error(t, MigrateCache(nil, "cache"))

	db := openTestDB(t, Config{Driver: "sqlite", DSN: "file:migrate_invalid?mode=memory&cache=shared"})
	require.Error(t, MigrateCache(db, "  "))
}

func openTestDB(t *testing.T, cfg Config) *gorm.DB {
	t.Helper()

	db, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = Close(db)
	})

	return db
}
