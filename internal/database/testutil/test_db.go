package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/dbcache/internal/database"
)

// DefaultTable is the cache table migrated by WithCacheTable when no name is given.
const DefaultTable = "cache"

var dbCounter atomic.Int64

// TestDBOption customises the behaviour of MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	tables []string
}

// WithCacheTable migrates a cache table named table (DefaultTable when empty).
func WithCacheTable(table string) TestDBOption {
	return func(cfg *testDBConfig) {
		if table == "" {
			table = DefaultTable
		}
		cfg.tables = append(cfg.tables, table)
	}
}

// MustOpenTestDB opens a private in-memory SQLite database for the calling test.
// The returned connection is automatically closed via t.Cleanup.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	cfg := testDBConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))

	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1})
	require.NoError(t, err)

	for _, table := range cfg.tables {
		require.NoError(t, database.MigrateCache(db, table))
	}

	t.Cleanup(func() {
		_ = database.Close(db)
	})

	return db
}
