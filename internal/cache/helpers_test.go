package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/dbcache/internal/database/testutil"
	"github.com/charlesng35/dbcache/internal/encryption"
	"github.com/charlesng35/dbcache/internal/models"
	"github.com/charlesng35/dbcache/pkg/codec"
	"github.com/charlesng35/dbcache/pkg/crypto"
)

var testNow = time.Unix(1_700_000_000, 0)

func fixedClock() time.Time { return testNow }

func newTestCipher[V any](t *testing.T) *encryption.Encrypter[V] {
	t.Helper()

	enc, err := encryption.New[V](
		[]byte("test-master-key"),
		codec.Msgpack[V]{},
		encryption.WithArgon2Parameters(crypto.Argon2Parameters{Time: 1, Memory: 1024, Threads: 1, KeyLength: 32}),
	)
	require.NoError(t, err)
	return enc
}

func newSQLStore(t *testing.T, prefix string) (*BatchStore[string], *gorm.DB) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithCacheTable(DefaultTable))
	return newSQLStoreOn(t, db, prefix), db
}

func newSQLStoreOn(t *testing.T, db *gorm.DB, prefix string) *BatchStore[string] {
	t.Helper()

	rows, err := NewDatabaseRows(db, DefaultTable)
	require.NoError(t, err)

	store, err := NewBatchStore[string](rows, newTestCipher[string](t), Config{Prefix: prefix, Now: fixedClock})
	require.NoError(t, err)
	return store
}

func countRows(t *testing.T, db *gorm.DB, keys ...string) int64 {
	t.Helper()

	var count int64
	tx := db.Table(DefaultTable)
	if len(keys) > 0 {
		tx = tx.Where(map[string]interface{}{"key": keys})
	}
	require.NoError(t, tx.Count(&count).Error)
	return count
}

// memoryRows is an in-process RowStore that records calls.
type memoryRows struct {
	mu      sync.Mutex
	rows    map[string]models.CacheEntry
	selects int
	inserts int
	deletes [][]string

	selectErr error
	insertErr error
	deleteErr error
	// skipDeletes makes DeleteWhereKeyIn a no-op to simulate an interleaved writer.
	skipDeletes bool
}

func newMemoryRows() *memoryRows {
	return &memoryRows{rows: map[string]models.CacheEntry{}}
}

func (m *memoryRows) SelectWhereKeyIn(_ context.Context, keys []string) ([]models.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.selects++
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	var out []models.CacheEntry
	for _, key := range keys {
		if row, ok := m.rows[key]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryRows) Insert(_ context.Context, rows []models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	var dup []string
	for _, row := range rows {
		if _, ok := m.rows[row.Key]; ok {
			dup = append(dup, row.Key)
		}
	}
	if len(dup) > 0 {
		return &ConstraintError{Keys: dup, Err: errors.New("exists")}
	}
	for _, row := range rows {
		m.rows[row.Key] = row
	}
	return nil
}

func (m *memoryRows) DeleteWhereKeyIn(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	m.deletes = append(m.deletes, sorted)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if m.skipDeletes {
		return nil
	}
	for _, key := range keys {
		delete(m.rows, key)
	}
	return nil
}
