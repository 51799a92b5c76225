package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dbcache/internal/models"
)

func TestPutManyThenGetManyRoundTrip(t *testing.T) {
	store, _ := newSQLStore(t, "app:")
	ctx := context.Background()

	items := map[string]string{"a": "1", "b": "2", "long": "a somewhat longer value"}
	require.NoError(t, store.PutMany(ctx, items, 10))

	results, err := store.GetMany(ctx, []string{"a", "b", "long"})
	require.NoError(t, err)
	require.Equal(t, items, results.Hits())
	require.Empty(t, results.Missing())
}

func TestGetManyScenario(t *testing.T) {
	store, _ := newSQLStore(t, "app:")
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"a": "1", "b": "2"}, 10))

	results, err := store.GetMany(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, results.Keys())
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, results.Hits())
	require.Equal(t, []string{"c"}, results.Missing())

	forgotten, err := store.ForgetMany(ctx, []string{"a"})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"a": true}, forgotten)

	results, err = store.GetMany(ctx, []string{"a", "b"})
	require.NoError(t, err)
	_, found := results.Get("a")
	require.False(t, found)
	value, found := results.Get("b")
	require.True(t, found)
	require.Equal(t, "2", value)
}

func TestForgetManyThenGetManyIsAbsent(t *testing.T) {
	store, db := newSQLStore(t, "app:")
	ctx := context.Background()

	keys := []string{"x", "y", "z"}
	require.NoError(t, store.PutMany(ctx, map[string]string{"x": "1", "y": "2"}, 10))

	forgotten, err := store.ForgetMany(ctx, keys)
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"x": true, "y": true, "z": true}, forgotten)

	results, err := store.GetMany(ctx, keys)
	require.NoError(t, err)
	require.Equal(t, keys, results.Missing())
	require.Zero(t, countRows(t, db))
}

func TestForgetManyIsIdempotent(t *testing.T) {
	store, db := newSQLStore(t, "app:")
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"a": "1"}, 10))

	first, err := store.ForgetMany(ctx, []string{"a", "missing"})
	require.NoError(t, err)
	second, err := store.ForgetMany(ctx, []string{"a", "missing"})
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Zero(t, countRows(t, db))
}

func TestPutManyNonPositiveTTLIsImmediatelyExpired(t *testing.T) {
	for _, minutes := range []int{0, -5} {
		store, db := newSQLStore(t, "app:")
		ctx := context.Background()

		require.NoError(t, store.PutMany(ctx, map[string]string{"a": "1", "b": "2"}, minutes))
		require.Equal(t, int64(2), countRows(t, db, "app:a", "app:b"))

		results, err := store.GetMany(ctx, []string{"a", "b"})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, results.Missing())
		require.Zero(t, countRows(t, db, "app:a", "app:b"), "lazy sweep should delete expired rows")
	}
}

func TestPutManyUsesSharedExpiration(t *testing.T) {
	store, db := newSQLStore(t, "app:")
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"a": "1", "b": "2"}, 15))

	var rows []models.CacheEntry
	require.NoError(t, db.Table(DefaultTable).Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, testNow.Unix()+15*60, row.Expiration)
		require.NotEqual(t, "1", row.Value)
	}
}

func TestPutManyReplacesExistingRows(t *testing.T) {
	store, db := newSQLStore(t, "app:")
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"a": "old"}, 10))
	require.NoError(t, store.PutMany(ctx, map[string]string{"a": "new"}, 20))

	require.Equal(t, int64(1), countRows(t, db, "app:a"))
	results, err := store.GetMany(ctx, []string{"a"})
	require.NoError(t, err)
	value, _ := results.Get("a")
	require.Equal(t, "new", value)
}

func TestForeverManyMatchesForeverMinutes(t *testing.T) {
	store, db := newSQLStore(t, "app:")
	ctx := context.Background()

	require.NoError(t, store.ForeverMany(ctx, map[string]string{"f": "v"}))
	require.NoError(t, store.PutMany(ctx, map[string]string{"p": "v"}, ForeverMinutes))

	var forever, put models.CacheEntry
	require.NoError(t, db.Table(DefaultTable).Take(&forever, map[string]interface{}{"key": "app:f"}).Error)
	require.NoError(t, db.Table(DefaultTable).Take(&put, map[string]interface{}{"key": "app:p"}).Error)
	require.Equal(t, put.Expiration, forever.Expiration)
	require.Equal(t, testNow.Unix()+int64(ForeverMinutes)*60, forever.Expiration)
}

func TestGetManyPurgesStaleRow(t *testing.T) {
	store, db := newSQLStore(t, "app:")
	ctx := context.Background()

	payload, err := newTestCipher[string](t).Encrypt("stale")
	require.NoError(t, err)
	require.NoError(t, db.Table(DefaultTable).Create(&models.CacheEntry{
		Key:        "app:stale",
		Value:      payload,
		Expiration: testNow.Unix() - 1,
	}).Error)

	results, err := store.GetMany(ctx, []string{"stale"})
	require.NoError(t, err)
	_, found := results.Get("stale")
	require.False(t, found)
	require.Zero(t, countRows(t, db, "app:stale"))
}

func TestGetManyTreatsExpirationEqualToNowAsExpired(t *testing.T) {
	rows := newMemoryRows()
	cipher := newTestCipher[string](t)
	payload, err := cipher.Encrypt("edge")
	require.NoError(t, err)
	rows.rows["edge"] = models.CacheEntry{Key: "edge", Value: payload, Expiration: testNow.Unix()}

	store, err := NewBatchStore[string](rows, cipher, Config{Now: fixedClock})
	require.NoError(t, err)

	results, err := store.GetMany(context.Background(), []string{"edge"})
	require.NoError(t, err)
	require.Equal(t, []string{"edge"}, results.Missing())
	require.Empty(t, rows.rows)
}

func TestGetManyFailsOnCorruptCiphertext(t *testing.T) {
	store, db := newSQLStore(t, "app:")
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"good": "1"}, 10))
	require.NoError(t, db.Table(DefaultTable).Create(&models.CacheEntry{
		Key:        "app:bad",
		Value:      "this is not ciphertext",
		Expiration: testNow.Unix() + 600,
	}).Error)

	results, err := store.GetMany(ctx, []string{"good", "bad"})
	require.Nil(t, results)
	require.ErrorIs(t, err, ErrDecryption)

	var decErr *DecryptionError
	require.ErrorAs(t, err, &decErr)
	require.Equal(t, "bad", decErr.Key)
}

func TestGetManyPreservesOrderAndCollapsesDuplicates(t *testing.T) {
	rows := newMemoryRows()
	store, err := NewBatchStore[string](rows, newTestCipher[string](t), Config{Prefix: "p:", Now: fixedClock})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"b": "2", "a": "1"}, 5))

	results, err := store.GetMany(ctx, []string{"c", "a", "c", "b", "a"})
	require.NoError(t, err)
	require.Equal(t, 3, results.Len())
	require.Equal(t, []string{"c", "a", "b"}, results.Keys())

	all := results.All()
	require.Equal(t, Result[string]{Key: "c"}, all[0])
	require.Equal(t, Result[string]{Key: "a", Value: "1", Found: true}, all[1])
}

func TestGetManyDeletesExpiredKeysInOneBatch(t *testing.T) {
	rows := newMemoryRows()
	cipher := newTestCipher[string](t)
	for _, key := range []string{"x", "y"} {
		payload, err := cipher.Encrypt(key)
		require.NoError(t, err)
		rows.rows["p:"+key] = models.CacheEntry{Key: "p:" + key, Value: payload, Expiration: testNow.Unix() - 10}
	}

	store, err := NewBatchStore[string](rows, cipher, Config{Prefix: "p:", Now: fixedClock})
	require.NoError(t, err)

	_, err = store.GetMany(context.Background(), []string{"x", "y", "x", "missing"})
	require.NoError(t, err)
	require.Equal(t, 1, rows.selects)
	require.Equal(t, [][]string{{"p:x", "p:y"}}, rows.deletes)
}

func TestClassifyReportsFoundButExpiredOnly(t *testing.T) {
	cipher := newTestCipher[string](t)
	payload, err := cipher.Encrypt("live")
	require.NoError(t, err)

	store, err := NewBatchStore[string](newMemoryRows(), cipher, Config{Prefix: "p:", Now: fixedClock})
	require.NoError(t, err)

	rows := []models.CacheEntry{
		{Key: "p:live", Value: payload, Expiration: testNow.Unix() + 1},
		{Key: "p:old", Value: "ignored", Expiration: testNow.Unix() - 1},
	}
	results, expired, err := store.classify([]string{"live", "old", "none"}, rows, testNow.Unix())
	require.NoError(t, err)
	require.Equal(t, []string{"old"}, expired)
	require.Equal(t, map[string]string{"live": "live"}, results.Hits())
	require.Equal(t, []string{"old", "none"}, results.Missing())
}

func TestPrefixIsolatesNamespaces(t *testing.T) {
	store, db := newSQLStore(t, "one:")
	other := newSQLStoreOn(t, db, "two:")
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"k": "from-one"}, 10))
	require.NoError(t, other.PutMany(ctx, map[string]string{"k": "from-two"}, 10))
	require.Equal(t, int64(2), countRows(t, db))

	results, err := store.GetMany(ctx, []string{"k"})
	require.NoError(t, err)
	value, _ := results.Get("k")
	require.Equal(t, "from-one", value)

	_, err = other.ForgetMany(ctx, []string{"k"})
	require.NoError(t, err)
	require.Equal(t, int64(1), countRows(t, db, "one:k"))
}

func TestEmptyInputsSkipRowStore(t *testing.T) {
	rows := newMemoryRows()
	store, err := NewBatchStore[string](rows, newTestCipher[string](t), Config{})
	require.NoError(t, err)
	ctx := context.Background()

	results, err := store.GetMany(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, results.Len())

	forgotten, err := store.ForgetMany(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, forgotten)

	require.NoError(t, store.PutMany(ctx, map[string]string{}, 10))

	require.Zero(t, rows.selects)
	require.Zero(t, rows.inserts)
	require.Empty(t, rows.deletes)
}

func TestPutManySurfacesConstraintError(t *testing.T) {
	rows := newMemoryRows()
	store, err := NewBatchStore[string](rows, newTestCipher[string](t), Config{Now: fixedClock})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"a": "1"}, 10))

	rows.skipDeletes = true
	err = store.PutMany(ctx, map[string]string{"a": "2"}, 10)
	require.ErrorIs(t, err, ErrConstraint)

	var constraint *ConstraintError
	require.ErrorAs(t, err, &constraint)
	require.Equal(t, []string{"a"}, constraint.Keys)
}

func TestRowStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("connection reset")
	ctx := context.Background()

	rows := newMemoryRows()
	rows.selectErr = boom
	store, err := NewBatchStore[string](rows, newTestCipher[string](t), Config{Now: fixedClock})
	require.NoError(t, err)
	_, err = store.GetMany(ctx, []string{"a"})
	require.ErrorIs(t, err, boom)

	rows.selectErr = nil
	rows.deleteErr = boom
	_, err = store.ForgetMany(ctx, []string{"a"})
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, store.PutMany(ctx, map[string]string{"a": "1"}, 1), boom)
	require.Zero(t, rows.inserts, "insert must not run after a failed delete")

	rows.deleteErr = nil
	rows.insertErr = boom
	require.ErrorIs(t, store.PutMany(ctx, map[string]string{"a": "1"}, 1), boom)
}

type failingCipher struct{ err error }

func (f failingCipher) Encrypt(string) (string, error) { return "", f.err }
func (f failingCipher) Decrypt(string) (string, error) { return "", f.err }

func TestPutManyFailsOnEncryptionError(t *testing.T) {
	rows := newMemoryRows()
	boom := errors.New("unsupported value")
	store, err := NewBatchStore[string](rows, failingCipher{err: boom}, Config{})
	require.NoError(t, err)

	err = store.PutMany(context.Background(), map[string]string{"a": "1"}, 10)
	var encErr *EncryptionError
	require.ErrorAs(t, err, &encErr)
	require.Equal(t, "a", encErr.Key)
	require.ErrorIs(t, err, boom)
	require.Empty(t, rows.deletes)
	require.Zero(t, rows.inserts)
}

func TestNewBatchStoreValidatesDependencies(t *testing.T) {
	_, err := NewBatchStore[string](nil, newTestCipher[string](t), Config{})
	require.Error(t, err)

	_, err = NewBatchStore[string](newMemoryRows(), nil, Config{})
	require.Error(t, err)

	store, err := NewBatchStore[string](newMemoryRows(), newTestCipher[string](t), Config{Prefix: "x:"})
	require.NoError(t, err)
	require.Equal(t, "x:", store.Prefix())
	require.WithinDuration(t, time.Now(), store.now(), time.Minute)
}

func TestPruneRemovesOnlyExpiredRowsUnderPrefix(t *testing.T) {
	store, db := newSQLStore(t, "app:")
	other := newSQLStoreOn(t, db, "other:")
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"old1": "1", "old2": "2"}, -1))
	require.NoError(t, store.PutMany(ctx, map[string]string{"fresh": "3"}, 10))
	require.NoError(t, other.PutMany(ctx, map[string]string{"old": "4"}, -1))

	removed, err := store.Prune(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)
	require.Equal(t, int64(1), countRows(t, db, "app:fresh"))
	require.Equal(t, int64(1), countRows(t, db, "other:old"))
}

func TestFlushRemovesOnlyPrefix(t *testing.T) {
	store, db := newSQLStore(t, "a_%:")
	other := newSQLStoreOn(t, db, "ab%:")
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"k1": "1", "k2": "2"}, 10))
	require.NoError(t, other.PutMany(ctx, map[string]string{"k1": "1"}, 10))

	removed, err := store.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)
	require.Equal(t, int64(1), countRows(t, db), "LIKE wildcards in the prefix must be escaped")
}

func TestFlushWithoutPrefixEmptiesTable(t *testing.T) {
	store, db := newSQLStore(t, "")
	ctx := context.Background()

	require.NoError(t, store.PutMany(ctx, map[string]string{"a": "1", "b": "2"}, 10))

	removed, err := store.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)
	require.Zero(t, countRows(t, db))
}

func TestPruneUnsupportedWithoutSweeper(t *testing.T) {
	store, err := NewBatchStore[string](newMemoryRows(), newTestCipher[string](t), Config{})
	require.NoError(t, err)

	_, err = store.Prune(context.Background())
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = store.Flush(context.Background())
	require.ErrorIs(t, err, ErrUnsupported)
}
