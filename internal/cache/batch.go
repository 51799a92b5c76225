package cache

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/charlesng35/dbcache/internal/models"
)

// ForeverMinutes is the TTL used by ForeverMany. The table has no "never expires"
// representation, so forever means roughly ten years.
const ForeverMinutes = 5_256_000

// Config is the immutable configuration of a BatchStore.
type Config struct {
	// Prefix is prepended to every key before it reaches the row store.
	Prefix string
	// Now is the clock used for expiration. Defaults to time.Now.
	Now func() time.Time
}

// BatchStore implements multi-key cache operations over a RowStore. Every operation
// is atomic per key, not per batch: PutMany deletes then inserts without a transaction
// and GetMany deletes the expired rows it reads.
type BatchStore[V any] struct {
	rows   RowStore
	cipher Cipher[V]
	prefix string
	now    func() time.Time
}

var _ Batch[string] = (*BatchStore[string])(nil)

// NewBatchStore constructs a BatchStore.
func NewBatchStore[V any](rows RowStore, cipher Cipher[V], cfg Config) (*BatchStore[V], error) {
	if rows == nil {
		return nil, errors.New("cache: row store is required")
	}
	if cipher == nil {
		return nil, errors.New("cache: cipher is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &BatchStore[V]{
		rows:   rows,
		cipher: cipher,
		prefix: cfg.Prefix,
		now:    now,
	}, nil
}

// Prefix returns the namespace prefix applied to every key.
func (s *BatchStore[V]) Prefix() string { return s.prefix }

// GetMany fetches keys in a single query. Missing and expired keys are reported as
// not found; expired rows are deleted before GetMany returns. A live row that fails
// to decrypt fails the whole call with a *DecryptionError.
func (s *BatchStore[V]) GetMany(ctx context.Context, keys []string) (*Results[V], error) {
	if len(keys) == 0 {
		return newResults[V](0), nil
	}

	rows, err := s.rows.SelectWhereKeyIn(ctx, s.prefixKeys(keys))
	if err != nil {
		return nil, fmt.Errorf("cache: select rows: %w", err)
	}

	results, expired, err := s.classify(keys, rows, s.now().Unix())
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 {
		if _, err := s.ForgetMany(ctx, expired); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// classify resolves each requested key against the fetched rows. It returns the
// results and the keys whose rows were found but expired at now.
func (s *BatchStore[V]) classify(keys []string, rows []models.CacheEntry, now int64) (*Results[V], []string, error) {
	byKey := make(map[string]models.CacheEntry, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row
	}

	results := newResults[V](len(keys))
	var expired []string
	for _, key := range keys {
		if results.has(key) {
			continue
		}

		row, ok := byKey[s.prefix+key]
		if !ok || row.Expiration <= now {
			if ok {
				expired = append(expired, key)
			}
			results.set(Result[V]{Key: key})
			continue
		}

		value, err := s.cipher.Decrypt(row.Value)
		if err != nil {
			return nil, nil, &DecryptionError{Key: key, Err: err}
		}
		results.set(Result[V]{Key: key, Value: value, Found: true})
	}
	return results, expired, nil
}

// PutMany stores items with one expiration of now + minutes, replacing existing rows.
// Zero or negative minutes store already expired rows.
func (s *BatchStore[V]) PutMany(ctx context.Context, items map[string]V, minutes int) error {
	if len(items) == 0 {
		return nil
	}

	expiration := s.now().Unix() + int64(minutes)*60
	keys := slices.Sorted(maps.Keys(items))

	rows := make([]models.CacheEntry, 0, len(keys))
	for _, key := range keys {
		payload, err := s.cipher.Encrypt(items[key])
		if err != nil {
			return &EncryptionError{Key: key, Err: err}
		}
		rows = append(rows, models.CacheEntry{
			Key:        s.prefix + key,
			Value:      payload,
			Expiration: expiration,
		})
	}

	if _, err := s.ForgetMany(ctx, keys); err != nil {
		return err
	}
	if err := s.rows.Insert(ctx, rows); err != nil {
		return fmt.Errorf("cache: insert rows: %w", err)
	}
	return nil
}

// ForeverMany stores items for ForeverMinutes.
func (s *BatchStore[V]) ForeverMany(ctx context.Context, items map[string]V) error {
	return s.PutMany(ctx, items, ForeverMinutes)
}

// ForgetMany deletes keys in one batch. Every requested key maps to true whether
// or not a row existed.
func (s *BatchStore[V]) ForgetMany(ctx context.Context, keys []string) (map[string]bool, error) {
	forgotten := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return forgotten, nil
	}

	if err := s.rows.DeleteWhereKeyIn(ctx, s.prefixKeys(keys)); err != nil {
		return nil, fmt.Errorf("cache: delete rows: %w", err)
	}
	for _, key := range keys {
		forgotten[key] = true
	}
	return forgotten, nil
}

// Prune deletes every expired row under the prefix and reports how many were removed.
func (s *BatchStore[V]) Prune(ctx context.Context) (int64, error) {
	sweeper, ok := s.rows.(Sweeper)
	if !ok {
		return 0, ErrUnsupported
	}
	removed, err := sweeper.DeleteExpired(ctx, s.prefix, s.now().Unix())
	if err != nil {
		return removed, fmt.Errorf("cache: prune: %w", err)
	}
	return removed, nil
}

// Flush deletes every row under the prefix. Rows of other prefixes sharing the table are kept.
func (s *BatchStore[V]) Flush(ctx context.Context) (int64, error) {
	sweeper, ok := s.rows.(Sweeper)
	if !ok {
		return 0, ErrUnsupported
	}
	removed, err := sweeper.DeletePrefix(ctx, s.prefix)
	if err != nil {
		return removed, fmt.Errorf("cache: flush: %w", err)
	}
	return removed, nil
}

func (s *BatchStore[V]) prefixKeys(keys []string) []string {
	prefixed := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		prefixed = append(prefixed, s.prefix+key)
	}
	return prefixed
}
