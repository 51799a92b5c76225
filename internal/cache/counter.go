package cache

import (
	"context"
	"fmt"

	"github.com/charlesng35/dbcache/internal/models"
)

// Number is the set of value types Increment and Decrement accept.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Adjuster rewrites a live value while keeping its expiration.
type Adjuster[V any] interface {
	Adjust(ctx context.Context, key string, fn func(V) V) (V, bool, error)
}

var _ Adjuster[int64] = (*BatchStore[int64])(nil)

// Adjust replaces the live value under key with fn(current). The row keeps its
// expiration. A missing or expired key reports false and writes nothing. Like PutMany
// the rewrite deletes then inserts, so a concurrent writer can surface a *ConstraintError.
func (s *BatchStore[V]) Adjust(ctx context.Context, key string, fn func(V) V) (V, bool, error) {
	var zero V

	rows, err := s.rows.SelectWhereKeyIn(ctx, []string{s.prefix + key})
	if err != nil {
		return zero, false, fmt.Errorf("cache: select rows: %w", err)
	}

	results, expired, err := s.classify([]string{key}, rows, s.now().Unix())
	if err != nil {
		return zero, false, err
	}
	if len(expired) > 0 {
		if _, err := s.ForgetMany(ctx, expired); err != nil {
			return zero, false, err
		}
	}
	current, ok := results.Get(key)
	if !ok {
		return zero, false, nil
	}

	next := fn(current)
	payload, err := s.cipher.Encrypt(next)
	if err != nil {
		return zero, false, &EncryptionError{Key: key, Err: err}
	}

	row := models.CacheEntry{Key: s.prefix + key, Value: payload, Expiration: rows[0].Expiration}
	if err := s.rows.DeleteWhereKeyIn(ctx, []string{row.Key}); err != nil {
		return zero, false, fmt.Errorf("cache: delete rows: %w", err)
	}
	if err := s.rows.Insert(ctx, []models.CacheEntry{row}); err != nil {
		return zero, false, fmt.Errorf("cache: insert rows: %w", err)
	}
	return next, true, nil
}

// Increment adds by to the live value under key and returns the new value. A missing
// or expired key reports false and is not created.
func Increment[V Number](ctx context.Context, r *Repository[V], key string, by V) (V, bool, error) {
	return adjust(ctx, r, key, func(current V) V { return current + by })
}

// Decrement subtracts by from the live value under key and returns the new value.
func Decrement[V Number](ctx context.Context, r *Repository[V], key string, by V) (V, bool, error) {
	return adjust(ctx, r, key, func(current V) V { return current - by })
}

func adjust[V any](ctx context.Context, r *Repository[V], key string, fn func(V) V) (V, bool, error) {
	adjuster, ok := r.batch.(Adjuster[V])
	if !ok {
		var zero V
		return zero, false, ErrUnsupported
	}
	return adjuster.Adjust(ctx, key, fn)
}
