package cache

import (
	"context"
	"errors"
)

// Repository exposes single-key cache operations as singleton calls of a Batch.
type Repository[V any] struct {
	batch Batch[V]
}

// NewRepository wraps batch with single-key helpers.
func NewRepository[V any](batch Batch[V]) (*Repository[V], error) {
	if batch == nil {
		return nil, errors.New("cache: batch store is required")
	}
	return &Repository[V]{batch: batch}, nil
}

// Batch returns the underlying multi-key store.
func (r *Repository[V]) Batch() Batch[V] { return r.batch }

// Get returns the cached value for key and whether it was found.
func (r *Repository[V]) Get(ctx context.Context, key string) (V, bool, error) {
	results, err := r.batch.GetMany(ctx, []string{key})
	if err != nil {
		var zero V
		return zero, false, err
	}
	value, ok := results.Get(key)
	return value, ok, nil
}

// Has reports whether a live entry exists for key.
func (r *Repository[V]) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := r.Get(ctx, key)
	return ok, err
}

// Put stores value under key for minutes.
func (r *Repository[V]) Put(ctx context.Context, key string, value V, minutes int) error {
	return r.batch.PutMany(ctx, map[string]V{key: value}, minutes)
}

// Forever stores value under key for ForeverMinutes.
func (r *Repository[V]) Forever(ctx context.Context, key string, value V) error {
	return r.batch.ForeverMany(ctx, map[string]V{key: value})
}

// Forget removes key. It reports true even when no entry existed.
func (r *Repository[V]) Forget(ctx context.Context, key string) (bool, error) {
	forgotten, err := r.batch.ForgetMany(ctx, []string{key})
	if err != nil {
		return false, err
	}
	return forgotten[key], nil
}

// Pull returns the cached value for key and removes it.
func (r *Repository[V]) Pull(ctx context.Context, key string) (V, bool, error) {
	value, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return value, ok, err
	}
	if _, err := r.Forget(ctx, key); err != nil {
		var zero V
		return zero, false, err
	}
	return value, true, nil
}

// Remember returns the cached value for key, or computes it with fn and stores it for minutes.
// Errors from fn are returned without caching anything.
func (r *Repository[V]) Remember(ctx context.Context, key string, minutes int, fn func(context.Context) (V, error)) (V, error) {
	value, ok, err := r.Get(ctx, key)
	if err != nil || ok {
		return value, err
	}

	value, err = fn(ctx)
	if err != nil {
		var zero V
		return zero, err
	}
	if err := r.Put(ctx, key, value, minutes); err != nil {
		var zero V
		return zero, err
	}
	return value, nil
}
