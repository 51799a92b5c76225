package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Operation names reported to a Recorder.
const (
	OpGetMany     = "get_many"
	OpPutMany     = "put_many"
	OpForeverMany = "forever_many"
	OpForgetMany  = "forget_many"
	OpAdjust      = "adjust"
)

// Recorder receives cache measurements.
type Recorder interface {
	RecordCacheOperation(op, result string, duration time.Duration)
	RecordCacheLookups(hits, misses int)
}

type instrumented[V any] struct {
	inner Batch[V]
	rec   Recorder
	log   *zap.Logger
}

// NewInstrumented decorates inner with metrics and debug logging. A nil recorder or
// logger disables the corresponding output.
func NewInstrumented[V any](inner Batch[V], rec Recorder, log *zap.Logger) Batch[V] {
	if log == nil {
		log = zap.NewNop()
	}
	return &instrumented[V]{inner: inner, rec: rec, log: log}
}

func (i *instrumented[V]) GetMany(ctx context.Context, keys []string) (*Results[V], error) {
	start := time.Now()
	results, err := i.inner.GetMany(ctx, keys)
	i.observe(OpGetMany, len(keys), start, err)
	if err == nil && i.rec != nil {
		hits := len(results.Hits())
		i.rec.RecordCacheLookups(hits, results.Len()-hits)
	}
	return results, err
}

func (i *instrumented[V]) PutMany(ctx context.Context, items map[string]V, minutes int) error {
	start := time.Now()
	err := i.inner.PutMany(ctx, items, minutes)
	i.observe(OpPutMany, len(items), start, err, zap.Int("ttl_minutes", minutes))
	return err
}

func (i *instrumented[V]) ForeverMany(ctx context.Context, items map[string]V) error {
	start := time.Now()
	err := i.inner.ForeverMany(ctx, items)
	i.observe(OpForeverMany, len(items), start, err)
	return err
}

func (i *instrumented[V]) ForgetMany(ctx context.Context, keys []string) (map[string]bool, error) {
	start := time.Now()
	forgotten, err := i.inner.ForgetMany(ctx, keys)
	i.observe(OpForgetMany, len(keys), start, err)
	return forgotten, err
}

func (i *instrumented[V]) Adjust(ctx context.Context, key string, fn func(V) V) (V, bool, error) {
	adjuster, ok := i.inner.(Adjuster[V])
	if !ok {
		var zero V
		return zero, false, ErrUnsupported
	}

	start := time.Now()
	value, found, err := adjuster.Adjust(ctx, key, fn)
	i.observe(OpAdjust, 1, start, err)
	if err == nil && i.rec != nil {
		if found {
			i.rec.RecordCacheLookups(1, 0)
		} else {
			i.rec.RecordCacheLookups(0, 1)
		}
	}
	return value, found, err
}

func (i *instrumented[V]) observe(op string, size int, start time.Time, err error, extra ...zap.Field) {
	elapsed := time.Since(start)
	result := resultLabel(err)

	if i.rec != nil {
		i.rec.RecordCacheOperation(op, result, elapsed)
	}

	fields := append([]zap.Field{
		zap.String("op", op),
		zap.Int("keys", size),
		zap.Duration("elapsed", elapsed),
	}, extra...)

	switch result {
	case "success":
		i.log.Debug("cache operation", fields...)
	case "decrypt_error":
		i.log.Warn("cache entry failed to decrypt", append(fields, zap.Error(err))...)
	default:
		i.log.Error("cache operation failed", append(fields, zap.Error(err))...)
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrDecryption):
		return "decrypt_error"
	case errors.Is(err, ErrConstraint):
		return "constraint_error"
	default:
		return "error"
	}
}
