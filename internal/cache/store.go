package cache

import (
	"context"

	"github.com/charlesng35/dbcache/internal/models"
)

// RowStore is the persistent table holding cache rows. Keys passed in are already prefixed.
type RowStore interface {
	// SelectWhereKeyIn returns at most one row per matching key.
	SelectWhereKeyIn(ctx context.Context, keys []string) ([]models.CacheEntry, error)
	// Insert bulk inserts rows, failing with *ConstraintError if any key already exists.
	Insert(ctx context.Context, rows []models.CacheEntry) error
	// DeleteWhereKeyIn removes matching rows; zero matches is not an error.
	DeleteWhereKeyIn(ctx context.Context, keys []string) error
}

// Sweeper is implemented by row stores able to delete rows by prefix.
type Sweeper interface {
	// DeleteExpired removes rows under prefix whose expiration is at or before now.
	DeleteExpired(ctx context.Context, prefix string, now int64) (int64, error)
	// DeletePrefix removes every row under prefix.
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Cipher seals and opens cache values.
type Cipher[V any] interface {
	Encrypt(value V) (string, error)
	Decrypt(payload string) (V, error)
}

// Batch is the multi-key cache surface shared by BatchStore and its decorators.
type Batch[V any] interface {
	GetMany(ctx context.Context, keys []string) (*Results[V], error)
	PutMany(ctx context.Context, items map[string]V, minutes int) error
	ForeverMany(ctx context.Context, items map[string]V) error
	ForgetMany(ctx context.Context, keys []string) (map[string]bool, error)
}
