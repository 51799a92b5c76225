package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/charlesng35/dbcache/internal/models"
)

const (
	defaultRedisTimeout = 5 * time.Second
	redisScanCount      = 500
)

// RedisConfig captures the connection parameters of the Redis row store.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
}

// NewRedisClient creates a go-redis client and pings it so misconfiguration
// surfaces at start-up.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Address, err)
	}
	return client, nil
}

// redisRow is the msgpack body stored under each row key.
type redisRow struct {
	Value      string `msgpack:"v"`
	Expiration int64  `msgpack:"e"`
}

// RedisRows implements RowStore and Sweeper on Redis. Each row is a plain string key
// "<namespace>:<key>" holding a msgpack encoded value and expiration.
type RedisRows struct {
	client    redis.UniversalClient
	namespace string
}

var (
	_ RowStore = (*RedisRows)(nil)
	_ Sweeper  = (*RedisRows)(nil)
)

// NewRedisRows constructs a Redis-backed row store. namespace plays the role of the table name.
func NewRedisRows(client redis.UniversalClient, namespace string) (*RedisRows, error) {
	if client == nil {
		return nil, errors.New("cache: redis client is required")
	}
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		namespace = DefaultTable
	}
	return &RedisRows{client: client, namespace: namespace}, nil
}

// Ping checks the connection.
func (s *RedisRows) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SelectWhereKeyIn loads the rows whose key is in keys with a single MGET.
func (s *RedisRows) SelectWhereKeyIn(ctx context.Context, keys []string) ([]models.CacheEntry, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, s.storageKeys(keys)...).Result()
	if err != nil {
		return nil, err
	}

	rows := make([]models.CacheEntry, 0, len(values))
	for i, raw := range values {
		body, ok := raw.(string)
		if !ok {
			continue
		}
		var row redisRow
		if err := msgpack.Unmarshal([]byte(body), &row); err != nil {
			return nil, fmt.Errorf("redis: decode row %q: %w", keys[i], err)
		}
		rows = append(rows, models.CacheEntry{Key: keys[i], Value: row.Value, Expiration: row.Expiration})
	}
	return rows, nil
}

// Insert writes all rows with MSETNX, so either every row is written or none is.
func (s *RedisRows) Insert(ctx context.Context, rows []models.CacheEntry) error {
	if len(rows) == 0 {
		return nil
	}

	pairs := make([]interface{}, 0, len(rows)*2)
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		body, err := msgpack.Marshal(redisRow{Value: row.Value, Expiration: row.Expiration})
		if err != nil {
			return fmt.Errorf("redis: encode row %q: %w", row.Key, err)
		}
		pairs = append(pairs, s.storageKey(row.Key), body)
		keys = append(keys, row.Key)
	}

	written, err := s.client.MSetNX(ctx, pairs...).Result()
	if err != nil {
		return err
	}
	if !written {
		return &ConstraintError{Keys: keys, Err: errors.New("redis: MSETNX found existing keys")}
	}
	return nil
}

// DeleteWhereKeyIn removes the rows whose key is in keys.
func (s *RedisRows) DeleteWhereKeyIn(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, s.storageKeys(keys)...).Err()
}

// DeleteExpired scans the rows under prefix and removes those with expiration <= now.
func (s *RedisRows) DeleteExpired(ctx context.Context, prefix string, now int64) (int64, error) {
	return s.sweep(ctx, prefix, func(row redisRow) bool {
		return row.Expiration <= now
	})
}

// DeletePrefix removes every row under prefix.
func (s *RedisRows) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	return s.sweep(ctx, prefix, nil)
}

func (s *RedisRows) sweep(ctx context.Context, prefix string, match func(redisRow) bool) (int64, error) {
	pattern := escapeGlob(s.storageKey(prefix)) + "*"

	var (
		removed int64
		cursor  uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, redisScanCount).Result()
		if err != nil {
			return removed, err
		}

		victims, err := s.filter(ctx, batch, match)
		if err != nil {
			return removed, err
		}
		if len(victims) > 0 {
			n, err := s.client.Del(ctx, victims...).Result()
			if err != nil {
				return removed, err
			}
			removed += n
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (s *RedisRows) filter(ctx context.Context, keys []string, match func(redisRow) bool) ([]string, error) {
	if match == nil || len(keys) == 0 {
		return keys, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	victims := make([]string, 0, len(keys))
	for i, raw := range values {
		body, ok := raw.(string)
		if !ok {
			continue
		}
		var row redisRow
		if err := msgpack.Unmarshal([]byte(body), &row); err != nil {
			continue
		}
		if match(row) {
			victims = append(victims, keys[i])
		}
	}
	return victims, nil
}

func (s *RedisRows) storageKey(key string) string {
	return s.namespace + ":" + key
}

func (s *RedisRows) storageKeys(keys []string) []string {
	out := make([]string, len(keys))
	for i, key := range keys {
		out[i] = s.storageKey(key)
	}
	return out
}

func escapeGlob(value string) string {
	return strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`).Replace(value)
}
