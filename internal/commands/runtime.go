package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/dbcache/internal/app"
	"github.com/charlesng35/dbcache/internal/cache"
	"github.com/charlesng35/dbcache/internal/database"
	"github.com/charlesng35/dbcache/internal/encryption"
	"github.com/charlesng35/dbcache/internal/monitoring"
	"github.com/charlesng35/dbcache/pkg/codec"
	"github.com/charlesng35/dbcache/pkg/logger"
)

const (
	storeDatabase = "database"
	storeRedis    = "redis"
)

// Runtime wires the configured row store, cipher and monitoring into a string cache.
type Runtime struct {
	Config  *app.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Rows    cache.RowStore
	Store   *cache.BatchStore[string]
	Cache   *cache.Repository[string]
	Monitor *monitoring.Module
}

// OpenStorage connects to the configured row store without building the cipher.
func OpenStorage(ctx context.Context, cfg *app.Config) (*Runtime, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg}
	log := logger.WithModule("bootstrap")
	table := cfg.Cache.TableName()

	switch cfg.Cache.Store {
	case storeRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig())
		if err != nil {
			return nil, err
		}
		rows, err := cache.NewRedisRows(client, table)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		rt.Redis, rt.Rows = client, rows
		log.Debug("redis connected", zap.String("addr", cfg.Cache.Redis.Address), zap.String("namespace", table))
	case storeDatabase, "":
		dbCfg := cfg.Database.ConnectionConfig()
		db, err := database.Open(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		rows, err := cache.NewDatabaseRows(db, table)
		if err != nil {
			_ = database.Close(db)
			return nil, err
		}
		rt.DB, rt.Rows = db, rows
		log.Debug("database connected", zap.String("driver", dbCfg.Driver), zap.String("table", table))
	default:
		return nil, fmt.Errorf("unsupported cache store %q", cfg.Cache.Store)
	}

	return rt, nil
}

// OpenRuntime connects the row store, migrates the cache table and builds the
// instrumented repository.
func OpenRuntime(ctx context.Context, cfg *app.Config) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := rt.build(); err != nil {
		return nil, multierr.Append(err, rt.Close())
	}
	return rt, nil
}

func (rt *Runtime) build() error {
	cfg := rt.Config

	if err := rt.Migrate(); err != nil {
		return err
	}

	cipher, err := newCipher(cfg.Encryption, cfg.Cache.Codec)
	if err != nil {
		return err
	}

	store, err := cache.NewBatchStore[string](rt.Rows, cipher, cache.Config{Prefix: cfg.Cache.Prefix})
	if err != nil {
		return err
	}

	mon, err := monitoring.NewModule(monitoring.Options{Namespace: cfg.Monitoring.Namespace})
	if err != nil {
		return fmt.Errorf("initialise monitoring: %w", err)
	}

	repo, err := cache.NewRepository(cache.NewInstrumented[string](store, mon, logger.WithModule("cache")))
	if err != nil {
		return err
	}

	rt.Store, rt.Monitor, rt.Cache = store, mon, repo
	return nil
}

// Migrate creates the cache table. The redis store has no schema.
func (rt *Runtime) Migrate() error {
	if rt.DB == nil {
		return nil
	}
	return database.MigrateCache(rt.DB, rt.Config.Cache.TableName())
}

// Close releases database and redis connections.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var errs error
	if rt.DB != nil {
		errs = multierr.Append(errs, database.Close(rt.DB))
		rt.DB = nil
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = multierr.Append(errs, err)
		}
		rt.Redis = nil
	}
	return errs
}

func newCipher(cfg app.EncryptionConfig, codecName string) (*encryption.Encrypter[string], error) {
	key, salt, err := cfg.EncryptionMaterial()
	if err != nil {
		return nil, err
	}
	c, err := codec.ByName[string](codecName)
	if err != nil {
		return nil, err
	}

	opts := []encryption.Option{encryption.WithArgon2Parameters(cfg.Argon2)}
	if salt != nil {
		opts = append(opts, encryption.WithSalt(salt))
	}
	return encryption.New[string](key, c, opts...)
}
