package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	gpvalidator "github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/charlesng35/dbcache/pkg/crypto"
	"github.com/charlesng35/dbcache/pkg/validator"
)

// EnvPrefix prefixes every environment variable override, e.g. DBCACHE_CACHE_PREFIX.
const EnvPrefix = "DBCACHE"

// Config represents the runtime configuration of the cache.
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Encryption  EncryptionConfig  `mapstructure:"encryption"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error dpanic panic fatal"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=sqlite postgres mysql"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port" validate:"gte=0,lte=65535"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// CacheConfig selects the row store and the key namespace.
type CacheConfig struct {
	Store  string           `mapstructure:"store" validate:"oneof=database redis"`
	Table  string           `mapstructure:"table" validate:"required,max=64"`
	Prefix string           `mapstructure:"prefix" validate:"max=128"`
	Codec  string           `mapstructure:"codec" validate:"oneof=msgpack cbor json"`
	Redis  RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options for the redis row store.
type RedisCacheConfig struct {
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"gte=0"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// EncryptionConfig holds the master key protecting cached values. Key and Salt accept
// hex, base64 or raw strings (see DecodeKey).
type EncryptionConfig struct {
	Key    string                  `mapstructure:"key"`
	Salt   string                  `mapstructure:"salt"`
	Argon2 crypto.Argon2Parameters `mapstructure:"argon2"`
}

// MaintenanceConfig configures optional background jobs.
type MaintenanceConfig struct {
	Prune PruneConfig `mapstructure:"prune"`
}

// PruneConfig schedules deletion of expired rows.
type PruneConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"cron"`
}

// MonitoringConfig configures the serve command.
type MonitoringConfig struct {
	Namespace string `mapstructure:"namespace" validate:"required"`
	Address   string `mapstructure:"address" validate:"required"`
}

func init() {
	if err := validator.RegisterValidation("cron", validateCron); err != nil {
		panic(err)
	}
}

// LoadConfig initialises configuration using Viper. It reads config.yaml from the given
// directories, or from ./config when none are given, then applies DBCACHE_* environment
// overrides. A missing config.yaml is not an error.
func LoadConfig(paths ...string) (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if len(paths) == 0 {
		paths = []string{"./config"}
	}
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}
	return decode(v)
}

// LoadConfigFile reads configuration from the named file. Unlike LoadConfig the file
// must exist. Files without an extension are read as YAML.
func LoadConfigFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// ValidateStorage checks everything needed to reach the row store. Commands that never
// touch cached values, such as migrate, stop here.
func (c *Config) ValidateStorage() error {
	if c == nil {
		return errors.New("config: nil configuration")
	}
	if err := validator.ValidateStruct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Cache.Store == "redis" && strings.TrimSpace(c.Cache.Redis.Address) == "" {
		return errors.New("config: cache.redis.address is required for the redis store")
	}
	return nil
}

// Validate checks structural rules and that the encryption material is usable.
func (c *Config) Validate() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Encryption.Key) == "" {
		return errors.New("config: encryption.key is required (generate one with `cachectl keygen`)")
	}
	if err := c.Encryption.Argon2.Validate(); err != nil {
		return fmt.Errorf("config: encryption.argon2: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/cache.sqlite")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "0s")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.mysql.port", 3306)

	v.SetDefault("cache.store", "database")
	v.SetDefault("cache.table", "cache")
	v.SetDefault("cache.prefix", "")
	v.SetDefault("cache.codec", "msgpack")
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("encryption.key", "")
	v.SetDefault("encryption.salt", "")
	defaults := crypto.DefaultArgon2Params()
	v.SetDefault("encryption.argon2.time", defaults.Time)
	v.SetDefault("encryption.argon2.memory", defaults.Memory)
	v.SetDefault("encryption.argon2.threads", defaults.Threads)
	v.SetDefault("encryption.argon2.key_length", defaults.KeyLength)

	v.SetDefault("maintenance.prune.enabled", false)
	v.SetDefault("maintenance.prune.schedule", "@hourly")

	v.SetDefault("monitoring.namespace", "dbcache")
	v.SetDefault("monitoring.address", ":9090")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

func validateCron(fl gpvalidator.FieldLevel) bool {
	spec := fl.Field().String()
	if spec == "" {
		return true
	}
	_, err := cron.ParseStandard(spec)
	return err == nil
}
