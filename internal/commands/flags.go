package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/charlesng35/dbcache/internal/app"
	"github.com/charlesng35/dbcache/pkg/logger"
)

// Flags holds global options and the state shared by every subcommand.
type Flags struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	// Config is loaded in the Before hook and available to all commands.
	Config *app.Config

	runtime *Runtime
}

// Load reads configuration from ConfigPath and applies flag overrides.
func (f *Flags) Load() error {
	cfg, err := loadApplicationConfig(f.ConfigPath)
	if err != nil {
		return err
	}
	if level := strings.TrimSpace(f.LogLevel); level != "" {
		cfg.Log.Level = level
	}
	if format := strings.TrimSpace(f.LogFormat); format != "" {
		cfg.Log.Format = format
	}
	if err := app.ConfigureLogging(cfg.Log); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	f.Config = cfg
	return nil
}

// Runtime opens the cache stack on first use. Subsequent calls return the same instance.
func (f *Flags) Runtime(ctx context.Context) (*Runtime, error) {
	if f.runtime != nil {
		return f.runtime, nil
	}
	if f.Config == nil {
		return nil, errors.New("configuration not loaded")
	}
	rt, err := OpenRuntime(ctx, f.Config)
	if err != nil {
		return nil, err
	}
	f.runtime = rt
	return rt, nil
}

// Close releases the runtime, if one was opened, and flushes the logger.
func (f *Flags) Close() error {
	var errs error
	if f.runtime != nil {
		errs = multierr.Append(errs, f.runtime.Close())
		f.runtime = nil
	}
	_ = logger.Sync() // best effort; stderr sync fails on some terminals
	return errs
}

func loadApplicationConfig(path string) (*app.Config, error) {
	if strings.TrimSpace(path) == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return app.LoadConfig(path)
	case err == nil:
		return app.LoadConfigFile(path)
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("config path %q does not exist", path)
	default:
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}
