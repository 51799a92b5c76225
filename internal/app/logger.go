package app

import (
	"strings"

	"github.com/charlesng35/dbcache/pkg/logger"
)

// ConfigureLogging initialises the global logger, defaulting to info level and json output.
func ConfigureLogging(cfg LogConfig) error {
	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	return logger.Init(level, cfg.Format)
}
