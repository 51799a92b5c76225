package commands

import (
	"context"
	"io"

	"github.com/urfave/cli/v3"
)

// NewApp builds the cachectl command tree. Output of every subcommand goes to out.
func NewApp(version string, out io.Writer) *cli.Command {
	flags := &Flags{}

	app := &cli.Command{
		Name:      "cachectl",
		Usage:     "Inspect and maintain the encrypted database cache",
		UsageText: "cachectl [global options] command [command options]",
		Description: `cachectl reads configuration from config.yaml (see --config) and DBCACHE_*
environment variables, then operates on the configured cache table.`,
		Version: version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to the configuration directory or config.yaml",
				Sources:     cli.EnvVars("DBCACHE_CONFIG"),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error); overrides log.level",
				Sources:     cli.EnvVars("DBCACHE_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (json, console); overrides log.format",
				Destination: &flags.LogFormat,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, flags.Load()
		},
		After: func(ctx context.Context, c *cli.Command) error {
			return flags.Close()
		},
	}

	app = NewGetCmd(flags).Register(app)
	app = NewPutCmd(flags).Register(app)
	app = NewForgetCmd(flags).Register(app)
	app = NewPruneCmd(flags).Register(app)
	app = NewMigrateCmd(flags).Register(app)
	app = NewKeygenCmd().Register(app)
	app = NewServeCmd(flags).Register(app)

	return app
}
