package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/dbcache/internal/api"
	"github.com/charlesng35/dbcache/internal/app/maintenance"
	"github.com/charlesng35/dbcache/internal/monitoring/checks"
	"github.com/charlesng35/dbcache/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

type ServeCmd struct {
	flags   *Flags
	address string
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run scheduled pruning and expose health and metrics over HTTP",
		UsageText: "cachectl serve [--address :9090]",
		Description: `Serves /health, /health/live, /health/ready, /metrics and
/api/monitoring/summary. When maintenance.prune.enabled is set, expired
entries are pruned on maintenance.prune.schedule. Stops on SIGINT/SIGTERM.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "address",
				Usage:       "listen address (overrides monitoring.address)",
				Sources:     cli.EnvVars("DBCACHE_SERVE_ADDRESS"),
				Destination: &cmd.address,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	rt, err := cmd.flags.Runtime(ctx)
	if err != nil {
		return err
	}

	address := strings.TrimSpace(cmd.address)
	if address == "" {
		address = rt.Config.Monitoring.Address
	}

	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("serve: listen %s: %w", address, err)
	}
	return Serve(ctx, rt, ln)
}

// Serve registers health checks, starts the prune scheduler and serves HTTP on ln
// until ctx is cancelled.
func Serve(ctx context.Context, rt *Runtime, ln net.Listener) (err error) {
	log := logger.WithModule("serve")
	cfg := rt.Config

	health := rt.Monitor.Health()
	health.Register(checks.Store(cfg.Cache.Store, rt.Rows, rt.Store.Prefix(), 0))

	if cfg.Maintenance.Prune.Enabled {
		cleaner := maintenance.NewCleaner(
			maintenance.WithTarget(cfg.Cache.Store, rt.Store),
			maintenance.WithSchedule(cfg.Maintenance.Prune.Schedule),
			maintenance.WithRecorder(rt.Monitor),
		)
		if err := cleaner.Start(); err != nil {
			_ = ln.Close()
			return fmt.Errorf("start maintenance jobs: %w", err)
		}
		defer func() { <-cleaner.Stop().Done() }()
		health.Register(checks.Maintenance(rt.Monitor, 0))
		log.Info("prune scheduled", zap.String("schedule", cfg.Maintenance.Prune.Schedule))
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := api.NewRouter(rt.Monitor)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil && !errors.Is(shutdownErr, http.ErrServerClosed) {
		err = multierr.Append(err, fmt.Errorf("graceful shutdown: %w", shutdownErr))
	}
	if serveErr, ok := <-serverErr; ok && serveErr != nil {
		err = multierr.Append(err, fmt.Errorf("server error: %w", serveErr))
	}

	if err == nil {
		log.Info("server stopped gracefully")
	}
	return err
}
