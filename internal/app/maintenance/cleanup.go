package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/dbcache/pkg/logger"
)

const (
	defaultPruneSpec    = "@hourly"
	defaultPruneTimeout = 5 * time.Minute
)

// Pruner removes expired cache rows and reports how many were deleted.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Recorder receives the outcome of every maintenance run.
type Recorder interface {
	RecordMaintenanceRun(job string, removed int64, duration time.Duration, err error)
}

type target struct {
	name   string
	pruner Pruner
}

// Cleaner periodically prunes expired entries from one or more cache stores.
type Cleaner struct {
	targets  []target
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	recorder Recorder
	schedule string
	timeout  time.Duration
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used to time runs.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron schedule for the prune job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithTimeout bounds a single scheduled run.
func WithTimeout(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.timeout = d
		}
	}
}

// WithRecorder reports run outcomes, typically to the monitoring module.
func WithRecorder(rec Recorder) Option {
	return func(cleaner *Cleaner) {
		cleaner.recorder = rec
	}
}

// WithTarget registers a store to prune under name. Nil pruners are ignored.
func WithTarget(name string, p Pruner) Option {
	return func(cleaner *Cleaner) {
		if p != nil {
			cleaner.targets = append(cleaner.targets, target{name: name, pruner: p})
		}
	}
}

// NewCleaner constructs a Cleaner. Without targets Start is a no-op.
func NewCleaner(opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		now:      time.Now,
		schedule: defaultPruneSpec,
		timeout:  defaultPruneTimeout,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the prune job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if len(c.targets) == 0 {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := c.RunOnce(ctx); err != nil {
			c.log.Warn("cache prune failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce prunes every target sequentially. A failing target does not stop the others.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(c.targets) == 0 {
		return errors.New("maintenance: no prune targets configured")
	}

	var errs error
	for _, t := range c.targets {
		start := c.now()
		removed, err := t.pruner.Prune(ctx)
		elapsed := c.now().Sub(start)

		if c.recorder != nil {
			c.recorder.RecordMaintenanceRun(t.name, removed, elapsed, err)
		}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("prune %s: %w", t.name, err))
			continue
		}
		c.log.Info("pruned expired cache entries",
			zap.String("target", t.name),
			zap.Int64("removed", removed),
			zap.Duration("duration", elapsed),
		)
	}

	return errs
}
