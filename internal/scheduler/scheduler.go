package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/nfstudio/internal/store"
)

// Defaults for the draft janitor.
const (
	DefaultSchedule  = "@hourly"
	DefaultRetention = 30 * 24 * time.Hour
)

// Pruner is the subset of store.Store the janitor needs.
type Pruner interface {
	PruneDrafts(ctx context.Context, olderThan time.Time) (int64, error)
}

var _ Pruner = (store.Store)(nil)

// Janitor prunes drafts that have not been updated within the retention window.
type Janitor struct {
	store     Pruner
	schedule  string
	retention time.Duration
	parser    cron.Parser
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running sync.Mutex // serializes sweeps
}

// NewJanitor creates a Janitor. An empty schedule or non-positive retention
// falls back to the defaults.
func NewJanitor(s Pruner, schedule string, retention time.Duration, logger *slog.Logger) *Janitor {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		store:     s,
		schedule:  schedule,
		retention: retention,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start validates the schedule and launches the cron loop.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return fmt.Errorf("janitor already started")
	}

	sched, err := j.parser.Parse(j.schedule)
	if err != nil {
		return fmt.Errorf("parse prune schedule %q: %w", j.schedule, err)
	}

	c := cron.New(cron.WithParser(j.parser), cron.WithLocation(time.UTC))
	c.Schedule(sched, cron.FuncJob(func() {
		if _, err := j.Sweep(ctx); err != nil {
			j.logger.Error("draft prune failed", slog.String("error", err.Error()))
		}
	}))
	c.Start()
	j.cron = c

	j.logger.Info("janitor started",
		slog.String("schedule", j.schedule),
		slog.Duration("retention", j.retention),
		slog.Time("next_run", sched.Next(j.now())),
	)
	return nil
}

// Sweep prunes once and returns the number of drafts removed. Concurrent
// sweeps are serialized.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	j.running.Lock()
	defer j.running.Unlock()

	cutoff := j.now().Add(-j.retention)
	n, err := j.store.PruneDrafts(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune drafts older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		j.logger.Info("pruned stale drafts", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}

// NextRun computes the next sweep time after from.
func (j *Janitor) NextRun(from time.Time) (time.Time, error) {
	sched, err := j.parser.Parse(j.schedule)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse prune schedule %q: %w", j.schedule, err)
	}
	return sched.Next(from), nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron == nil {
		return nil
	}
	<-j.cron.Stop().Done()
	j.cron = nil

	j.logger.Info("janitor stopped")
	return nil
}
