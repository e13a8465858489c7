// Package scheduler runs periodic maintenance: the janitor that evicts idle
// playback sessions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Defaults for the janitor.
const (
	DefaultTTL   = 30 * time.Minute
	DefaultEvery = time.Minute
)

// Evictor removes sessions idle for longer than ttl and returns their ids.
// Satisfied by session.Manager.
type Evictor interface {
	EvictIdle(ctx context.Context, ttl time.Duration) []string
}

// Janitor sweeps idle sessions on a cron schedule.
type Janitor struct {
	sessions Evictor
	ttl      time.Duration
	spec     string
	logger   *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	entry  cron.EntryID
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJanitor creates a Janitor that sweeps every interval. Non-positive
// durations fall back to the defaults.
func NewJanitor(sessions Evictor, ttl, every time.Duration, logger *slog.Logger) *Janitor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if every <= 0 {
		every = DefaultEvery
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		sessions: sessions,
		ttl:      ttl,
		spec:     "@every " + every.String(),
		logger:   logger,
	}
}

// Spec returns the cron schedule of the sweep.
func (j *Janitor) Spec() string { return j.spec }

// TTL returns the idle time after which a session is evicted.
func (j *Janitor) TTL() time.Duration { return j.ttl }

// Start schedules the sweep. Overlapping sweeps are skipped.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return fmt.Errorf("janitor already started")
	}

	logger := cronLogger{j.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	jctx, cancel := context.WithCancel(ctx)
	id, err := c.AddFunc(j.spec, func() { j.Sweep(jctx) })
	if err != nil {
		cancel()
		return fmt.Errorf("schedule janitor %q: %w", j.spec, err)
	}

	c.Start()
	j.cron, j.entry, j.ctx, j.cancel = c, id, jctx, cancel
	j.logger.Info("janitor started", slog.String("schedule", j.spec), slog.Duration("ttl", j.ttl))
	return nil
}

// Sweep evicts idle sessions once.
func (j *Janitor) Sweep(ctx context.Context) []string {
	if ctx.Err() != nil {
		return nil
	}
	evicted := j.sessions.EvictIdle(ctx, j.ttl)
	for _, id := range evicted {
		j.logger.Debug("session expired", slog.String("session_id", id))
	}
	return evicted
}

// NextRun reports when the next sweep is due; zero if not started.
func (j *Janitor) NextRun() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron == nil {
		return time.Time{}
	}
	return j.cron.Entry(j.entry).Next
}

// Stop cancels the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron == nil {
		return nil
	}

	j.cancel()
	<-j.cron.Stop().Done()
	j.cron, j.cancel, j.ctx = nil, nil, nil

	j.logger.Info("janitor stopped")
	return nil
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
