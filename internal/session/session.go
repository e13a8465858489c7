// Package session holds playback sessions: one loaded run, a playhead over
// its event log, an optional breakpoint and the autoplay ticker. The panel
// and the MCP server share sessions through a Manager.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/recviz/internal/expressions"
	"github.com/rendis/recviz/internal/layout"
	"github.com/rendis/recviz/internal/logging"
	"github.com/rendis/recviz/internal/metrics"
	"github.com/rendis/recviz/internal/player"
	"github.com/rendis/recviz/internal/streaming"
	"github.com/rendis/recviz/internal/trace"
	"github.com/rendis/recviz/pkg/schema"
)

// DefaultInterval is the autoplay tick period.
const DefaultInterval = 2 * time.Second

// Step sources reported to metrics.
const (
	SourceManual   = "manual"
	SourceAutoplay = "autoplay"
	SourceSeek     = "seek"
	SourceReset    = "reset"
)

// Evaluator evaluates breakpoint conditions. Check, when implemented,
// rejects an expression before it is stored.
type Evaluator interface {
	expressions.Engine
	Check(expression string) error
}

// Deps holds the collaborators shared by every session of a Manager.
type Deps struct {
	Hub         streaming.EventHub
	Breakpoints Evaluator
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Interval    time.Duration
	CallLimit   int
	Now         func() time.Time
}

func (d *Deps) defaults() {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Interval <= 0 {
		d.Interval = DefaultInterval
	}
	if d.CallLimit <= 0 {
		d.CallLimit = trace.DefaultCallLimit
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

// Recording is one completed run with its layout. Both are read-only once
// loaded.
type Recording struct {
	ID     string
	Trace  *trace.Trace
	Layout *layout.Result
}

// Info summarizes a session for listings and responses.
type Info struct {
	ID         string           `json:"id"`
	RunID      string           `json:"run_id,omitempty"`
	Algorithm  schema.Algorithm `json:"algorithm,omitempty"`
	Input      int              `json:"input,omitempty"`
	Step       int              `json:"step"`
	Total      int              `json:"total"`
	Calls      int              `json:"calls"`
	Height     int              `json:"height"`
	Playing    bool             `json:"playing"`
	Breakpoint string           `json:"breakpoint,omitempty"`
	LastActive time.Time        `json:"last_active"`
}

// Session is a single viewer's playback state. All methods are safe for
// concurrent use.
type Session struct {
	ID   string
	deps *Deps

	mu         sync.Mutex
	rec        *Recording
	step       int
	fresh      bool // loaded but never played
	breakpoint string
	playing    bool
	gen        uint64        // bumped whenever autoplay stops or a run is replaced
	stop       chan struct{} // closed to end the current autoplay goroutine
	loops      sync.WaitGroup
	touched    time.Time
}

func newSession(deps *Deps) *Session {
	return &Session{
		ID:      uuid.NewString(),
		deps:    deps,
		touched: deps.Now(),
	}
}

// ctx returns a context carrying the session's correlation ids. Callers
// hold s.mu.
func (s *Session) ctx(parent context.Context) context.Context {
	runID, alg := "", ""
	if s.rec != nil {
		runID, alg = s.rec.ID, s.rec.Trace.Algorithm.String()
	}
	return logging.WithIDs(parent, s.ID, runID, alg)
}

func (s *Session) log(ctx context.Context) *slog.Logger {
	return logging.LogWith(ctx, s.deps.Logger)
}

// Run simulates alg on n and replaces the loaded run, rewinding to step 0.
// A rejected run leaves the previous run and playhead untouched. Autoplay
// is stopped before the new trace is installed.
func (s *Session) Run(ctx context.Context, alg schema.Algorithm, n int) (*Info, error) {
	tr, err := trace.Run(alg, n, trace.WithCallLimit(s.deps.CallLimit))
	if err != nil {
		outcome := metrics.OutcomeInvalid
		if schema.HasCode(err, schema.ErrCodeLimitExceeded) {
			outcome = metrics.OutcomeLimitExceeded
		}
		s.deps.Metrics.Run(alg.String(), outcome, 0)

		s.mu.Lock()
		lctx := logging.WithAlgorithm(s.ctx(ctx), alg.String())
		s.touched = s.deps.Now()
		s.mu.Unlock()
		s.log(lctx).Warn("run rejected", slog.Int("input", n), slog.String("error", err.Error()))
		s.publish(lctx, schema.EventRunFailed, 0, map[string]any{"code": schema.CodeOf(err), "error": err.Error()})
		return nil, err
	}

	done := s.deps.Metrics.LayoutTimer(alg.String())
	res := layout.Layout(tr)
	layout.Apply(tr.Root, res)
	done()
	s.deps.Metrics.Run(alg.String(), metrics.OutcomeOK, tr.Calls)

	s.mu.Lock()
	s.stopLocked()
	s.rec = &Recording{ID: uuid.NewString(), Trace: tr, Layout: res}
	s.step = 0
	s.fresh = true
	s.touched = s.deps.Now()
	lctx := s.ctx(ctx)
	info := s.infoLocked()
	s.mu.Unlock()

	s.log(lctx).Info("run loaded",
		slog.Int("input", n),
		slog.Int("calls", tr.Calls),
		slog.Int("events", len(tr.Events)),
	)
	s.publish(lctx, schema.EventRunStarted, 0, info)
	return info, nil
}

// Info returns the session summary.
func (s *Session) Info() *Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() *Info {
	info := &Info{
		ID:         s.ID,
		Step:       s.step,
		Playing:    s.playing,
		Breakpoint: s.breakpoint,
		LastActive: s.touched,
	}
	if s.rec != nil {
		tr := s.rec.Trace
		info.RunID = s.rec.ID
		info.Algorithm = tr.Algorithm
		info.Input = tr.Input
		info.Total = len(tr.Events)
		info.Calls = tr.Calls
		info.Height = tr.Height()
	}
	return info
}

// Recording returns the loaded run.
func (s *Session) Recording() (*Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, errNoRun(s.ID)
	}
	return s.rec, nil
}

// Snapshot derives the frame at the playhead.
func (s *Session) Snapshot() (*player.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, errNoRun(s.ID)
	}
	return s.frameLocked(s.step), nil
}

// FrameAt derives the frame at step without moving the playhead.
func (s *Session) FrameAt(step int) (*player.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, errNoRun(s.ID)
	}
	return s.frameLocked(step), nil
}

func (s *Session) frameLocked(step int) *player.Snapshot {
	return player.Frame(s.rec.Trace.Events, s.rec.Trace.Root, step)
}

// Forward advances the playhead by one step; at the last step it is a no-op.
func (s *Session) Forward(ctx context.Context) (*player.Snapshot, error) {
	return s.move(ctx, SourceManual, func(step, _ int) int { return step + 1 })
}

// Back moves the playhead one step back; at step 0 it is a no-op.
func (s *Session) Back(ctx context.Context) (*player.Snapshot, error) {
	return s.move(ctx, SourceManual, func(step, _ int) int { return step - 1 })
}

// Seek moves the playhead to step, clamped to the log.
func (s *Session) Seek(ctx context.Context, step int) (*player.Snapshot, error) {
	return s.move(ctx, SourceSeek, func(int, int) int { return step })
}

func (s *Session) move(ctx context.Context, source string, next func(step, total int) int) (*player.Snapshot, error) {
	s.mu.Lock()
	if s.rec == nil {
		s.mu.Unlock()
		return nil, errNoRun(s.ID)
	}
	total := len(s.rec.Trace.Events)
	prev := s.step
	s.step = player.Clamp(next(s.step, total), total)
	s.fresh = false
	s.touched = s.deps.Now()
	snap := s.frameLocked(s.step)
	lctx := s.ctx(ctx)
	s.mu.Unlock()

	if snap.Step != prev {
		s.deps.Metrics.Step(source)
		s.publish(lctx, schema.EventStepChanged, snap.Step, snap)
	}
	return snap, nil
}

// Reset stops autoplay and unloads the run.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	lctx := s.ctx(ctx)
	s.stopLocked()
	s.rec = nil
	s.step = 0
	s.fresh = false
	s.touched = s.deps.Now()
	s.mu.Unlock()

	s.deps.Metrics.Step(SourceReset)
	s.log(lctx).Info("session reset")
	s.publish(lctx, schema.EventSessionReset, 0, nil)
}

// SetBreakpoint installs a condition that pauses autoplay on the first
// event it matches. An empty expression clears the breakpoint.
func (s *Session) SetBreakpoint(ctx context.Context, expression string) error {
	if expression != "" {
		if s.deps.Breakpoints == nil {
			return schema.NewError(schema.ErrCodeValidation, "breakpoints are not available")
		}
		if err := s.deps.Breakpoints.Check(expression); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.breakpoint = expression
	s.touched = s.deps.Now()
	lctx := s.ctx(ctx)
	s.mu.Unlock()

	s.log(lctx).Debug("breakpoint set", slog.String("expression", expression))
	return nil
}

// Breakpoint returns the current breakpoint expression.
func (s *Session) Breakpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.breakpoint
}

// LastActive reports when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func (s *Session) publish(ctx context.Context, eventType string, step int, payload any) {
	if s.deps.Hub == nil {
		return
	}
	ev := streaming.StreamEvent{
		SessionID: s.ID,
		RunID:     logging.RunID(ctx),
		EventType: eventType,
		Step:      step,
		Payload:   payload,
	}
	if err := s.deps.Hub.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log(ctx).Warn("publish failed", slog.String("event", eventType), slog.String("error", err.Error()))
	}
}

func errNoRun(id string) error {
	return schema.NewErrorf(schema.ErrCodeConflict, "session %s has no run loaded", id).
		WithDetails(map[string]any{"session_id": id})
}
