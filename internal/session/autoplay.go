package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/rendis/recviz/internal/expressions"
	"github.com/rendis/recviz/internal/player"
	"github.com/rendis/recviz/pkg/schema"
)

// Play starts autoplay. A freshly loaded run plays from step 0, a run
// parked on its last step replays from the start, anything else resumes
// from the playhead. Play on a playing session is a no-op.
func (s *Session) Play(ctx context.Context) (*Info, error) {
	s.mu.Lock()
	if s.rec == nil {
		s.mu.Unlock()
		return nil, errNoRun(s.ID)
	}
	if s.playing {
		info := s.infoLocked()
		s.mu.Unlock()
		return info, nil
	}

	total := len(s.rec.Trace.Events)
	if s.fresh || s.step >= total-1 {
		s.step = 0
	}
	s.fresh = false
	s.playing = true
	s.gen++
	s.stop = make(chan struct{})
	s.touched = s.deps.Now()
	gen, stop := s.gen, s.stop
	lctx := s.ctx(context.WithoutCancel(ctx))
	info := s.infoLocked()
	s.loops.Add(1)
	s.mu.Unlock()

	go s.autoplay(lctx, gen, stop)

	s.log(lctx).Info("autoplay started", slog.Int("step", info.Step), slog.Duration("interval", s.deps.Interval))
	s.publish(lctx, schema.EventPlaybackStarted, info.Step, info)
	return info, nil
}

// Pause stops autoplay, leaving the playhead where it is.
func (s *Session) Pause(ctx context.Context) *Info {
	s.mu.Lock()
	wasPlaying := s.playing
	s.stopLocked()
	lctx := s.ctx(ctx)
	info := s.infoLocked()
	s.mu.Unlock()

	if wasPlaying {
		s.publish(lctx, schema.EventPlaybackStopped, info.Step, map[string]any{"reason": "paused"})
	}
	return info
}

// Playing reports whether autoplay is running.
func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// stopLocked cancels autoplay and wakes the ticker goroutine so it exits
// at once. Callers hold s.mu.
func (s *Session) stopLocked() {
	s.playing = false
	s.gen++
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// autoplay advances the playhead once per interval until it reaches the
// last step, a breakpoint matches, or playback is stopped.
func (s *Session) autoplay(ctx context.Context, gen uint64, stop <-chan struct{}) {
	defer s.loops.Done()
	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick(ctx, gen) {
				return
			}
		}
	}
}

// tick performs one autoplay step and reports whether playback continues.
func (s *Session) tick(ctx context.Context, gen uint64) bool {
	s.mu.Lock()
	if s.gen != gen || !s.playing || s.rec == nil {
		s.mu.Unlock()
		return false
	}

	tr := s.rec.Trace
	total := len(tr.Events)
	if s.step >= total-1 {
		s.stopLocked()
		step := s.step
		s.mu.Unlock()
		s.publish(ctx, schema.EventPlaybackStopped, step, map[string]any{"reason": "finished"})
		return false
	}

	s.step++
	step := s.step
	snap := player.Frame(tr.Events, tr.Root, step)
	expr := s.breakpoint

	hit := false
	if expr != "" && s.deps.Breakpoints != nil {
		at, err := expressions.FirstMatch(ctx, s.deps.Breakpoints, expr, tr, step, step)
		if err != nil {
			s.log(ctx).Warn("breakpoint disabled", slog.String("expression", expr), slog.String("error", err.Error()))
			s.breakpoint = ""
		}
		hit = at == step
	}

	last := step >= total-1
	if hit || last {
		s.stopLocked()
	}
	s.mu.Unlock()

	s.deps.Metrics.Step(SourceAutoplay)
	s.publish(ctx, schema.EventStepChanged, step, snap)

	switch {
	case hit:
		s.log(ctx).Info("breakpoint hit", slog.Int("step", step), slog.String("expression", expr))
		s.publish(ctx, schema.EventBreakpointHit, step, map[string]any{"expression": expr, "event": tr.Events[step]})
		s.publish(ctx, schema.EventPlaybackStopped, step, map[string]any{"reason": "breakpoint"})
	case last:
		s.publish(ctx, schema.EventPlaybackStopped, step, map[string]any{"reason": "finished"})
	}
	return !hit && !last
}
