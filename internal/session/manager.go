package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rendis/recviz/internal/logging"
	"github.com/rendis/recviz/pkg/schema"
)

// Manager owns the live sessions.
type Manager struct {
	deps *Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager. Zero-valued Deps fields get defaults.
func NewManager(deps Deps) *Manager {
	deps.defaults()
	return &Manager{
		deps:     &deps,
		sessions: make(map[string]*Session),
	}
}

// Interval returns the autoplay tick period sessions use.
func (m *Manager) Interval() time.Duration {
	return m.deps.Interval
}

// Create registers an empty session.
func (m *Manager) Create(ctx context.Context) *Session {
	s := newSession(m.deps)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.deps.Metrics.SessionOpened()
	logging.LogWith(logging.WithSessionID(ctx, s.ID), m.deps.Logger).Debug("session created")
	return s
}

// Open creates a session and loads a first run into it. The session is
// discarded if the run is rejected.
func (m *Manager) Open(ctx context.Context, alg schema.Algorithm, n int) (*Session, error) {
	s := m.Create(ctx)
	if _, err := s.Run(ctx, alg, n); err != nil {
		m.remove(s.ID)
		return nil, err
	}
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "session %s not found", id).
			WithDetails(map[string]any{"session_id": id})
	}
	return s, nil
}

// List returns every session summary, most recently used first.
func (m *Manager) List() []*Info {
	m.mu.RLock()
	out := make([]*Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActive.Equal(out[j].LastActive) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops a session's autoplay and forgets it.
func (m *Manager) Close(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.Pause(ctx)
	m.remove(id)
	return nil
}

func (m *Manager) remove(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.deps.Metrics.SessionClosed()
	}
	return ok
}

// EvictIdle closes every session unused for longer than ttl. Playing
// sessions are never idle. Returns the evicted ids.
func (m *Manager) EvictIdle(ctx context.Context, ttl time.Duration) []string {
	cutoff := m.deps.Now().Add(-ttl)

	m.mu.RLock()
	var idle []*Session
	for _, s := range m.sessions {
		if !s.Playing() && s.LastActive().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	m.mu.RUnlock()

	var evicted []string
	for _, s := range idle {
		if !m.remove(s.ID) {
			continue
		}
		s.Pause(ctx)
		s.publish(logging.WithSessionID(ctx, s.ID), schema.EventSessionExpired, 0, nil)
		evicted = append(evicted, s.ID)
	}
	sort.Strings(evicted)

	if len(evicted) > 0 {
		m.deps.Metrics.Evicted(len(evicted))
		m.deps.Logger.Info("evicted idle sessions", slog.Int("count", len(evicted)), slog.Duration("ttl", ttl))
	}
	return evicted
}

// CloseAll stops every session; used on shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Pause(ctx)
		m.deps.Metrics.SessionClosed()
	}
}
