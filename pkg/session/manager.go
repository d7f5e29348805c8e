package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/tracescribe/internal/logging"
	"github.com/aretw0/tracescribe/pkg/domain"
	"github.com/aretw0/tracescribe/pkg/ports"
	"github.com/aretw0/tracescribe/pkg/workflow"
	"github.com/google/uuid"
)

// Factory builds the orchestrator for a new session.
type Factory func() *workflow.Orchestrator

// Manager keeps the live sessions of a multi-user surface.
type Manager struct {
	factory   Factory
	formatter ports.Formatter

	mu       sync.Mutex
	sessions map[string]*Session

	idleTTL time.Duration
	logger  *slog.Logger
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithIdleTTL closes sessions that received no intent for ttl. Zero disables the sweep.
func WithIdleTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.idleTTL = ttl
	}
}

// WithManagerLogger configures a logger for the Manager and its sessions.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager. Every session gets a fresh orchestrator from factory.
func NewManager(factory Factory, formatter ports.Formatter, opts ...ManagerOption) *Manager {
	m := &Manager{
		factory:   factory,
		formatter: formatter,
		sessions:  make(map[string]*Session),
		logger:    logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create starts a new session with a random ID.
func (m *Manager) Create(ctx context.Context) *Session {
	id := uuid.NewString()
	s := New(id, m.factory(), m.formatter, WithLogger(m.logger))

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Debug("Session created", "session_id", id)
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Delete closes the session and forgets it.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	return s.Close(ctx)
}

// List returns the live session IDs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep closes sessions idle since before now minus the idle TTL.
// Sessions with a request in flight are kept. It returns how many were closed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) < m.idleTTL || s.Snapshot().IsLoading {
			continue
		}
		stale = append(stale, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range stale {
		if err := s.Close(ctx); err != nil {
			m.logger.Warn("Failed to close idle session", "session_id", s.ID(), "error", err)
			continue
		}
		m.logger.Info("Closed idle session", "session_id", s.ID())
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is done, then closes every remaining session.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.idleTTL / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.Sweep(ctx, now)
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return m.CloseAll(shutdownCtx)
		}
	}
}

// CloseAll closes every session.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range all {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
