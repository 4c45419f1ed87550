package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/metrics"
	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/storage"
)

type entry struct {
	session *Session
	ready   chan struct{}
}

// Manager keeps one session per user id
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	backend Backend
	store   storage.Store
	opts    Options

	// OnEvent, when set before the first Get, receives every session event
	OnEvent func(userID string, ev Event)

	logger zerolog.Logger
}

// NewManager creates an empty registry
func NewManager(backend Backend, store storage.Store, opts Options, logger zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		backend:  backend,
		store:    store,
		opts:     opts,
		logger:   logger.With().Str("component", "sessions").Logger(),
	}
}

// Get returns the user's session, creating and loading it on first use.
// Concurrent first requests for the same user share one load.
func (m *Manager) Get(ctx context.Context, userID string) *Session {
	m.mu.Lock()
	if e, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		<-e.ready
		return e.session
	}

	e := &entry{
		session: New(userID, m.backend, m.store, m.opts, m.logger),
		ready:   make(chan struct{}),
	}
	m.sessions[userID] = e
	count := len(m.sessions)
	m.mu.Unlock()

	if m.OnEvent != nil {
		e.session.Subscribe(func(ev Event) { m.OnEvent(userID, ev) })
	}
	e.session.Load(ctx)
	close(e.ready)

	metrics.Get().SetActiveSessions(count)
	m.logger.Info().Str("user", userID).Int("sessions", count).Msg("session created")
	return e.session
}

// Lookup returns a loaded session without creating one
func (m *Manager) Lookup(userID string) (*Session, bool) {
	m.mu.Lock()
	e, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	<-e.ready
	return e.session, true
}

// Sessions returns every loaded session
func (m *Manager) Sessions() []*Session {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	out := make([]*Session, 0, len(entries))
	for _, e := range entries {
		select {
		case <-e.ready:
			out = append(out, e.session)
		default:
		}
	}
	return out
}

// Count returns the number of sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// RefreshAll refetches the current page of every loaded session and
// returns the number that failed
func (m *Manager) RefreshAll(ctx context.Context) int {
	failed := 0
	for _, s := range m.Sessions() {
		if err := s.Refresh(ctx); err != nil {
			failed++
			m.logger.Debug().Err(err).Str("user", s.UserID()).Msg("auto refresh failed")
		}
	}
	return failed
}

// Close flushes every session's pending remote save
func (m *Manager) Close(ctx context.Context) error {
	var errs []error
	for _, s := range m.Sessions() {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
