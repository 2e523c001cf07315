package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mchmarny/navd/pkg/auth"
)

// DefaultTTL is how long a remembered session may be restored.
const DefaultTTL = 7 * 24 * time.Hour

// ErrNotFound is returned when a persisted session does not exist.
var ErrNotFound = errors.New("session not found")

// Record is the persisted form of a remembered session.
type Record struct {
	ID        string
	Token     string
	User      User
	Persist   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Persistence stores remembered sessions.
type Persistence interface {
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// Manager owns the lifecycle of all sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    Persistence
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTTL sets how long remembered sessions stay restorable.
func WithTTL(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager. A nil store keeps every session in memory.
func NewManager(store Persistence, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   slog.Default().With("component", "session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Get returns the session with id. A session unknown in memory is restored
// from the store when it was remembered, its record has not expired and its
// token is not expired. Anything else is treated as unauthenticated.
func (m *Manager) Get(ctx context.Context, id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return s, true
	}

	if m.store == nil {
		return nil, false
	}

	rec, err := m.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Error("failed to load session", "id", id, "error", err)
		}
		return nil, false
	}

	now := m.now()
	if !rec.Persist || !rec.ExpiresAt.After(now) || auth.Expired(rec.Token, now) {
		m.logger.Info("discarding stale session", "id", id)
		m.forget(ctx, id)
		return nil, false
	}

	s = m.attach(rec.ID)
	user := rec.User
	s.SetLogin(rec.Token, &user, true)

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, true
	}
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session restored", "id", id, "user", rec.User.Username)
	return s, true
}

// Login creates an authenticated session. The previous session of the
// client, if any, is cleared first. Only sessions with persist set are
// written to the store.
func (m *Manager) Login(ctx context.Context, previousID, token string, user User, persist bool) (*Session, error) {
	if token == "" {
		return nil, errors.New("login returned an empty token")
	}

	if previousID != "" {
		m.Logout(ctx, previousID)
	}

	s := m.attach(uuid.NewString())
	s.SetLogin(token, &user, persist)

	if persist && m.store != nil {
		now := m.now()
		rec := &Record{
			ID:        s.ID(),
			Token:     token,
			User:      user,
			Persist:   true,
			CreatedAt: now,
			ExpiresAt: now.Add(m.ttl),
		}
		if err := m.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("saving session: %w", err)
		}
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.Info("session started", "id", s.ID(), "user", user.Username, "persist", persist)
	return s, nil
}

// Logout clears the session with id. Unknown ids only remove any persisted
// record.
func (m *Manager) Logout(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()

	if ok {
		s.Clear()
		return
	}
	m.forget(ctx, id)
}

// Prune deletes expired remembered sessions from the store.
func (m *Manager) Prune(ctx context.Context) (int64, error) {
	if m.store == nil {
		return 0, nil
	}
	n, err := m.store.Prune(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("pruning sessions: %w", err)
	}
	if n > 0 {
		m.logger.Info("pruned expired sessions", "count", n)
	}
	return n, nil
}

// attach creates a session whose Clear removes it from the manager and the
// store.
func (m *Manager) attach(id string) *Session {
	s := New(id)
	s.onClear = func(s *Session) {
		m.mu.Lock()
		if cur, ok := m.sessions[s.ID()]; ok && cur == s {
			delete(m.sessions, s.ID())
		}
		m.mu.Unlock()

		m.forget(context.Background(), s.ID())
		m.logger.Info("session cleared", "id", s.ID())
	}
	return s
}

func (m *Manager) forget(ctx context.Context, id string) {
	if m.store == nil {
		return
	}
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		m.logger.Error("failed to delete session", "id", id, "error", err)
	}
}
