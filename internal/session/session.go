// Package session tracks logged-in users. Each session carries the user's
// identity and the menu catalog they uploaded; closing the session drops
// both.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/coffee-desk/internal/domain/menu"
)

// Session is the per-user application context.
type Session struct {
	Token     string
	Email     string
	Catalog   *menu.Catalog
	CreatedAt time.Time

	// lastSeen is guarded by the owning Manager.
	lastSeen time.Time
}

// Manager issues and resolves session tokens. Sessions idle for longer
// than the TTL expire.
type Manager struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager expiring sessions after idleTTL without a
// Get. A non-positive idleTTL disables expiry.
func NewManager(idleTTL time.Duration) *Manager {
	return &Manager{
		ttl:      idleTTL,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.lastSeen) >= m.ttl
}

// Open starts a session for email with an empty catalog. Existing sessions
// of the same user are left untouched.
func (m *Manager) Open(email string) *Session {
	now := m.now()
	s := &Session{
		Token:     uuid.NewString(),
		Email:     email,
		Catalog:   menu.NewCatalog(),
		CreatedAt: now,
		lastSeen:  now,
	}
	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	return s
}

// Get resolves a token and marks the session as used. An expired session
// is closed and reported as unknown.
func (m *Manager) Get(token string) (*Session, bool) {
	now := m.now()

	m.mu.Lock()
	s, ok := m.sessions[token]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	if m.expired(s, now) {
		delete(m.sessions, token)
		m.mu.Unlock()
		s.Catalog.Reset()
		return nil, false
	}
	s.lastSeen = now
	m.mu.Unlock()
	return s, true
}

// Close ends a session and resets its catalog. It reports whether the
// token was known.
func (m *Manager) Close(token string) bool {
	m.mu.Lock()
	s, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()
	if ok {
		s.Catalog.Reset()
	}
	return ok
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) cleanup(now time.Time) {
	var stale []*Session
	m.mu.Lock()
	for token, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, token)
			stale = append(stale, s)
		}
	}
	m.mu.Unlock()
	for _, s := range stale {
		s.Catalog.Reset()
	}
}

// RunCleanup closes expired sessions every TTL until ctx is done. It returns
// immediately when expiry is disabled.
func (m *Manager) RunCleanup(ctx context.Context) {
	if m.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.cleanup(now)
		}
	}
}

type ctxKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
