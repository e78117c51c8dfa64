package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agora-ai/agora/internal/domain"
	"github.com/agora-ai/agora/internal/observability"
)

// Session tracks a user's liveness and identity. It is a cache only: the
// checkpoint store, not the session table, owns conversation content.
type Session struct {
	UserID       domain.UserID
	CreatedAt    time.Time
	LastActivity time.Time
	Active       bool
}

// Manager owns the table of active user sessions. All access to the table
// goes through an internal mutex; multiple requests may touch the same user
// entry concurrently.
type Manager struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]*Session

	timeout         time.Duration
	cleanupInterval time.Duration
	cleanupBackoff  time.Duration

	cancel  context.CancelFunc
	done    chan struct{}
	started bool

	now func() time.Time
}

// NewManager creates a session manager. The cleanup task is not started
// here; call StartCleanup once a long-lived context exists.
func NewManager(timeout, cleanupInterval, cleanupBackoff time.Duration) *Manager {
	return &Manager{
		sessions:        make(map[domain.UserID]*Session),
		timeout:         timeout,
		cleanupInterval: cleanupInterval,
		cleanupBackoff:  cleanupBackoff,
		now:             time.Now,
	}
}

// Create registers a session for userID, generating a fresh identifier when
// none is given. An existing entry for the same id is overwritten.
func (m *Manager) Create(userID domain.UserID) Session {
	if userID == "" {
		userID = domain.UserID(uuid.NewString())
	}

	now := m.now()
	s := &Session{
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		Active:       true,
	}

	m.mu.Lock()
	m.sessions[userID] = s
	m.mu.Unlock()

	observability.Logger().Info("session created", "user_id", userID)
	return *s
}

// Get returns the session for userID if it is present and live, refreshing
// its activity timestamp. An expired session is invalidated as a side
// effect. Absence is not an error: callers create a new session instead.
func (m *Manager) Get(userID domain.UserID) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return Session{}, false
	}
	if m.expired(s) {
		s.Active = false
		delete(m.sessions, userID)
		observability.Logger().Info("session expired on lookup", "user_id", userID)
		return Session{}, false
	}

	s.LastActivity = m.now()
	return *s, true
}

// GetOrCreate resolves an existing live session or creates one, reusing the
// given id when provided.
func (m *Manager) GetOrCreate(userID domain.UserID) Session {
	if userID != "" {
		if s, ok := m.Get(userID); ok {
			return s
		}
	}
	return m.Create(userID)
}

// Invalidate removes the session and reports whether one existed.
func (m *Manager) Invalidate(userID domain.UserID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return false
	}
	s.Active = false
	delete(m.sessions, userID)
	observability.Logger().Info("session invalidated", "user_id", userID)
	return true
}

// ActiveCount returns the number of sessions currently in the table.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ThreadID composes the stable thread identifier for a user/persona pair.
// Pure derivation, no side effects.
func (m *Manager) ThreadID(userID domain.UserID, personaID domain.PersonaID) domain.ThreadID {
	return domain.ComposeThreadID(userID, personaID)
}

// NewThreadID composes a disposable thread identifier that never collides
// with the stable one, for isolated one-shot conversations.
func (m *Manager) NewThreadID(userID domain.UserID, personaID domain.PersonaID) domain.ThreadID {
	return domain.ComposeDisposableThreadID(userID, personaID, uuid.NewString())
}

// StartCleanup launches the background expiry sweep. It is a no-op when the
// task is already running. Sweep failures are logged and retried after a
// shorter backoff; they never terminate the task.
func (m *Manager) StartCleanup(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go m.cleanupLoop(ctx)
	observability.Logger().Info("session cleanup task started",
		"interval", m.cleanupInterval.String(), "timeout", m.timeout.String())
}

func (m *Manager) cleanupLoop(ctx context.Context) {
	defer close(m.done)

	wait := m.cleanupInterval
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := m.sweep(); err != nil {
			observability.Logger().Error("session cleanup failed", "error", err)
			wait = m.cleanupBackoff
			continue
		}
		wait = m.cleanupInterval
	}
}

// sweep invalidates every expired session. Panics inside the sweep are
// converted to errors so a single bad pass cannot kill the loop.
func (m *Manager) sweep() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &sweepPanicError{value: r}
		}
	}()

	m.mu.Lock()
	var expired []domain.UserID
	for id, s := range m.sessions {
		if m.expired(s) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		m.sessions[id].Active = false
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if len(expired) > 0 {
		observability.Logger().Info("cleaned up expired sessions", "count", len(expired))
	}
	return nil
}

// Shutdown cancels the cleanup task and clears all sessions.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.started = false
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	m.mu.Lock()
	m.sessions = make(map[domain.UserID]*Session)
	m.mu.Unlock()

	observability.Logger().Info("session manager shutdown complete")
}

func (m *Manager) expired(s *Session) bool {
	return m.now().Sub(s.LastActivity) > m.timeout
}

type sweepPanicError struct {
	value any
}

func (e *sweepPanicError) Error() string {
	return "panic during session sweep"
}
