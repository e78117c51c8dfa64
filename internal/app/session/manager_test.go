package session

import (
	"strings"
	"testing"
	"time"

	"github.com/agora-ai/agora/internal/domain"
)

func newTestManager() (*Manager, *time.Time) {
	m := NewManager(60*time.Minute, 600*time.Second, 60*time.Second)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestCreateGeneratesUserID(t *testing.T) {
	m, _ := newTestManager()

	s := m.Create("")
	if s.UserID == "" {
		t.Fatal("expected generated user id")
	}

	s2 := m.Create("")
	if s2.UserID == s.UserID {
		t.Fatal("expected unique generated user ids")
	}
	if m.ActiveCount() != 2 {
		t.Fatalf("expected 2 active sessions, got %d", m.ActiveCount())
	}
}

func TestGetRefreshesActivity(t *testing.T) {
	m, now := newTestManager()
	m.Create("alice")

	*now = now.Add(30 * time.Minute)
	s, ok := m.Get("alice")
	if !ok {
		t.Fatal("expected live session")
	}
	if !s.LastActivity.Equal(*now) {
		t.Fatalf("expected refreshed activity %v, got %v", *now, s.LastActivity)
	}

	// refresh keeps the session alive past the original deadline
	*now = now.Add(45 * time.Minute)
	if _, ok := m.Get("alice"); !ok {
		t.Fatal("expected session still live after refresh")
	}
}

func TestGetExpiredInvalidates(t *testing.T) {
	m, now := newTestManager()
	m.Create("alice")

	*now = now.Add(61 * time.Minute)
	if _, ok := m.Get("alice"); ok {
		t.Fatal("expected expired session to be absent")
	}
	if m.ActiveCount() != 0 {
		t.Fatalf("expected expired session removed, count=%d", m.ActiveCount())
	}
}

func TestGetOrCreate(t *testing.T) {
	m, _ := newTestManager()

	created := m.GetOrCreate("bob")
	if created.UserID != "bob" {
		t.Fatalf("expected provided id to be reused, got %q", created.UserID)
	}

	resolved := m.GetOrCreate("bob")
	if !resolved.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("expected existing session to be resolved, not recreated")
	}

	anon := m.GetOrCreate("")
	if anon.UserID == "" || anon.UserID == "bob" {
		t.Fatalf("expected fresh session, got %q", anon.UserID)
	}
}

func TestInvalidate(t *testing.T) {
	m, _ := newTestManager()
	m.Create("alice")

	if !m.Invalidate("alice") {
		t.Fatal("expected invalidation of existing session")
	}
	if m.Invalidate("alice") {
		t.Fatal("expected false for already-removed session")
	}
}

func TestThreadIDStable(t *testing.T) {
	m, _ := newTestManager()

	a := m.ThreadID("alice", "socrates")
	b := m.ThreadID("alice", "socrates")
	if a != b {
		t.Fatalf("thread id not stable: %q vs %q", a, b)
	}
	if a != domain.ThreadID("alice:socrates") {
		t.Fatalf("unexpected composition %q", a)
	}
}

func TestNewThreadIDNeverReusesStable(t *testing.T) {
	m, _ := newTestManager()

	stable := m.ThreadID("alice", "socrates")
	seen := map[domain.ThreadID]bool{}
	for range 50 {
		id := m.NewThreadID("alice", "socrates")
		if id == stable {
			t.Fatal("disposable thread id collided with stable id")
		}
		if seen[id] {
			t.Fatalf("disposable thread id %q repeated", id)
		}
		if !strings.HasPrefix(string(id), "alice:socrates-") {
			t.Fatalf("unexpected disposable id shape %q", id)
		}
		seen[id] = true
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	m, now := newTestManager()
	m.Create("old")

	*now = now.Add(59 * time.Minute)
	m.Create("fresh")

	*now = now.Add(2 * time.Minute) // "old" is now past the timeout
	if err := m.sweep(); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if m.ActiveCount() != 1 {
		t.Fatalf("expected 1 session after sweep, got %d", m.ActiveCount())
	}
	if _, ok := m.Get("fresh"); !ok {
		t.Fatal("expected fresh session to survive sweep")
	}
}

func TestShutdownClearsSessions(t *testing.T) {
	m, _ := newTestManager()
	m.Create("alice")
	m.StartCleanup(t.Context())

	m.Shutdown()
	if m.ActiveCount() != 0 {
		t.Fatalf("expected empty table after shutdown, got %d", m.ActiveCount())
	}
}

func TestConcurrentCreateAndGet(t *testing.T) {
	m, _ := newTestManager()

	done := make(chan struct{})
	for range 8 {
		go func() {
			defer func() { done <- struct{}{} }()
			for range 100 {
				m.GetOrCreate("shared")
				m.Get("shared")
			}
		}()
	}
	for range 8 {
		<-done
	}

	if m.ActiveCount() != 1 {
		t.Fatalf("expected a single shared session, got %d", m.ActiveCount())
	}
}
