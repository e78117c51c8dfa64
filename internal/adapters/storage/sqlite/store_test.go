package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/agora-ai/agora/internal/adapters/storage/sqlite"
	"github.com/agora-ai/agora/internal/domain"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleState() *domain.ConversationState {
	return &domain.ConversationState{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "hello"},
			{Role: domain.RoleAssistant, Content: "greetings"},
		},
		Summary:         "a short chat",
		SummarizedCount: 4,
		Turns:           3,
	}
}

func sampleEntry(state *domain.ConversationState) domain.WriteEntry {
	return domain.WriteEntry{
		Turn:     state.Turns,
		Appended: state.Messages,
		At:       time.Now().UTC(),
	}
}

func TestLoadAbsentThread(t *testing.T) {
	store := newTestStore(t)

	state, err := store.Load(context.Background(), "alice:socrates")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if state != nil {
		t.Fatalf("expected nil for an absent thread, got %+v", state)
	}
}

func TestCommitAndLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := sampleState()
	if err := store.Commit(ctx, "alice:socrates", want, sampleEntry(want)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := store.Load(ctx, "alice:socrates")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("expected a checkpoint")
	}
	if got.Summary != want.Summary || got.SummarizedCount != want.SummarizedCount || got.Turns != want.Turns {
		t.Fatalf("state mismatch: got %+v, want %+v", got, want)
	}
	if len(got.Messages) != 2 || got.Messages[0].Content != "hello" {
		t.Fatalf("messages mismatch: %+v", got.Messages)
	}
}

func TestCommitReplacesSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := sampleState()
	if err := store.Commit(ctx, "alice:socrates", first, sampleEntry(first)); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	second := sampleState()
	second.Turns = 4
	second.Summary = "a longer chat"
	if err := store.Commit(ctx, "alice:socrates", second, sampleEntry(second)); err != nil {
		t.Fatalf("second commit: %v", err)
	}

	got, err := store.Load(ctx, "alice:socrates")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Turns != 4 || got.Summary != "a longer chat" {
		t.Fatalf("expected the latest snapshot, got %+v", got)
	}
}

func TestDeleteByUserPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := sampleState()
	for _, id := range []domain.ThreadID{"alice:socrates", "alice:plato", "alicia:socrates", "bob:socrates"} {
		if err := store.Commit(ctx, id, state, sampleEntry(state)); err != nil {
			t.Fatalf("seeding %s: %v", id, err)
		}
	}

	// Two checkpoints plus two write-log rows carry the alice: prefix.
	deleted, err := store.DeleteByUserPrefix(ctx, "alice")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 4 {
		t.Fatalf("expected 4 deleted rows, got %d", deleted)
	}

	for id, want := range map[domain.ThreadID]bool{
		"alice:socrates":  false,
		"alice:plato":     false,
		"alicia:socrates": true,
		"bob:socrates":    true,
	} {
		got, err := store.Load(ctx, id)
		if err != nil {
			t.Fatalf("load %s: %v", id, err)
		}
		if (got != nil) != want {
			t.Fatalf("thread %s: present=%v, want %v", id, got != nil, want)
		}
	}
}

func TestDeleteAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	state := sampleState()
	if err := store.Commit(ctx, "alice:socrates", state, sampleEntry(state)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	cleared, err := store.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if len(cleared) != 2 {
		t.Fatalf("expected both tables cleared, got %v", cleared)
	}

	got, err := store.Load(ctx, "alice:socrates")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatal("expected no checkpoints after a global reset")
	}
}
