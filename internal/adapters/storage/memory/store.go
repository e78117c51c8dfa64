package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/agora-ai/agora/internal/domain"
)

// Store is an in-memory CheckpointStore for development and tests. State is
// deep-copied on both commit and load so callers never alias stored slices.
type Store struct {
	mu          sync.RWMutex
	checkpoints map[domain.ThreadID]*domain.ConversationState
	writes      map[domain.ThreadID][]domain.WriteEntry
}

func NewStore() *Store {
	return &Store{
		checkpoints: make(map[domain.ThreadID]*domain.ConversationState),
		writes:      make(map[domain.ThreadID][]domain.WriteEntry),
	}
}

func (s *Store) Load(_ context.Context, threadID domain.ThreadID) (*domain.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.checkpoints[threadID]
	if !ok {
		return nil, nil
	}
	return state.Clone(), nil
}

func (s *Store) Commit(_ context.Context, threadID domain.ThreadID, state *domain.ConversationState, entry domain.WriteEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints[threadID] = state.Clone()
	s.writes[threadID] = append(s.writes[threadID], entry)
	return nil
}

func (s *Store) DeleteByUserPrefix(_ context.Context, userID domain.UserID) (int64, error) {
	prefix := domain.UserPrefix(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id := range s.checkpoints {
		if strings.HasPrefix(string(id), prefix) {
			delete(s.checkpoints, id)
			deleted++
		}
	}
	for id, entries := range s.writes {
		if strings.HasPrefix(string(id), prefix) {
			deleted += int64(len(entries))
			delete(s.writes, id)
		}
	}
	return deleted, nil
}

func (s *Store) DeleteAll(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints = make(map[domain.ThreadID]*domain.ConversationState)
	s.writes = make(map[domain.ThreadID][]domain.WriteEntry)
	return []string{"checkpoints", "writes"}, nil
}

func (s *Store) Close() error {
	return nil
}

// WriteLog returns the write-log entries recorded for a thread. Test helper.
func (s *Store) WriteLog(threadID domain.ThreadID) []domain.WriteEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WriteEntry, len(s.writes[threadID]))
	copy(out, s.writes[threadID])
	return out
}
