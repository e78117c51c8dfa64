package dialogue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agora-ai/agora/internal/app/personas"
	"github.com/agora-ai/agora/internal/app/session"
	"github.com/agora-ai/agora/internal/domain"
	"github.com/agora-ai/agora/internal/observability"
)

// streamBuffer bounds the fragment channel handed to consumers; producers
// block (or abort on cancellation) once the consumer falls this far behind.
const streamBuffer = 32

// TurnRequest is one normalized request/response cycle against a thread.
type TurnRequest struct {
	UserID    string
	PersonaID string
	Input     Input

	// NewThread starts from empty state under a disposable identifier that
	// never pollutes the user's persistent history.
	NewThread bool
}

// TurnResult carries the reply and the state committed for the turn.
type TurnResult struct {
	Reply    string
	ThreadID domain.ThreadID
	State    *domain.ConversationState
	UserID   domain.UserID
}

// Service orchestrates turns: it resolves sessions and personas, serializes
// turns per thread, runs the workflow engine, and commits checkpoints.
type Service struct {
	sessions *session.Manager
	registry *personas.Registry
	store    domain.CheckpointStore
	engine   *Engine
	now      func() time.Time

	locks threadLocks
}

func NewService(
	sessions *session.Manager,
	registry *personas.Registry,
	store domain.CheckpointStore,
	engine *Engine,
) *Service {
	return &Service{
		sessions: sessions,
		registry: registry,
		store:    store,
		engine:   engine,
		now:      time.Now,
	}
}

// Converse runs one turn to completion and returns the final reply. Any
// failure from persistence, generation, or retrieval aborts the turn; no
// partial checkpoint is committed.
func (s *Service) Converse(ctx context.Context, req TurnRequest) (TurnResult, error) {
	res, err := s.runTurn(ctx, req, nil)
	if err != nil {
		return TurnResult{}, fmt.Errorf("conversation turn: %w", err)
	}
	return res, nil
}

// ConverseStream runs one turn, delivering the reply incrementally. The
// fragment channel is closed when the turn finishes; exactly one value is
// then available on the error channel (nil on success). Cancelling ctx
// aborts the turn without committing.
func (s *Service) ConverseStream(ctx context.Context, req TurnRequest) (<-chan string, <-chan error) {
	frags := make(chan string, streamBuffer)
	errc := make(chan error, 1)

	go func() {
		defer close(frags)
		_, err := s.runTurn(ctx, req, frags)
		if err != nil {
			errc <- fmt.Errorf("streaming conversation turn: %w", err)
			return
		}
		errc <- nil
	}()

	return frags, errc
}

func (s *Service) runTurn(ctx context.Context, req TurnRequest, stream chan<- string) (TurnResult, error) {
	if req.PersonaID == "" {
		return TurnResult{}, fmt.Errorf("%w: persona_id is required", domain.ErrInvalidRequest)
	}
	if req.Input.Empty() {
		return TurnResult{}, fmt.Errorf("%w: message is required", domain.ErrInvalidRequest)
	}

	// Unknown personas fail before any state transition.
	persona, err := s.registry.Get(req.PersonaID)
	if err != nil {
		return TurnResult{}, err
	}

	sess := s.sessions.GetOrCreate(domain.UserID(req.UserID))

	var threadID domain.ThreadID
	if req.NewThread {
		threadID = s.sessions.NewThreadID(sess.UserID, persona.ID)
	} else {
		threadID = s.sessions.ThreadID(sess.UserID, persona.ID)
	}

	// At most one in-flight turn per thread: a turn must observe every
	// prior committed turn for its thread.
	unlock := s.locks.lock(threadID)
	defer unlock()

	conv, err := s.store.Load(ctx, threadID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("%w: load checkpoint: %w", domain.ErrPersistence, err)
	}
	if conv == nil {
		conv = &domain.ConversationState{}
	}

	t := &turn{
		threadID: threadID,
		persona:  persona,
		conv:     conv,
		input:    req.Input.Messages(),
		stream:   stream,
	}

	if err := s.engine.run(ctx, t); err != nil {
		return TurnResult{}, err
	}

	appended := make([]domain.Message, 0, len(t.input)+1)
	appended = append(appended, t.input...)
	appended = append(appended, domain.Message{Role: domain.RoleAssistant, Content: t.reply})

	entry := domain.WriteEntry{
		Turn:     conv.Turns,
		Appended: appended,
		At:       s.now(),
	}
	if err := s.store.Commit(ctx, threadID, conv, entry); err != nil {
		return TurnResult{}, fmt.Errorf("%w: commit checkpoint: %w", domain.ErrPersistence, err)
	}

	observability.LoggerFromContext(ctx).Info("turn committed",
		"thread_id", threadID, "turn", conv.Turns, "window", len(conv.Messages))

	return TurnResult{
		Reply:    t.reply,
		ThreadID: threadID,
		State:    conv,
		UserID:   sess.UserID,
	}, nil
}

// threadLocks serializes turns per thread identifier. Entries are small and
// kept for the life of the process.
type threadLocks struct {
	mu sync.Mutex
	m  map[domain.ThreadID]*sync.Mutex
}

func (l *threadLocks) lock(id domain.ThreadID) (unlock func()) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[domain.ThreadID]*sync.Mutex)
	}
	tl, ok := l.m[id]
	if !ok {
		tl = &sync.Mutex{}
		l.m[id] = tl
	}
	l.mu.Unlock()

	tl.Lock()
	return tl.Unlock
}
