package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/agora-ai/agora/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (AGORA_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) checkpointsCol() *firestore.CollectionRef {
	return s.client.Collection("checkpoints")
}

func (s *Store) writesCol() *firestore.CollectionRef {
	return s.client.Collection("writes")
}

func (s *Store) checkpointDocRef(threadID domain.ThreadID) *firestore.DocumentRef {
	return s.checkpointsCol().Doc(string(threadID))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type checkpointDoc struct {
	ThreadID        string       `firestore:"thread_id"`
	Messages        []messageDoc `firestore:"messages"`
	Summary         string       `firestore:"summary"`
	SummarizedCount int          `firestore:"summarized_count"`
	Turns           int          `firestore:"turns"`
	UpdatedAt       time.Time    `firestore:"updated_at"`
}

type writeDoc struct {
	ThreadID string       `firestore:"thread_id"`
	Turn     int          `firestore:"turn"`
	Appended []messageDoc `firestore:"appended"`
	At       time.Time    `firestore:"at"`
}

type messageDoc struct {
	Role    string `firestore:"role"`
	Content string `firestore:"content"`
}

// ─────────────────────────────────────────
// CheckpointStore implementation
// ─────────────────────────────────────────

func (s *Store) Load(ctx context.Context, threadID domain.ThreadID) (*domain.ConversationState, error) {
	snap, err := s.checkpointDocRef(threadID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore Load: %w", err)
	}

	var doc checkpointDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore Load decode: %w", err)
	}

	return &domain.ConversationState{
		Messages:        fromMessageDocs(doc.Messages),
		Summary:         doc.Summary,
		SummarizedCount: doc.SummarizedCount,
		Turns:           doc.Turns,
	}, nil
}

func (s *Store) Commit(ctx context.Context, threadID domain.ThreadID, state *domain.ConversationState, entry domain.WriteEntry) error {
	doc := checkpointDoc{
		ThreadID:        string(threadID),
		Messages:        toMessageDocs(state.Messages),
		Summary:         state.Summary,
		SummarizedCount: state.SummarizedCount,
		Turns:           state.Turns,
		UpdatedAt:       time.Now().UTC(),
	}

	batch := s.client.Batch()
	batch.Set(s.checkpointDocRef(threadID), doc)
	batch.Create(s.writesCol().NewDoc(), writeDoc{
		ThreadID: string(threadID),
		Turn:     entry.Turn,
		Appended: toMessageDocs(entry.Appended),
		At:       entry.At,
	})

	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("firestore Commit: %w", err)
	}
	return nil
}

func (s *Store) DeleteByUserPrefix(ctx context.Context, userID domain.UserID) (int64, error) {
	prefix := domain.UserPrefix(userID)

	var deleted int64
	for _, col := range []*firestore.CollectionRef{s.checkpointsCol(), s.writesCol()} {
		// Firestore has no prefix operator; the half-open range over the
		// thread_id field covers every identifier starting with the prefix.
		q := col.Where("thread_id", ">=", prefix).Where("thread_id", "<", prefix+"")

		iter := q.Documents(ctx)
		n, err := s.deleteMatches(ctx, iter)
		iter.Stop()
		if err != nil {
			return deleted, fmt.Errorf("firestore DeleteByUserPrefix: %w", err)
		}
		deleted += n
	}
	return deleted, nil
}

func (s *Store) DeleteAll(ctx context.Context) ([]string, error) {
	var cleared []string
	for _, col := range []*firestore.CollectionRef{s.checkpointsCol(), s.writesCol()} {
		iter := col.Documents(ctx)
		_, err := s.deleteMatches(ctx, iter)
		iter.Stop()
		if err != nil {
			return cleared, fmt.Errorf("firestore DeleteAll: %w", err)
		}
		cleared = append(cleared, col.ID)
	}
	return cleared, nil
}

func (s *Store) deleteMatches(ctx context.Context, iter *firestore.DocumentIterator) (int64, error) {
	var count int64
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return count, err
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func toMessageDocs(msgs []domain.Message) []messageDoc {
	out := make([]messageDoc, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageDoc{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func fromMessageDocs(docs []messageDoc) []domain.Message {
	out := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Message{Role: domain.Role(d.Role), Content: d.Content})
	}
	return out
}
