package mongo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agora-ai/agora/internal/domain"
)

// Store persists checkpoints in MongoDB: one collection holds the latest
// snapshot per thread, a second holds the append-only write log. Both are
// filterable by thread-identifier prefix for scoped reset.
type Store struct {
	client      *mongo.Client
	checkpoints *mongo.Collection
	writes      *mongo.Collection
}

type Config struct {
	URI                  string
	DBName               string
	CheckpointCollection string
	WritesCollection     string
}

type checkpointDoc struct {
	ThreadID        string       `bson:"thread_id"`
	Messages        []messageDoc `bson:"messages"`
	Summary         string       `bson:"summary"`
	SummarizedCount int          `bson:"summarized_count"`
	Turns           int          `bson:"turns"`
	UpdatedAt       time.Time    `bson:"updated_at"`
}

type writeDoc struct {
	ThreadID string       `bson:"thread_id"`
	Turn     int          `bson:"turn"`
	Appended []messageDoc `bson:"appended"`
	At       time.Time    `bson:"at"`
}

type messageDoc struct {
	Role    string `bson:"role"`
	Content string `bson:"content"`
}

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: uri is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(cfg.DBName)
	return &Store{
		client:      client,
		checkpoints: db.Collection(cfg.CheckpointCollection),
		writes:      db.Collection(cfg.WritesCollection),
	}, nil
}

// Client exposes the underlying connection so sibling adapters (the memory
// retriever) can share it instead of dialing twice.
func (s *Store) Client() *mongo.Client {
	return s.client
}

func (s *Store) Load(ctx context.Context, threadID domain.ThreadID) (*domain.ConversationState, error) {
	var doc checkpointDoc
	err := s.checkpoints.FindOne(ctx, bson.M{"thread_id": string(threadID)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo load %s: %w", threadID, err)
	}

	state := &domain.ConversationState{
		Messages:        fromMessageDocs(doc.Messages),
		Summary:         doc.Summary,
		SummarizedCount: doc.SummarizedCount,
		Turns:           doc.Turns,
	}
	return state, nil
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

	_, err := s.checkpoints.ReplaceOne(ctx,
		bson.M{"thread_id": string(threadID)}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo commit %s: %w", threadID, err)
	}

	_, err = s.writes.InsertOne(ctx, writeDoc{
		ThreadID: string(threadID),
		Turn:     entry.Turn,
		Appended: toMessageDocs(entry.Appended),
		At:       entry.At,
	})
	if err != nil {
		return fmt.Errorf("mongo write log %s: %w", threadID, err)
	}
	return nil
}

func (s *Store) DeleteByUserPrefix(ctx context.Context, userID domain.UserID) (int64, error) {
	filter := bson.M{"thread_id": bson.M{
		"$regex": "^" + regexp.QuoteMeta(domain.UserPrefix(userID)),
	}}

	var deleted int64
	for _, coll := range []*mongo.Collection{s.checkpoints, s.writes} {
		res, err := coll.DeleteMany(ctx, filter)
		if err != nil {
			return deleted, fmt.Errorf("mongo scoped delete in %s: %w", coll.Name(), err)
		}
		deleted += res.DeletedCount
	}
	return deleted, nil
}

func (s *Store) DeleteAll(ctx context.Context) ([]string, error) {
	var cleared []string
	for _, coll := range []*mongo.Collection{s.checkpoints, s.writes} {
		if err := coll.Drop(ctx); err != nil {
			return cleared, fmt.Errorf("mongo drop %s: %w", coll.Name(), err)
		}
		cleared = append(cleared, coll.Name())
	}
	return cleared, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
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
