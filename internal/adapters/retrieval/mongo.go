package retrieval

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agora-ai/agora/internal/domain"
)

// MongoRetriever answers queries from the long-term-memory collection via a
// text index, ordered by relevance score and bounded to topK. The ingestion
// pipeline that fills the collection lives outside this service.
type MongoRetriever struct {
	coll *mongo.Collection
	topK int
}

type memoryDoc struct {
	Content string `bson:"content"`
	Source  string `bson:"source"`
}

func NewMongoRetriever(client *mongo.Client, dbName, collection string, topK int) *MongoRetriever {
	return &MongoRetriever{
		coll: client.Database(dbName).Collection(collection),
		topK: topK,
	}
}

func (r *MongoRetriever) Retrieve(ctx context.Context, query string) ([]domain.Excerpt, error) {
	filter := bson.M{"$text": bson.M{"$search": query}}
	opts := options.Find().
		SetProjection(bson.M{"score": bson.M{"$meta": "textScore"}, "content": 1, "source": 1}).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetLimit(int64(r.topK))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("memory search: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.Excerpt
	for cursor.Next(ctx) {
		var doc memoryDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode memory doc: %w", err)
		}
		out = append(out, domain.Excerpt{Source: doc.Source, Content: doc.Content})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("memory cursor: %w", err)
	}
	return out, nil
}
