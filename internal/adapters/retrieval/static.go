package retrieval

import (
	"context"
	"strings"

	"github.com/agora-ai/agora/internal/domain"
)

// StaticRetriever serves a fixed corpus, for development and tests. Excerpts
// whose content shares a term with the query rank first; the result is
// bounded to topK.
type StaticRetriever struct {
	corpus []domain.Excerpt
	topK   int
}

func NewStaticRetriever(corpus []domain.Excerpt, topK int) *StaticRetriever {
	return &StaticRetriever{corpus: corpus, topK: topK}
}

func (r *StaticRetriever) Retrieve(_ context.Context, query string) ([]domain.Excerpt, error) {
	terms := strings.Fields(strings.ToLower(query))

	var matched, rest []domain.Excerpt
	for _, e := range r.corpus {
		content := strings.ToLower(e.Content)
		hit := false
		for _, t := range terms {
			if strings.Contains(content, t) {
				hit = true
				break
			}
		}
		if hit {
			matched = append(matched, e)
		} else {
			rest = append(rest, e)
		}
	}

	out := append(matched, rest...)
	if len(out) > r.topK {
		out = out[:r.topK]
	}
	return out, nil
}
