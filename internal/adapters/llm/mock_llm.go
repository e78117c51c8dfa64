package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agora-ai/agora/internal/domain"
)

// MockClient is a deterministic ResponseGenerator for development and
// tests. The function fields override the canned behavior when set.
type MockClient struct {
	GenerateFunc  func(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error)
	SummarizeFunc func(ctx context.Context, persona domain.Persona, existing string, msgs []domain.Message) (string, error)
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}

	last := ""
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}
	return domain.GenerateResult{
		Content: fmt.Sprintf("%s ponders: %q. Tell me more.", req.Persona.Name, last),
	}, nil
}

func (m *MockClient) GenerateStream(ctx context.Context, req domain.GenerateRequest, out chan<- string) (domain.GenerateResult, error) {
	res, err := m.Generate(ctx, req)
	if err != nil {
		return domain.GenerateResult{}, err
	}

	// deliver the canned reply word by word
	for _, word := range strings.SplitAfter(res.Content, " ") {
		select {
		case out <- word:
		case <-ctx.Done():
			return domain.GenerateResult{}, ctx.Err()
		}
	}
	return res, nil
}

func (m *MockClient) Summarize(ctx context.Context, persona domain.Persona, existing string, msgs []domain.Message) (string, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, persona, existing, msgs)
	}

	summary := fmt.Sprintf("%s and the user exchanged %d messages", persona.Name, len(msgs))
	if existing != "" {
		return existing + "; " + summary, nil
	}
	return summary, nil
}
