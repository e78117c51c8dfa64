package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/agora-ai/agora/internal/domain"
)

// VertexConfig configures the Vertex AI (Gemini) generator backend.
type VertexConfig struct {
	ProjectID   string
	Location    string
	Model       string
	TokenBudget int
}

// VertexClient implements domain.ResponseGenerator on Vertex AI. Gemini is
// used without the retrieval tool: replies never request external context,
// which the workflow engine treats as going straight to termination.
type VertexClient struct {
	client    *genai.Client
	model     string
	tokenizer *Tokenizer
	budget    int
}

func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("vertex: project and location are required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vertex client: %w", err)
	}

	return &VertexClient{
		client:    client,
		model:     model,
		tokenizer: DefaultTokenizer(),
		budget:    cfg.TokenBudget,
	}, nil
}

func (v *VertexClient) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	contents, cfg := v.request(req)

	res, err := v.client.Models.GenerateContent(ctx, v.model, contents, cfg)
	if err != nil {
		return domain.GenerateResult{}, fmt.Errorf("vertex generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return domain.GenerateResult{}, fmt.Errorf("vertex returned empty text")
	}
	return domain.GenerateResult{Content: text}, nil
}

func (v *VertexClient) GenerateStream(ctx context.Context, req domain.GenerateRequest, out chan<- string) (domain.GenerateResult, error) {
	contents, cfg := v.request(req)

	var content string
	for chunk, err := range v.client.Models.GenerateContentStream(ctx, v.model, contents, cfg) {
		if err != nil {
			return domain.GenerateResult{}, fmt.Errorf("vertex stream: %w", err)
		}
		text := chunk.Text()
		if text == "" {
			continue
		}
		content += text
		select {
		case out <- text:
		case <-ctx.Done():
			return domain.GenerateResult{}, ctx.Err()
		}
	}

	return domain.GenerateResult{Content: content}, nil
}

func (v *VertexClient) Summarize(ctx context.Context, persona domain.Persona, existing string, msgs []domain.Message) (string, error) {
	contents := make([]*genai.Content, 0, len(msgs)+1)
	for _, m := range msgs {
		contents = append(contents, genai.NewContentFromText(m.Content, genaiRole(m.Role)))
	}
	contents = append(contents, genai.NewContentFromText(
		BuildSummaryInstruction(persona, existing), genai.RoleUser))

	res, err := v.client.Models.GenerateContent(ctx, v.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("vertex summarize: %w", err)
	}
	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("vertex returned empty summary")
	}
	return text, nil
}

func (v *VertexClient) request(req domain.GenerateRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	window := v.tokenizer.TrimToBudget(req.Messages, v.budget)

	contents := make([]*genai.Content, 0, len(window))
	for _, m := range window {
		contents = append(contents, genai.NewContentFromText(m.Content, genaiRole(m.Role)))
	}

	temp := float32(defaultTemperature)
	topP := float32(0.9)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			BuildSystemPrompt(req.Persona, req.Summary, req.Context), genai.RoleUser),
		Temperature:     &temp,
		TopP:            &topP,
		MaxOutputTokens: 8192,
	}
	return contents, cfg
}

func genaiRole(r domain.Role) genai.Role {
	if r == domain.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}
