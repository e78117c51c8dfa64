package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/agora-ai/agora/internal/domain"
)

// retrieveToolName is the tool the model calls to request external context
// before answering. The workflow engine guarantees at most one retrieval
// per turn regardless of how often the model asks.
const retrieveToolName = "retrieve_context"

const defaultTemperature = 0.7

// GroqConfig configures the OpenAI-compatible chat client. BaseURL defaults
// to the Groq endpoint but any compatible server works.
type GroqConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	TokenBudget int // 0 disables prompt trimming
}

// GroqClient implements domain.ResponseGenerator over an OpenAI-compatible
// chat completions API.
type GroqClient struct {
	client    *openai.Client
	model     string
	tokenizer *Tokenizer
	budget    int
}

func NewGroqClient(cfg GroqConfig) (*GroqClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("groq: api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("groq: model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &GroqClient{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		tokenizer: DefaultTokenizer(),
		budget:    cfg.TokenBudget,
	}, nil
}

func (c *GroqClient) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    c.chatMessages(req),
		Tools:       retrievalTools(),
		Temperature: defaultTemperature,
	})
	if err != nil {
		return domain.GenerateResult{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.GenerateResult{}, fmt.Errorf("chat completion returned no choices")
	}

	choice := resp.Choices[0].Message
	result := domain.GenerateResult{Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		if tc.Function.Name == retrieveToolName {
			result.RetrievalQuery = parseRetrievalQuery(tc.Function.Arguments)
			break
		}
	}
	return result, nil
}

func (c *GroqClient) GenerateStream(ctx context.Context, req domain.GenerateRequest, out chan<- string) (domain.GenerateResult, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    c.chatMessages(req),
		Tools:       retrievalTools(),
		Temperature: defaultTemperature,
		Stream:      true,
	})
	if err != nil {
		return domain.GenerateResult{}, fmt.Errorf("chat completion stream: %w", err)
	}
	defer stream.Close()

	var content string
	var toolArgs string
	var toolName string

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.GenerateResult{}, fmt.Errorf("stream recv: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			content += delta.Content
			select {
			case out <- delta.Content:
			case <-ctx.Done():
				return domain.GenerateResult{}, ctx.Err()
			}
		}
		for _, tc := range delta.ToolCalls {
			if tc.Function.Name != "" {
				toolName = tc.Function.Name
			}
			toolArgs += tc.Function.Arguments
		}
	}

	result := domain.GenerateResult{Content: content}
	if toolName == retrieveToolName {
		result.RetrievalQuery = parseRetrievalQuery(toolArgs)
	}
	return result, nil
}

func (c *GroqClient) Summarize(ctx context.Context, persona domain.Persona, existing string, msgs []domain.Message) (string, error) {
	chat := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	for _, m := range msgs {
		chat = append(chat, openai.ChatCompletionMessage{
			Role:    chatRole(m.Role),
			Content: m.Content,
		})
	}
	chat = append(chat, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: BuildSummaryInstruction(persona, existing),
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chat,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("summary completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *GroqClient) chatMessages(req domain.GenerateRequest) []openai.ChatCompletionMessage {
	window := c.tokenizer.TrimToBudget(req.Messages, c.budget)

	out := make([]openai.ChatCompletionMessage, 0, len(window)+1)
	out = append(out, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: BuildSystemPrompt(req.Persona, req.Summary, req.Context),
	})
	for _, m := range window {
		out = append(out, openai.ChatCompletionMessage{
			Role:    chatRole(m.Role),
			Content: m.Content,
		})
	}
	return out
}

func chatRole(r domain.Role) string {
	if r == domain.RoleAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}

func retrievalTools() []openai.Tool {
	return []openai.Tool{{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        retrieveToolName,
			Description: "Look up background passages about the persona's life and work when the answer needs facts beyond the conversation.",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"query": {
						Type:        jsonschema.String,
						Description: "Search query for the background corpus.",
					},
				},
				Required: []string{"query"},
			},
		},
	}}
}

func parseRetrievalQuery(args string) string {
	var payload struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		return ""
	}
	return payload.Query
}
