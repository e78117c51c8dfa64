package dialogue

import (
	"fmt"

	"github.com/agora-ai/agora/internal/domain"
)

// Input is the normalized form of a turn's incoming messages. The transport
// layer accepts a single string, a list of strings, or role/content records;
// all three collapse into this one representation at the boundary.
type Input struct {
	messages []domain.Message
}

// TextInput wraps a single user utterance.
func TextInput(text string) Input {
	return Input{messages: []domain.Message{{Role: domain.RoleUser, Content: text}}}
}

// TextsInput wraps a list of user utterances, in order.
func TextsInput(texts []string) Input {
	msgs := make([]domain.Message, 0, len(texts))
	for _, t := range texts {
		msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: t})
	}
	return Input{messages: msgs}
}

// MessagesInput wraps explicit role/content records. Roles other than
// "user" and "assistant" are rejected.
func MessagesInput(msgs []domain.Message) (Input, error) {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case domain.RoleUser, domain.RoleAssistant:
			out = append(out, m)
		default:
			return Input{}, fmt.Errorf("%w: unknown message role %q", domain.ErrInvalidRequest, m.Role)
		}
	}
	return Input{messages: out}, nil
}

// Messages returns the normalized ordered messages.
func (in Input) Messages() []domain.Message {
	return in.messages
}

// Empty reports whether the input carries no content.
func (in Input) Empty() bool {
	for _, m := range in.messages {
		if m.Content != "" {
			return false
		}
	}
	return true
}
