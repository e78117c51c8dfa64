package dialogue_test

import (
	"errors"
	"testing"

	"github.com/agora-ai/agora/internal/app/dialogue"
	"github.com/agora-ai/agora/internal/domain"
)

func TestTextInput(t *testing.T) {
	in := dialogue.TextInput("hello")
	msgs := in.Messages()
	if len(msgs) != 1 || msgs[0].Role != domain.RoleUser || msgs[0].Content != "hello" {
		t.Fatalf("unexpected normalization: %+v", msgs)
	}
}

func TestTextsInputPreservesOrder(t *testing.T) {
	in := dialogue.TextsInput([]string{"one", "two", "three"})
	msgs := in.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if msgs[i].Content != want || msgs[i].Role != domain.RoleUser {
			t.Fatalf("message %d: %+v", i, msgs[i])
		}
	}
}

func TestMessagesInput(t *testing.T) {
	in, err := dialogue.MessagesInput([]domain.Message{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello there"},
	})
	if err != nil {
		t.Fatalf("MessagesInput failed: %v", err)
	}
	if len(in.Messages()) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(in.Messages()))
	}

	_, err = dialogue.MessagesInput([]domain.Message{{Role: "system", Content: "nope"}})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for unknown role, got %v", err)
	}
}

func TestEmpty(t *testing.T) {
	if !dialogue.TextInput("").Empty() {
		t.Fatal("blank input should be empty")
	}
	if dialogue.TextInput("x").Empty() {
		t.Fatal("non-blank input should not be empty")
	}
	if !(dialogue.Input{}).Empty() {
		t.Fatal("zero input should be empty")
	}
}
