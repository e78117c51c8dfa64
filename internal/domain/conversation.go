package domain

import "time"

// Message is one entry in a dialogue transcript. Insertion order is
// significant.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Persona carries the parameters that drive the response generator for a
// thread. Personas are supplied per turn and echoed into every prompt; they
// are not part of the persisted conversation identity.
type Persona struct {
	ID          PersonaID `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Perspective string    `json:"perspective" yaml:"perspective"`
	Style       string    `json:"style" yaml:"style"`
	Context     string    `json:"context,omitempty" yaml:"context,omitempty"`
	Greeting    string    `json:"greeting,omitempty" yaml:"greeting,omitempty"`
}

// ConversationState is the per-thread mutable record checkpointed after
// every turn.
//
// Messages holds only the retained window: messages accumulated since the
// last summarization boundary. Summary, when non-empty, is a compression of
// every message that preceded the current window. SummarizedCount is the
// boundary marker: the number of messages folded into Summary over the
// lifetime of the thread. It only ever grows, so no message is summarized
// twice.
type ConversationState struct {
	Messages        []Message `json:"messages"`
	Summary         string    `json:"summary,omitempty"`
	SummarizedCount int       `json:"summarized_count"`
	Turns           int       `json:"turns"`
}

// Clone returns a deep copy, so stored state cannot be mutated through
// aliased slices.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return &out
}

// WriteEntry is one record of the append-only write log: the messages a
// single committed turn added to the thread.
type WriteEntry struct {
	Turn     int       `json:"turn"`
	Appended []Message `json:"appended"`
	At       time.Time `json:"at"`
}

// Excerpt is one retrieved context passage. Excerpts are ephemeral: they are
// folded into a single turn's prompt and never persisted into the
// transcript.
type Excerpt struct {
	Source  string `json:"source,omitempty"`
	Content string `json:"content"`
}
