package domain

import "context"

// CheckpointStore is the durable persistence contract for conversation
// state. One checkpoint record exists per thread identifier; Commit replaces
// it atomically and appends the turn's write-log entry. The store is the
// sole source of truth for conversation history across process restarts.
type CheckpointStore interface {
	// Load returns the checkpoint for the thread, or nil when none exists.
	Load(ctx context.Context, threadID ThreadID) (*ConversationState, error)

	// Commit replaces the thread's checkpoint and appends entry to its
	// write log. Either both take effect or neither does.
	Commit(ctx context.Context, threadID ThreadID, state *ConversationState, entry WriteEntry) error

	// DeleteByUserPrefix removes every checkpoint and write-log record
	// whose thread identifier starts with "{userID}:". Returns the number
	// of records removed.
	DeleteByUserPrefix(ctx context.Context, userID UserID) (int64, error)

	// DeleteAll drops all conversation-state collections and returns the
	// names of the collections cleared.
	DeleteAll(ctx context.Context) ([]string, error)

	Close() error
}

// GenerateRequest is the full prompt context for one generator invocation:
// persona parameters, the running summary, the retained message window with
// this turn's input appended, and any excerpts retrieved this turn.
type GenerateRequest struct {
	Persona  Persona
	Summary  string
	Messages []Message
	Context  []Excerpt
}

// GenerateResult is the generator's reply. A non-empty RetrievalQuery is the
// tool-style signal that the generator wants external context before
// answering.
type GenerateResult struct {
	Content        string
	RetrievalQuery string
}

// ResponseGenerator is the language-model contract the workflow engine
// consumes. Implementations must honor ctx cancellation on every call.
type ResponseGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)

	// GenerateStream behaves like Generate but pushes partial content
	// fragments to out as they are produced. The channel is owned by the
	// caller and is not closed by the generator.
	GenerateStream(ctx context.Context, req GenerateRequest, out chan<- string) (GenerateResult, error)

	// Summarize compresses msgs into a new summary string. When existing is
	// non-empty it is extended rather than recreated.
	Summarize(ctx context.Context, persona Persona, existing string, msgs []Message) (string, error)
}

// Retriever is the black-box semantic retrieval contract: a query in, an
// ordered bounded list of excerpts out.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Excerpt, error)
}
