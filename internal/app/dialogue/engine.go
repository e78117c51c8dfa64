package dialogue

import (
	"context"
	"fmt"

	"github.com/agora-ai/agora/internal/domain"
	"github.com/agora-ai/agora/internal/observability"
)

// Engine drives one conversational turn through the workflow state machine.
// It holds no per-thread state: everything mutable lives in the turn and in
// the ConversationState it carries.
type Engine struct {
	generator domain.ResponseGenerator
	retriever domain.Retriever

	summarizeTrigger   int
	retainAfterSummary int
	topK               int
}

func NewEngine(
	generator domain.ResponseGenerator,
	retriever domain.Retriever,
	summarizeTrigger, retainAfterSummary, topK int,
) *Engine {
	return &Engine{
		generator:          generator,
		retriever:          retriever,
		summarizeTrigger:   summarizeTrigger,
		retainAfterSummary: retainAfterSummary,
		topK:               topK,
	}
}

// run executes the state machine for one turn. On success the turn's
// conversation state has the input and reply appended, ready to commit. On
// failure the caller must discard the state: nothing is persisted here.
func (e *Engine) run(ctx context.Context, t *turn) error {
	log := observability.LoggerFromContext(ctx).With("thread_id", t.threadID)

	for s := next(stateStart, t, e.summarizeTrigger); s != stateEnd; s = next(s, t, e.summarizeTrigger) {
		log.Debug("workflow transition", "state", s.String())

		var err error
		switch s {
		case stateSummarize:
			err = e.summarize(ctx, t)
		case stateConverse:
			err = e.converse(ctx, t)
		case stateRetrieve:
			err = e.retrieve(ctx, t)
		}
		if err != nil {
			return fmt.Errorf("state %s: %w", s, err)
		}
	}

	// The transcript mutation happens once, after the machine has
	// terminated: input first, then the reply.
	t.conv.Messages = append(t.conv.Messages, t.input...)
	t.conv.Messages = append(t.conv.Messages, domain.Message{
		Role:    domain.RoleAssistant,
		Content: t.reply,
	})
	t.conv.Turns++

	return nil
}

// summarize folds everything in the window except the most recent
// retainAfterSummary messages into the running summary, then truncates the
// window. The boundary marker only advances, so no message is summarized
// twice.
func (e *Engine) summarize(ctx context.Context, t *turn) error {
	keep := e.retainAfterSummary
	if keep >= len(t.conv.Messages) {
		return nil
	}

	cut := len(t.conv.Messages) - keep
	folded := t.conv.Messages[:cut]

	summary, err := e.generator.Summarize(ctx, t.persona, t.conv.Summary, folded)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	retained := make([]domain.Message, keep)
	copy(retained, t.conv.Messages[cut:])

	t.conv.Summary = summary
	t.conv.Messages = retained
	t.conv.SummarizedCount += cut

	observability.LoggerFromContext(ctx).Info("conversation summarized",
		"thread_id", t.threadID, "folded", cut, "retained", keep)
	return nil
}

// converse invokes the response generator with the persona, summary,
// retained window plus this turn's input, and any excerpts retrieved this
// turn. A retrieval request from the generator is honored at most once per
// turn; after that the machine is forced to terminate.
func (e *Engine) converse(ctx context.Context, t *turn) error {
	prompt := make([]domain.Message, 0, len(t.conv.Messages)+len(t.input))
	prompt = append(prompt, t.conv.Messages...)
	prompt = append(prompt, t.input...)

	req := domain.GenerateRequest{
		Persona:  t.persona,
		Summary:  t.conv.Summary,
		Messages: prompt,
		Context:  t.excerpts,
	}

	var (
		res domain.GenerateResult
		err error
	)
	if t.stream != nil {
		res, err = e.generator.GenerateStream(ctx, req, t.stream)
	} else {
		res, err = e.generator.Generate(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrGeneration, err)
	}

	t.reply = res.Content
	if res.RetrievalQuery != "" && !t.retrieved {
		t.pendingQuery = res.RetrievalQuery
	} else {
		t.pendingQuery = ""
	}
	return nil
}

// retrieve resolves the pending query into at most topK excerpts, attached
// to the next converse step only. Excerpts never enter the transcript.
func (e *Engine) retrieve(ctx context.Context, t *turn) error {
	query := t.pendingQuery
	t.pendingQuery = ""
	t.retrieved = true

	excerpts, err := e.retriever.Retrieve(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}
	if len(excerpts) > e.topK {
		excerpts = excerpts[:e.topK]
	}
	t.excerpts = excerpts

	observability.LoggerFromContext(ctx).Info("context retrieved",
		"thread_id", t.threadID, "query", query, "excerpts", len(excerpts))
	return nil
}
