package dialogue

import "github.com/agora-ai/agora/internal/domain"

// state enumerates the workflow states of a single conversational turn.
type state int

const (
	stateStart state = iota
	stateSummarize
	stateConverse
	stateRetrieve
	stateEnd
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateSummarize:
		return "summarize"
	case stateConverse:
		return "converse"
	case stateRetrieve:
		return "retrieve"
	case stateEnd:
		return "end"
	default:
		return "unknown"
	}
}

// turn is the working state of one request/response cycle. Nothing here
// outlives the turn except through the committed checkpoint.
type turn struct {
	threadID domain.ThreadID
	persona  domain.Persona
	conv     *domain.ConversationState
	input    []domain.Message

	// retrieval bookkeeping for the single-hop invariant
	pendingQuery string
	retrieved    bool
	excerpts     []domain.Excerpt

	reply string

	// stream, when non-nil, receives partial content fragments produced
	// during converse. Fragments from other states are never surfaced.
	stream chan<- string
}

// next is the pure transition function of the turn state machine.
//
//	start      → summarize   when the retained window reached the trigger
//	start      → converse    otherwise
//	summarize  → converse    always
//	converse   → retrieve    when the generator requested context and no
//	                         retrieval happened yet this turn
//	converse   → end         otherwise
//	retrieve   → converse    always
//
// The retrieved flag enforces the single-hop invariant: once a retrieval
// has run, converse can only transition to end, so the machine always
// terminates.
func next(s state, t *turn, summarizeTrigger int) state {
	switch s {
	case stateStart:
		if len(t.conv.Messages) >= summarizeTrigger {
			return stateSummarize
		}
		return stateConverse
	case stateSummarize:
		return stateConverse
	case stateConverse:
		if t.pendingQuery != "" && !t.retrieved {
			return stateRetrieve
		}
		return stateEnd
	case stateRetrieve:
		return stateConverse
	default:
		return stateEnd
	}
}
