package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/agora-ai/agora/internal/app/dialogue"
	"github.com/agora-ai/agora/internal/app/personas"
	"github.com/agora-ai/agora/internal/app/reset"
	"github.com/agora-ai/agora/internal/app/session"
	"github.com/agora-ai/agora/internal/domain"
	"github.com/agora-ai/agora/internal/observability"
)

type Server struct {
	dialogue *dialogue.Service
	sessions *session.Manager
	registry *personas.Registry
	reset    *reset.Service
}

func NewServer(
	dlg *dialogue.Service,
	sessions *session.Manager,
	registry *personas.Registry,
	rst *reset.Service,
) http.Handler {
	s := &Server{dialogue: dlg, sessions: sessions, registry: registry, reset: rst}
	mux := http.NewServeMux()

	// /session      → POST: create or refresh a session
	// /chat         → POST: run one conversation turn
	// /chat/stream  → POST: run one turn, reply streamed as SSE
	// /reset-memory → POST: erase conversation state
	// /personas     → GET: list available personas
	// /healthz      → GET: liveness probe
	mux.HandleFunc("/session", s.handleSession)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/chat/stream", s.handleChatStream)
	mux.HandleFunc("/reset-memory", s.handleResetMemory)
	mux.HandleFunc("/personas", s.handlePersonas)
	mux.HandleFunc("/healthz", s.handleHealth)

	return chainMiddlewares(mux, withRequestID, withCORS, withLogging)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type createSessionResponse struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

// chatRequest accepts the message field in three shapes: a string, a list of
// strings, or a list of role/content records. Decoding is deferred until the
// shape is known.
type chatRequest struct {
	UserID    string          `json:"user_id"`
	PersonaID string          `json:"persona_id"`
	Message   json.RawMessage `json:"message"`
	NewThread bool            `json:"new_thread,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	PersonaID string `json:"persona_id"`
	UserID    string `json:"user_id"`
	ThreadID  string `json:"thread_id"`
}

type resetRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type personasResponse struct {
	Personas []personaSummary `json:"personas"`
}

type personaSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Greeting string `json:"greeting,omitempty"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	sess := s.sessions.GetOrCreate(domain.UserID(req.UserID))
	writeJSON(w, http.StatusCreated, createSessionResponse{
		UserID:    string(sess.UserID),
		CreatedAt: sess.CreatedAt,
		Message:   "session ready",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	req, in, ok := s.decodeChat(w, r)
	if !ok {
		return
	}

	out, err := s.dialogue.Converse(r.Context(), dialogue.TurnRequest{
		UserID:    req.UserID,
		PersonaID: req.PersonaID,
		Input:     in,
		NewThread: req.NewThread,
	})
	if err != nil {
		serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  out.Reply,
		PersonaID: req.PersonaID,
		UserID:    string(out.UserID),
		ThreadID:  string(out.ThreadID),
	})
}

// handleChatStream delivers the reply incrementally over SSE: one "chunk"
// event per fragment, a final "done" event carrying the full reply, or an
// "error" event if the turn fails mid-stream.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	req, in, ok := s.decodeChat(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		internalError(w, fmt.Errorf("response writer does not support streaming"))
		return
	}

	frags, errc := s.dialogue.ConverseStream(r.Context(), dialogue.TurnRequest{
		UserID:    req.UserID,
		PersonaID: req.PersonaID,
		Input:     in,
		NewThread: req.NewThread,
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for frag := range frags {
		writeSSE(w, "chunk", map[string]string{"content": frag})
		flusher.Flush()
	}

	if err := <-errc; err != nil {
		observability.LoggerFromContext(r.Context()).Error("streaming turn failed", "error", err)
		writeSSE(w, "error", map[string]string{"error": publicError(err)})
		flusher.Flush()
		return
	}

	writeSSE(w, "done", map[string]string{})
	flusher.Flush()
}

func (s *Server) handleResetMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req resetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	res, err := s.reset.Reset(r.Context(), req.UserID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	ids := s.registry.IDs()
	out := make([]personaSummary, 0, len(ids))
	for _, id := range ids {
		p, err := s.registry.Get(id)
		if err != nil {
			continue
		}
		out = append(out, personaSummary{
			ID:       string(p.ID),
			Name:     p.Name,
			Greeting: p.Greeting,
		})
	}
	writeJSON(w, http.StatusOK, personasResponse{Personas: out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

// ─────────────────────────────────────────────
// Request decoding
// ─────────────────────────────────────────────

func (s *Server) decodeChat(w http.ResponseWriter, r *http.Request) (chatRequest, dialogue.Input, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return chatRequest{}, dialogue.Input{}, false
	}
	if req.PersonaID == "" {
		badRequest(w, "persona_id is required")
		return chatRequest{}, dialogue.Input{}, false
	}

	in, err := decodeMessageField(req.Message)
	if err != nil {
		badRequest(w, err.Error())
		return chatRequest{}, dialogue.Input{}, false
	}
	return req, in, true
}

// decodeMessageField probes the three accepted shapes in order of cost.
func decodeMessageField(raw json.RawMessage) (dialogue.Input, error) {
	if len(raw) == 0 {
		return dialogue.Input{}, errors.New("message is required")
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return dialogue.TextInput(text), nil
	}

	var texts []string
	if err := json.Unmarshal(raw, &texts); err == nil {
		return dialogue.TextsInput(texts), nil
	}

	var records []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return dialogue.Input{}, errors.New("message must be a string, a list of strings, or a list of {role, content} objects")
	}

	msgs := make([]domain.Message, 0, len(records))
	for _, rec := range records {
		msgs = append(msgs, domain.Message{Role: domain.Role(rec.Role), Content: rec.Content})
	}
	in, err := dialogue.MessagesInput(msgs)
	if err != nil {
		return dialogue.Input{}, err
	}
	return in, nil
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}

// serviceError maps domain error classes onto HTTP statuses. Anything outside
// the taxonomy is a 500 with details kept out of the response body.
func serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		badRequest(w, publicError(err))
	case errors.Is(err, domain.ErrPersonaNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": publicError(err)})
	default:
		observability.LoggerFromContext(r.Context()).Error("request failed",
			"path", r.URL.Path, "error", err)
		internalError(w, err)
	}
}

// publicError strips the service-layer wrapping prefix from client-visible
// messages but keeps the classification text.
func publicError(err error) string {
	switch {
	case errors.Is(err, domain.ErrPersonaNotFound):
		return "persona not found"
	case errors.Is(err, domain.ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, domain.ErrGeneration):
		return "response generation failed"
	case errors.Is(err, domain.ErrRetrieval):
		return "context retrieval failed"
	case errors.Is(err, domain.ErrPersistence):
		return "conversation state could not be saved"
	default:
		return "internal server error"
	}
}
