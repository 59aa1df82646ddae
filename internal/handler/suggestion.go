package handler

import (
	"log/slog"
	"net/http"

	"docasst/internal/httputil"
	"docasst/internal/service/session"
)

// SuggestionHandler handles AI-suggestion HTTP requests
type SuggestionHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(sessions *session.Manager, logger *slog.Logger) *SuggestionHandler {
	return &SuggestionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// RequestSuggestionsPayload asks for AI edits over a selection's scope.
type RequestSuggestionsPayload struct {
	Selection   session.SelectionRef `json:"selection"`
	Instruction string               `json:"instruction"`
}

// ListSuggestions lists a document's suggestions
// GET /api/documents/{id}/suggestions
func (h *SuggestionHandler) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": s.Suggestions(),
	})
}

// RequestSuggestions asks the AI provider for edits and registers them
// POST /api/documents/{id}/suggestions
func (h *SuggestionHandler) RequestSuggestions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	var payload RequestSuggestionsPayload
	if err := httputil.ParseJSON(w, r, &payload); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.RequestSuggestions(r.Context(), payload.Selection, payload.Instruction)
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"suggestions": created,
	})
}

// AcceptSuggestion applies a suggestion to the document
// POST /api/documents/{id}/suggestions/{suggestionID}/accept
func (h *SuggestionHandler) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	sugg, err := s.AcceptSuggestion(r.Context(), r.PathValue("suggestionID"), httputil.GetUserID(r))
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sugg)
}

// RejectSuggestion rejects a suggestion, leaving the text untouched
// POST /api/documents/{id}/suggestions/{suggestionID}/reject
func (h *SuggestionHandler) RejectSuggestion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	sugg, err := s.RejectSuggestion(r.Context(), r.PathValue("suggestionID"), httputil.GetUserID(r))
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sugg)
}

// SuggestionHighlights resolves a suggestion's anchor for rendering
// GET /api/documents/{id}/suggestions/{suggestionID}/highlights
func (h *SuggestionHandler) SuggestionHighlights(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	spans, err := s.SuggestionHighlights(r.PathValue("suggestionID"))
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"highlights": spans,
	})
}

func (h *SuggestionHandler) open(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document ID is required")
		return nil, false
	}
	s, err := h.sessions.Open(r.Context(), id)
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return nil, false
	}
	return s, true
}
