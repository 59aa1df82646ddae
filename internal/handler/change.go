package handler

import (
	"log/slog"
	"net/http"

	"docasst/internal/httputil"
	"docasst/internal/service/session"
)

// ChangeHandler handles audit-log HTTP requests
type ChangeHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewChangeHandler creates a new change handler
func NewChangeHandler(sessions *session.Manager, logger *slog.Logger) *ChangeHandler {
	return &ChangeHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// ListChanges returns a document's audit records, oldest first
// GET /api/documents/{id}/changes
func (h *ChangeHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"changes": s.AllChangeRecords(),
	})
}

// ListBlockChanges returns one block's audit records
// GET /api/documents/{id}/blocks/{blockID}/changes
func (h *ChangeHandler) ListBlockChanges(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"changes": s.ChangeLog(r.PathValue("blockID")),
	})
}

// VerifyBlock records a human sign-off on a block's current content
// POST /api/documents/{id}/blocks/{blockID}/verify
func (h *ChangeHandler) VerifyBlock(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	if err := s.MarkVerified(r.PathValue("blockID"), httputil.GetUserID(r)); err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChangeHandler) open(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
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
