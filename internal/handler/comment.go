package handler

import (
	"log/slog"
	"net/http"

	"docasst/internal/httputil"
	"docasst/internal/service/annotation"
	"docasst/internal/service/session"
)

// CommentHandler handles comment HTTP requests
type CommentHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(sessions *session.Manager, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// CreateCommentPayload carries a new comment and the selection it anchors to.
type CreateCommentPayload struct {
	Selection session.SelectionRef `json:"selection"`
	Body      string               `json:"body"`
}

// ReplyPayload carries a reply's body.
type ReplyPayload struct {
	Body string `json:"body"`
}

// ListComments lists a document's comment threads
// GET /api/documents/{id}/comments
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"comments": s.Comments(),
	})
}

// CreateComment creates a comment against a selection
// POST /api/documents/{id}/comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	var payload CreateCommentPayload
	if err := httputil.ParseJSON(w, r, &payload); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := s.CreateComment(r.Context(), payload.Selection, annotation.CreateCommentRequest{
		Body:   payload.Body,
		Author: httputil.GetUserID(r),
	})
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, comment)
}

// ReplyComment appends a reply to a comment thread
// POST /api/documents/{id}/comments/{commentID}/replies
func (h *CommentHandler) ReplyComment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	var payload ReplyPayload
	if err := httputil.ParseJSON(w, r, &payload); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := s.ReplyComment(r.Context(), r.PathValue("commentID"), annotation.CreateCommentRequest{
		Body:   payload.Body,
		Author: httputil.GetUserID(r),
	})
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, reply)
}

// ResolveComment marks a comment resolved
// POST /api/documents/{id}/comments/{commentID}/resolve
func (h *CommentHandler) ResolveComment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	if err := s.ResolveComment(r.Context(), r.PathValue("commentID")); err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteComment deletes a comment and strips its highlights
// DELETE /api/documents/{id}/comments/{commentID}
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	if err := s.DeleteComment(r.Context(), r.PathValue("commentID")); err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CommentHighlights resolves a comment's anchor against the current document
// GET /api/documents/{id}/comments/{commentID}/highlights
func (h *CommentHandler) CommentHighlights(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	spans, err := s.CommentHighlights(r.PathValue("commentID"))
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"highlights": spans,
	})
}

func (h *CommentHandler) open(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
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
