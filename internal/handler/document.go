package handler

import (
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"docasst/internal/config"
	"docasst/internal/domain/models/doc"
	"docasst/internal/domain/repositories"
	"docasst/internal/httputil"
	"docasst/internal/service/session"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	sessions *session.Manager
	docs     repositories.DocumentRepository
	logger   *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(sessions *session.Manager, docs repositories.DocumentRepository, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		sessions: sessions,
		docs:     docs,
		logger:   logger,
	}
}

// CreateDocumentRequest is the payload for document creation.
type CreateDocumentRequest struct {
	ID     string       `json:"id,omitempty"`
	Title  string       `json:"title"`
	Blocks []*doc.Block `json:"blocks,omitempty"`
}

// Validate validates the request.
func (r CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.Required,
			validation.Length(1, config.MaxDocumentTitleLength),
		),
	)
}

// UpdateBlocksRequest is the payload for a content update.
type UpdateBlocksRequest struct {
	Title  string       `json:"title,omitempty"`
	Blocks []*doc.Block `json:"blocks"`
}

// CreateDocument creates a new document and opens its session
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	state := &doc.DocState{
		ID:     req.ID,
		Title:  req.Title,
		Blocks: req.Blocks,
	}

	s, err := h.sessions.Create(r.Context(), state)
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, s.State())
}

// ListDocuments lists all documents without block content
// GET /api/documents
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := h.docs.List(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": documents,
	})
}

// GetDocument returns a document's current state
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, s.State())
}

// UpdateBlocks replaces a document's content with a user edit
// PUT /api/documents/{id}/blocks
func (h *DocumentHandler) UpdateBlocks(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	var req UpdateBlocksRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := s.UpdateBlocks(r.Context(), req.Title, req.Blocks)
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, state)
}

// SaveDocument flushes pending exports and persists the snapshot
// POST /api/documents/{id}/save
func (h *DocumentHandler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	state, err := s.Save(r.Context())
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, state)
}

// DeleteDocument closes the session and deletes the document
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "document ID is required")
		return
	}

	if err := h.sessions.Discard(id); err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	if err := h.docs.Delete(r.Context(), id); err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TurnIntoRequest is the payload for a block conversion.
type TurnIntoRequest struct {
	Kind  doc.BlockKind `json:"kind"`
	Level int           `json:"level,omitempty"`
}

// TurnInto converts a block to another kind
// POST /api/documents/{id}/blocks/{blockID}/turn-into
func (h *DocumentHandler) TurnInto(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}
	blockID := r.PathValue("blockID")
	if blockID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "block ID is required")
		return
	}

	var req TurnIntoRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := s.TurnInto(r.Context(), blockID, req.Kind, req.Level)
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, state)
}

// ClassifySelection reports the scope a selection routes to
// POST /api/documents/{id}/selection/classify
func (h *DocumentHandler) ClassifySelection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	var ref session.SelectionRef
	if err := httputil.ParseJSON(w, r, &ref); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	classification, err := s.ClassifySelection(ref)
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, classification)
}

// HealthCheck is a simple health check endpoint
// GET /health
func (h *DocumentHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now(),
	})
}

// open resolves the document session for the request's {id} path value,
// writing the error response itself on failure.
func (h *DocumentHandler) open(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
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
