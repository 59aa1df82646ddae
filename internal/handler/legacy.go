package handler

import (
	"log/slog"
	"net/http"

	"docasst/internal/domain/models/doc"
	"docasst/internal/httputil"
	"docasst/internal/service/docsync"
	"docasst/internal/service/session"
)

// LegacyHandler bridges the flat legacy block-metadata format to the nested
// document model, for renderers still speaking the old wire shape.
type LegacyHandler struct {
	sessions *session.Manager
	sync     *docsync.Engine
	logger   *slog.Logger
}

// NewLegacyHandler creates a new legacy handler
func NewLegacyHandler(sessions *session.Manager, syncEngine *docsync.Engine, logger *slog.Logger) *LegacyHandler {
	return &LegacyHandler{
		sessions: sessions,
		sync:     syncEngine,
		logger:   logger,
	}
}

// LegacyImportPayload carries a flat legacy block list.
type LegacyImportPayload struct {
	Title  string              `json:"title,omitempty"`
	Blocks []doc.BlockMetadata `json:"blocks"`
}

// ExportLegacy renders the document in the flat legacy format
// GET /api/documents/{id}/legacy
func (h *LegacyHandler) ExportLegacy(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	state := s.State()
	metas, err := h.sync.ToLegacy(state.Blocks)
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"id":     state.ID,
		"title":  state.Title,
		"blocks": metas,
	})
}

// ImportLegacy replaces the document's content from a flat legacy block list
// POST /api/documents/{id}/legacy
func (h *LegacyHandler) ImportLegacy(w http.ResponseWriter, r *http.Request) {
	s, ok := h.open(w, r)
	if !ok {
		return
	}

	var payload LegacyImportPayload
	if err := httputil.ParseJSON(w, r, &payload); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	blocks, err := h.sync.FromLegacy(payload.Blocks)
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}

	state, err := s.UpdateBlocks(r.Context(), payload.Title, blocks)
	if err != nil {
		respondDomainError(w, h.logger, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, state)
}

func (h *LegacyHandler) open(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
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
