package handler

import (
	"log/slog"
	"net/http"

	"docasst/internal/blockkind"
	"docasst/internal/httputil"
)

// KindsHandler serves the block-kind capability registry so renderers can
// drive their conversion menus from the server's source of truth.
type KindsHandler struct {
	kinds  *blockkind.Registry
	logger *slog.Logger
}

// NewKindsHandler creates a new kinds handler
func NewKindsHandler(kinds *blockkind.Registry, logger *slog.Logger) *KindsHandler {
	return &KindsHandler{
		kinds:  kinds,
		logger: logger,
	}
}

// ListKinds returns every registered block kind and its capabilities
// GET /api/block-kinds
func (h *KindsHandler) ListKinds(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"kinds": h.kinds.List(),
	})
}
