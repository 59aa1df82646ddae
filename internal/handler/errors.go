package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"docasst/internal/domain"
	"docasst/internal/httputil"
)

// respondDomainError maps a domain error onto an RFC 7807 response. Errors
// implementing HTTPError carry their own status; sentinels map by identity;
// anything else is a 500 with the detail withheld.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAnchorNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrEmptySelection),
		errors.Is(err, domain.ErrInvalidConversionTarget):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrSuperseded):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, "forbidden")
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
