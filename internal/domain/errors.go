package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling at the
// handler boundary without per-error switch statements.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string    { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int    { return http.StatusForbidden }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrAnchorNotFound means the span resolver exhausted every fallback.
	// Non-fatal: the annotation stays in its list and renders without a
	// highlight. Callers log it once and move on.
	ErrAnchorNotFound = errors.New("anchor not found")

	// ErrInvalidConversionTarget means a turn-into request had no resolvable
	// block ancestor. The operation is a no-op and the selection is left
	// unchanged.
	ErrInvalidConversionTarget = errors.New("invalid conversion target")

	// ErrEmptySelection means an operation that requires selected text was
	// invoked with a collapsed or empty selection.
	ErrEmptySelection = errors.New("selection is empty")

	// ErrSuperseded means a newer suggestion request for the same document
	// was issued while this one was in flight. Later wins; the stale result
	// is discarded, never applied.
	ErrSuperseded = errors.New("superseded by newer request")
)

// ConflictError represents a resource conflict with details about the
// existing resource.
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, comment, suggestion)
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IntegrityMismatch reports a lossy import/export round-trip: block ids that
// vanished or appeared. It is a diagnostic warning, never an error return -
// loads proceed, but the mismatch must be surfaced for investigation.
type IntegrityMismatch struct {
	DocumentID    string   `json:"document_id"`
	MissingIDs    []string `json:"missing_ids"`    // present in source, absent after import
	UnexpectedIDs []string `json:"unexpected_ids"` // produced by import, absent in source
}

// Empty reports whether the round-trip was clean.
func (m *IntegrityMismatch) Empty() bool {
	return len(m.MissingIDs) == 0 && len(m.UnexpectedIDs) == 0
}
