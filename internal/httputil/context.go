package httputil

import (
	"context"
	"net/http"
)

// contextKey is unexported so request-scoped values set here cannot collide
// with keys owned by other packages.
type contextKey string

const userIDKey contextKey = "userID"

// WithUserID returns a request whose context carries the authenticated user
// id. The auth middleware sets it once, after token verification; handlers
// read it for attribution (comment authors, suggestion actors).
func WithUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
}

// GetUserID returns the authenticated user id, or "" when the request never
// passed the auth middleware.
func GetUserID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}
