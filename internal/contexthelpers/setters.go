package contexthelpers

import (
	"context"
	"net/http"
)

// WithAuthenticatedUser marks ctx as belonging to userID.
func WithAuthenticatedUser(ctx context.Context, userID int) context.Context {
	ctx = context.WithValue(ctx, IsAuthenticatedContextKey, true)
	return context.WithValue(ctx, AuthenticatedUserIDContextKey, userID)
}

func AuthenticateContext(r *http.Request, userID int) *http.Request {
	return r.WithContext(WithAuthenticatedUser(r.Context(), userID))
}

func SetTraceID(r *http.Request, traceID string) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, TraceIDContextKey, traceID)
	return r.WithContext(ctx)
}
