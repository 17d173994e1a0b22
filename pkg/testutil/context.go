package testutil

import (
	"context"
	"net/http"

	"bizlink/internal/platform/middleware"
)

// WithIdentity adds an identity id (and optionally a role) to the request
// context, simulating what the auth middleware does for authenticated
// requests.
func WithIdentity(req *http.Request, identityID, role string) *http.Request {
	ctx := req.Context()
	if identityID != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyIdentityID, identityID)
	}
	if role != "" {
		ctx = context.WithValue(ctx, middleware.ContextKeyRole, role)
	}
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
