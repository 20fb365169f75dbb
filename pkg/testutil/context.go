package testutil

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"nearhelp/internal/platform/middleware"
)

// WithUserID adds an authenticated user ID to the request context,
// simulating what the auth middleware does after validating a token.
func WithUserID(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, userID)
	return req.WithContext(ctx)
}

// WithDeviceID adds the caller's device ID to the request context.
func WithDeviceID(req *http.Request, deviceID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyDeviceID, deviceID)
	return req.WithContext(ctx)
}

// WithRouteParam resolves a chi URL parameter, so handler methods that read
// path variables can be called without going through the router.
func WithRouteParam(req *http.Request, key, value string) *http.Request {
	rctx, ok := req.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}
