package testutil

import (
	"net/http"

	id "ysvs/pkg/domain"
	"ysvs/pkg/requestcontext"
)

// WithUser adds an authenticated member to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithUser(req *http.Request, userID id.UserID) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, requestcontext.RoleMember)
	return req.WithContext(ctx)
}

// WithAdmin adds an authenticated admin to the request context.
func WithAdmin(req *http.Request, userID id.UserID) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithRole(ctx, requestcontext.RoleAdmin)
	return req.WithContext(ctx)
}
