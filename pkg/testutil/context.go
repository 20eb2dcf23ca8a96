package testutil

import (
	"context"
	"net/http"

	id "kitclaim/pkg/domain"
	authmw "kitclaim/pkg/platform/middleware/auth"
)

// WithIdentity adds an authenticated user ID and email to the request
// context, simulating what the auth middleware does for valid tokens.
func WithIdentity(req *http.Request, userID id.UserID, email string) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, authmw.ContextKeyUserID, userID)
	if email != "" {
		ctx = context.WithValue(ctx, authmw.ContextKeyEmail, email)
	}
	return req.WithContext(ctx)
}
