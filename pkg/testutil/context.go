package testutil

import (
	"net/http"

	"technovit/pkg/domain"
	"technovit/pkg/requestcontext"
)

// AsCaller attaches an authenticated caller to the request, as auth.RequireAuth would.
func AsCaller(req *http.Request, userID domain.UserID, role domain.Role, email string) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.Caller{
		UserID: userID,
		Role:   role,
		Email:  email,
	})
	return req.WithContext(ctx)
}
