// Package middleware holds the pieces that run before a handler:
// authentication, role gates and idempotent replay.
//
// A middleware is func(next http.Handler) http.Handler; it either calls
// next or answers the request itself.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/akinalp/forumcore/handlers"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/services"
)

// AuthMiddleware validates the bearer access token.
type AuthMiddleware struct {
	authService services.AuthService
}

func NewAuthMiddleware(authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Require rejects requests without a valid "Authorization: Bearer <token>"
// and puts the current *models.User into the context.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithCode(w, http.StatusUnauthorized, "unauthenticated", "authorization header required")
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			pkg.ErrorWithCode(w, http.StatusUnauthorized, "unauthenticated", "invalid authorization format, use: Bearer <token>")
			return
		}

		claims, err := m.authService.ValidateAccessToken(tokenString)
		if err != nil {
			handlers.RespondError(w, r, err)
			return
		}

		// the token may outlive the account
		user, err := m.authService.GetUser(r.Context(), claims.UserID)
		if errors.Is(err, pkg.ErrNotFound) {
			handlers.RespondError(w, r, pkg.ErrUnauthenticated)
			return
		}
		if err != nil {
			handlers.RespondError(w, r, err)
			return
		}
		user.PasswordHash = ""

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
