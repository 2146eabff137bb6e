// Package handlers holds the thin HTTP layer: decode the request, call one
// service, encode the result. No business rules and no storage access
// live here.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/akinalp/forumcore/models"
)

// contextKey keeps request-scoped values out of other packages' keyspace.
type contextKey string

// UserContextKey carries the authenticated *models.User set by the auth middleware.
const UserContextKey contextKey = "user"

// userFromRequest returns the user placed in the context by AuthMiddleware.
func userFromRequest(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// queryLimit parses ?limit=. Missing or malformed values yield 0 so the
// service applies its own default.
func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}
