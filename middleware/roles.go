package middleware

import (
	"net/http"

	"github.com/akinalp/forumcore/handlers"
	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/services"
)

// RoleMiddleware gates routes on admin or moderator standing. It runs after
// AuthMiddleware. Services still authorize each operation against its
// own scope.
type RoleMiddleware struct {
	gate services.PermissionService
}

func NewRoleMiddleware(gate services.PermissionService) *RoleMiddleware {
	return &RoleMiddleware{gate: gate}
}

// RequireAdmin answers 403 not_admin for non-admins.
func (m *RoleMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.require(next, func(r *http.Request, user *models.User) error {
		return m.gate.AuthorizeAdmin(r.Context(), user.ID)
	})
}

// RequireModerator admits admins and any active moderator, global or
// category-scoped.
func (m *RoleMiddleware) RequireModerator(next http.Handler) http.Handler {
	return m.require(next, func(r *http.Request, user *models.User) error {
		return m.gate.AuthorizeModeration(r.Context(), user.ID, nil)
	})
}

func (m *RoleMiddleware) require(next http.Handler, check func(*http.Request, *models.User) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := r.Context().Value(handlers.UserContextKey).(*models.User)
		if !ok {
			handlers.RespondError(w, r, pkg.ErrUnauthenticated)
			return
		}

		if err := check(r, user); err != nil {
			handlers.RespondError(w, r, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}
