package handlers

import (
	"net/http"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/services"
)

// PermissionHandler reports gate decisions for the caller, so clients can
// grey out what the user cannot do.
type PermissionHandler struct {
	gate services.PermissionService
}

func NewPermissionHandler(gate services.PermissionService) *PermissionHandler {
	return &PermissionHandler{gate: gate}
}

// List godoc
// GET /api/permissions
func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	decisions := make([]models.Decision, 0, len(models.AllActions))
	for _, action := range models.AllActions {
		decision, err := h.gate.CanPerform(r.Context(), user.ID, action)
		if err != nil {
			RespondError(w, r, err)
			return
		}
		decisions = append(decisions, decision)
	}

	pkg.JSON(w, http.StatusOK, decisions)
}

// Check godoc
// GET /api/permissions/{action}
func (h *PermissionHandler) Check(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	decision, err := h.gate.CanPerform(r.Context(), user.ID, models.Action(r.PathValue("action")))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, decision)
}
