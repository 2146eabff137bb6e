package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/services"
)

// AdminHandler manages moderator assignments.
type AdminHandler struct {
	moderationService services.ModerationService
}

func NewAdminHandler(moderationService services.ModerationService) *AdminHandler {
	return &AdminHandler{moderationService: moderationService}
}

// ListModerators godoc
// GET /api/admin/moderators
func (h *AdminHandler) ListModerators(w http.ResponseWriter, r *http.Request) {
	admin, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	mods, err := h.moderationService.ListModerators(r.Context(), admin.ID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, mods)
}

// AssignModerator godoc
// POST /api/admin/moderators
// Body: { "user_id": "...", "category_id": null }
// A null category_id makes a global moderator.
func (h *AdminHandler) AssignModerator(w http.ResponseWriter, r *http.Request) {
	admin, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	var req models.AssignModeratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badBody(w)
		return
	}

	mod, err := h.moderationService.AssignModerator(r.Context(), &req, admin.ID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, mod)
}

// RemoveModerator godoc
// DELETE /api/admin/moderators/{id}
func (h *AdminHandler) RemoveModerator(w http.ResponseWriter, r *http.Request) {
	admin, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	if err := h.moderationService.RemoveModerator(r.Context(), r.PathValue("id"), admin.ID); err != nil {
		RespondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
