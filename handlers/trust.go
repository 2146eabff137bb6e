package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/services"
)

// TrustHandler exposes trust profiles and the admin override.
type TrustHandler struct {
	trustService services.TrustService
}

func NewTrustHandler(trustService services.TrustService) *TrustHandler {
	return &TrustHandler{trustService: trustService}
}

// Leaderboard godoc
// GET /api/trust/leaderboard?limit=
func (h *TrustHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.trustService.Leaderboard(r.Context(), queryLimit(r))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, profiles)
}

// Profile godoc
// GET /api/trust/{userId}
func (h *TrustHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.trustService.GetProfile(r.Context(), r.PathValue("userId"))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, profile)
}

// Progress godoc
// GET /api/trust/{userId}/progress
func (h *TrustHandler) Progress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.trustService.ProgressToNext(r.Context(), r.PathValue("userId"))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, progress)
}

// RecordReadTime godoc
// POST /api/trust/me/read-time
// Body: { "minutes": 5 }
func (h *TrustHandler) RecordReadTime(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	var req models.ReadTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badBody(w)
		return
	}

	if err := h.trustService.RecordReadTime(r.Context(), user.ID, req.Minutes); err != nil {
		RespondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Recalculate godoc
// POST /api/trust/{userId}/recalculate
// Admin only; promotion never demotes.
func (h *TrustHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	profile, changed, err := h.trustService.Recalculate(r.Context(), r.PathValue("userId"))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{
		"profile": profile,
		"changed": changed,
	})
}

// SetLevel godoc
// PUT /api/admin/trust/{userId}
// Body: { "level": 3 }
func (h *TrustHandler) SetLevel(w http.ResponseWriter, r *http.Request) {
	admin, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	var req models.SetTrustLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badBody(w)
		return
	}

	profile, err := h.trustService.SetManually(r.Context(), r.PathValue("userId"), req.Level, admin.ID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, profile)
}
