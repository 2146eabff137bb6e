package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/services"
)

// ModerationHandler serves warnings, bans, content removal and the audit log.
// Every operation is authorized again by the service, per target scope.
type ModerationHandler struct {
	moderationService services.ModerationService
}

func NewModerationHandler(moderationService services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

// decodeReason reads an optional { "reason": "..." } body. DELETE clients
// often send none.
func decodeReason(r *http.Request) (string, error) {
	var req models.ReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return req.Reason, nil
}

// IssueWarning godoc
// POST /api/moderation/warnings
// Body: { "user_id": "...", "severity": "medium", "reason": "..." }
//
// The third warning escalates to a 7-day ban unless one is already in effect.
func (h *ModerationHandler) IssueWarning(w http.ResponseWriter, r *http.Request) {
	mod, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	var req models.WarningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badBody(w)
		return
	}

	result, err := h.moderationService.IssueWarning(r.Context(), &req, mod.ID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, result)
}

// IssueBan godoc
// POST /api/moderation/bans
// Body: { "user_id": "...", "type": "temporary", "reason": "...", "end_at": "RFC3339" }
func (h *ModerationHandler) IssueBan(w http.ResponseWriter, r *http.Request) {
	mod, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	var req models.BanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badBody(w)
		return
	}

	ban, err := h.moderationService.IssueBan(r.Context(), &req, mod.ID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, ban)
}

// LiftBan godoc
// DELETE /api/moderation/bans/{userId}
func (h *ModerationHandler) LiftBan(w http.ResponseWriter, r *http.Request) {
	mod, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	reason, err := decodeReason(r)
	if err != nil {
		badBody(w)
		return
	}

	ban, err := h.moderationService.LiftBan(r.Context(), r.PathValue("userId"), reason, mod.ID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, ban)
}

// PurgeUser godoc
// POST /api/moderation/users/{userId}/purge
// Soft-deletes every thread and post of the user.
func (h *ModerationHandler) PurgeUser(w http.ResponseWriter, r *http.Request) {
	mod, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	reason, err := decodeReason(r)
	if err != nil {
		badBody(w)
		return
	}

	result, err := h.moderationService.PurgeUserContent(r.Context(), r.PathValue("userId"), reason, mod.ID)
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// DeleteThread godoc
// DELETE /api/moderation/threads/{id}
func (h *ModerationHandler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	h.deleteContent(w, r, h.moderationService.DeleteThread)
}

// DeletePost godoc
// DELETE /api/moderation/posts/{id}
func (h *ModerationHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	h.deleteContent(w, r, h.moderationService.DeletePost)
}

func (h *ModerationHandler) deleteContent(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id, reason, moderatorID string) error) {
	mod, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	reason, err := decodeReason(r)
	if err != nil {
		badBody(w)
		return
	}

	if err := del(r.Context(), r.PathValue("id"), reason, mod.ID); err != nil {
		RespondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Log godoc
// GET /api/moderation/log?moderator_id=&limit=
func (h *ModerationHandler) Log(w http.ResponseWriter, r *http.Request) {
	viewer, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	var moderatorID *string
	if v := r.URL.Query().Get("moderator_id"); v != "" {
		moderatorID = &v
	}

	actions, err := h.moderationService.GetModerationLog(r.Context(), viewer.ID, moderatorID, queryLimit(r))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, actions)
}

// UserBans godoc
// GET /api/moderation/users/{userId}/bans
func (h *ModerationHandler) UserBans(w http.ResponseWriter, r *http.Request) {
	viewer, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	bans, err := h.moderationService.GetUserBans(r.Context(), viewer.ID, r.PathValue("userId"))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, bans)
}

// UserWarnings godoc
// GET /api/moderation/users/{userId}/warnings
func (h *ModerationHandler) UserWarnings(w http.ResponseWriter, r *http.Request) {
	viewer, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	warnings, err := h.moderationService.GetUserWarnings(r.Context(), viewer.ID, r.PathValue("userId"))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, warnings)
}
