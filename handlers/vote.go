package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/pkg/ratelimit"
	"github.com/akinalp/forumcore/services"
)

// VoteHandler serves the vote ledger.
type VoteHandler struct {
	voteService services.VoteService
	limiter     *ratelimit.ActionRateLimiter
}

// NewVoteHandler builds the handler. A nil limiter disables vote throttling.
func NewVoteHandler(voteService services.VoteService, limiter *ratelimit.ActionRateLimiter) *VoteHandler {
	return &VoteHandler{voteService: voteService, limiter: limiter}
}

type castVoteRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Direction  string `json:"direction"`
}

type castVoteResponse struct {
	Outcome models.VoteOutcome `json:"outcome"`
	Counts  models.VoteCounts  `json:"counts"`
}

// Cast godoc
// POST /api/votes
// Body: { "target_type": "thread", "target_id": "...", "direction": "up" }
//
// Repeating a vote removes it, the opposite direction switches it.
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(user.ID) {
		respondRateLimited(w, r, h.limiter.CooldownSeconds(user.ID))
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badBody(w)
		return
	}

	targetType := models.TargetType(req.TargetType)
	outcome, err := h.voteService.CastVote(r.Context(), user.ID, targetType, req.TargetID, models.Direction(req.Direction))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, castVoteResponse{
		Outcome: outcome,
		Counts:  h.voteService.GetVoteCounts(r.Context(), targetType, req.TargetID),
	})
}

// Counts godoc
// GET /api/votes/{targetType}/{targetId}
func (h *VoteHandler) Counts(w http.ResponseWriter, r *http.Request) {
	targetType, err := models.ParseTargetType(r.PathValue("targetType"))
	if err != nil {
		pkg.ErrorWithCode(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	pkg.JSON(w, http.StatusOK, h.voteService.GetVoteCounts(r.Context(), targetType, r.PathValue("targetId")))
}

// Mine godoc
// GET /api/votes/{targetType}/{targetId}/me
// Answers { "direction": null } when the caller has not voted.
func (h *VoteHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(r)
	if !ok {
		respondUnauthenticated(w, r)
		return
	}

	dir, err := h.voteService.GetUserVote(r.Context(), user.ID, models.TargetType(r.PathValue("targetType")), r.PathValue("targetId"))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]*models.Direction{"direction": dir})
}

// VotingStats godoc
// GET /api/users/{id}/voting-stats
func (h *VoteHandler) VotingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.voteService.GetUserVotingStats(r.Context(), r.PathValue("id"))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, stats)
}
