package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/pkg/i18n"
	"github.com/akinalp/forumcore/pkg/ratelimit"
	"github.com/akinalp/forumcore/services"
)

func loadLocales(t *testing.T) {
	t.Helper()
	locales, err := fs.Sub(i18n.EmbeddedLocales, "locales")
	require.NoError(t, err)
	require.NoError(t, i18n.Load(locales))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) pkg.APIResponse {
	t.Helper()
	var body pkg.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func authed(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
}

func TestRespondError_LocalizesDenials(t *testing.T) {
	loadLocales(t)

	until := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	err := fmt.Errorf("vote: %w", &pkg.DeniedError{Code: models.ReasonBannedTemporary, Until: &until})

	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodPost, "/api/votes", nil), err)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, models.ReasonBannedTemporary, body.Code)
	assert.Contains(t, body.Error, "Wed, 02 Jan 2030")

	req := httptest.NewRequest(http.MethodPost, "/api/votes", nil)
	req.Header.Set("Accept-Language", "tr-TR,tr;q=0.9")
	rec = httptest.NewRecorder()
	RespondError(rec, req, pkg.Deny(models.ReasonNotModerator))

	body = decode(t, rec)
	assert.Equal(t, models.ReasonNotModerator, body.Code)
	assert.NotEqual(t, "denied.not_moderator", body.Error)
	assert.NotContains(t, body.Error, "Only moderators")
}

func TestRespondError_HidesStorageDetails(t *testing.T) {
	loadLocales(t)

	rec := httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		fmt.Errorf("%w: failed to query votes: disk I/O error", pkg.ErrStorage))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "storage_failure", body.Code)
	assert.NotContains(t, body.Error, "disk")

	rec = httptest.NewRecorder()
	RespondError(rec, httptest.NewRequest(http.MethodGet, "/", nil),
		fmt.Errorf("%w: reason is required", pkg.ErrValidation))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Error, "reason is required")
}

// stubGate allows everything except voting down.
type stubGate struct {
	services.PermissionService
}

func (stubGate) CanPerform(_ context.Context, _ string, action models.Action) (models.Decision, error) {
	d := models.Decision{Action: action, Allowed: true, Reason: models.ReasonOK, TrustLevel: 1}
	if action == models.ActionVoteDown {
		d.Allowed = false
		d.Reason = models.ReasonInsufficientTrust
	}
	return d, nil
}

func TestPermissionHandler_ListsEveryAction(t *testing.T) {
	h := NewPermissionHandler(stubGate{})

	rec := httptest.NewRecorder()
	h.List(rec, authed(httptest.NewRequest(http.MethodGet, "/api/permissions", nil), &models.User{ID: "u"}))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.Decision `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, len(models.AllActions))
	for _, d := range body.Data {
		assert.Equal(t, d.Action != models.ActionVoteDown, d.Allowed, d.Action)
	}

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/permissions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// stubVotes records casts.
type stubVotes struct {
	services.VoteService
	casts int
}

func (s *stubVotes) CastVote(context.Context, string, models.TargetType, string, models.Direction) (models.VoteOutcome, error) {
	s.casts++
	return models.VoteOutcome{Kind: models.VoteCreated, Direction: models.DirectionUp}, nil
}

func (s *stubVotes) GetVoteCounts(context.Context, models.TargetType, string) models.VoteCounts {
	return models.VoteCounts{Upvotes: s.casts, Score: s.casts}
}

func TestVoteHandler_RateLimitsPerUser(t *testing.T) {
	loadLocales(t)

	limiter := ratelimit.NewActionRateLimiter(2, time.Minute, time.Minute)
	defer limiter.Stop()
	votes := &stubVotes{}
	h := NewVoteHandler(votes, limiter)

	cast := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/votes",
			strings.NewReader(`{"target_type":"thread","target_id":"t1","direction":"up"}`))
		rec := httptest.NewRecorder()
		h.Cast(rec, authed(req, &models.User{ID: userID}))
		return rec
	}

	assert.Equal(t, http.StatusOK, cast("u1").Code)
	assert.Equal(t, http.StatusOK, cast("u1").Code)

	limited := cast("u1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decode(t, limited).Code)

	assert.Equal(t, http.StatusOK, cast("u2").Code)
	assert.Equal(t, 3, votes.casts)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	ok := NewHealthHandler(pingerFunc(func(context.Context) error { return nil }))
	rec := httptest.NewRecorder()
	ok.Check(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewHealthHandler(pingerFunc(func(context.Context) error { return fmt.Errorf("disk gone") }))
	rec = httptest.NewRecorder()
	down.Check(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.False(t, body.Success)
}
