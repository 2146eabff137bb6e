package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/forumcore/handlers"
	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/services"
)

func withUser(r *http.Request, id string) *http.Request {
	ctx := context.WithValue(r.Context(), handlers.UserContextKey, &models.User{ID: id})
	return r.WithContext(ctx)
}

func countingHandler(calls *atomic.Int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("X-Call", strconv.Itoa(int(n)))
		pkg.JSON(w, status, map[string]int32{"call": n})
	})
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	m := NewIdempotencyMiddleware(time.Minute)
	defer m.Close()

	var calls atomic.Int32
	h := m.Wrap(countingHandler(&calls, http.StatusCreated))

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/votes", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, withUser(req, user))
		return rec
	}

	first := do("u1")
	second := do("u1")

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "1", second.Header().Get("X-Call"))
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Empty(t, first.Header().Get(ReplayedHeader))

	// keys are per user
	other := do("u2")
	assert.Equal(t, int32(2), calls.Load())
	assert.Empty(t, other.Header().Get(ReplayedHeader))
}

func TestIdempotency_WithoutKeyPassesThrough(t *testing.T) {
	m := NewIdempotencyMiddleware(time.Minute)
	defer m.Close()

	var calls atomic.Int32
	h := m.Wrap(countingHandler(&calls, http.StatusOK))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/votes", nil)
		h.ServeHTTP(httptest.NewRecorder(), withUser(req, "u1"))
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestIdempotency_ServerErrorsAreNotStored(t *testing.T) {
	m := NewIdempotencyMiddleware(time.Minute)
	defer m.Close()

	var calls atomic.Int32
	h := m.Wrap(countingHandler(&calls, http.StatusInternalServerError))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/moderation/bans", nil)
		req.Header.Set(IdempotencyHeader, "retry-me")
		h.ServeHTTP(httptest.NewRecorder(), withUser(req, "mod"))
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotency_TransientRejectionsAreNotStored(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusConflict} {
		t.Run(strconv.Itoa(status), func(t *testing.T) {
			m := NewIdempotencyMiddleware(time.Minute)
			defer m.Close()

			var calls atomic.Int32
			h := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) == 1 {
					pkg.ErrorWithCode(w, status, "try_later", "try again later")
					return
				}
				pkg.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
			}))

			do := func() *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodPost, "/api/votes", nil)
				req.Header.Set(IdempotencyHeader, "same-key")
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, withUser(req, "u1"))
				return rec
			}

			assert.Equal(t, status, do().Code)

			retry := do()
			assert.Equal(t, http.StatusOK, retry.Code)
			assert.Empty(t, retry.Header().Get(ReplayedHeader))

			// the success is what gets replayed from now on
			again := do()
			assert.Equal(t, http.StatusOK, again.Code)
			assert.Equal(t, "true", again.Header().Get(ReplayedHeader))
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestIdempotency_ClientErrorsAreReplayed(t *testing.T) {
	m := NewIdempotencyMiddleware(time.Minute)
	defer m.Close()

	var calls atomic.Int32
	h := m.Wrap(countingHandler(&calls, http.StatusBadRequest))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/votes", nil)
		req.Header.Set(IdempotencyHeader, "bad-body")
		h.ServeHTTP(httptest.NewRecorder(), withUser(req, "u1"))
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestIdempotency_ConcurrentDuplicatesRunOnce(t *testing.T) {
	m := NewIdempotencyMiddleware(time.Minute)
	defer m.Close()

	var calls atomic.Int32
	h := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		pkg.JSON(w, http.StatusCreated, "ok")
	}))

	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/moderation/warnings", nil)
			req.Header.Set(IdempotencyHeader, "same")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, withUser(req, "mod"))
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, c := range codes {
		assert.Equal(t, http.StatusCreated, c)
	}
}

func TestIdempotency_RejectsOversizedKey(t *testing.T) {
	m := NewIdempotencyMiddleware(time.Minute)
	defer m.Close()

	var calls atomic.Int32
	h := m.Wrap(countingHandler(&calls, http.StatusOK))

	req := httptest.NewRequest(http.MethodPost, "/api/votes", nil)
	req.Header.Set(IdempotencyHeader, strings.Repeat("k", maxIdempotencyKeyLen+1))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withUser(req, "u1"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, calls.Load())
}

// stubGate answers role checks from fixed sets. Unused methods panic
// through the nil embedded interface.
type stubGate struct {
	services.PermissionService
	admins     map[string]bool
	moderators map[string]bool
}

func (g *stubGate) AuthorizeAdmin(_ context.Context, userID string) error {
	if g.admins[userID] {
		return nil
	}
	return pkg.Deny(models.ReasonNotAdmin)
}

func (g *stubGate) AuthorizeModeration(_ context.Context, userID string, _ *string) error {
	if g.admins[userID] || g.moderators[userID] {
		return nil
	}
	return pkg.Deny(models.ReasonNotModerator)
}

func TestRoleMiddleware(t *testing.T) {
	gate := &stubGate{
		admins:     map[string]bool{"admin": true},
		moderators: map[string]bool{"mod": true},
	}
	roles := NewRoleMiddleware(gate)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		h      http.Handler
		user   string
		status int
		code   string
	}{
		{"admin passes admin gate", roles.RequireAdmin(ok), "admin", http.StatusNoContent, ""},
		{"moderator fails admin gate", roles.RequireAdmin(ok), "mod", http.StatusForbidden, models.ReasonNotAdmin},
		{"admin passes moderator gate", roles.RequireModerator(ok), "admin", http.StatusNoContent, ""},
		{"moderator passes moderator gate", roles.RequireModerator(ok), "mod", http.StatusNoContent, ""},
		{"member fails moderator gate", roles.RequireModerator(ok), "member", http.StatusForbidden, models.ReasonNotModerator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := withUser(httptest.NewRequest(http.MethodGet, "/", nil), tt.user)
			tt.h.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				var body pkg.APIResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.code, body.Code)
				assert.False(t, body.Success)
			}
		})
	}

	t.Run("no user in context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		roles.RequireAdmin(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthMiddleware_RejectsMissingOrMalformedHeader(t *testing.T) {
	auth := NewAuthMiddleware(nil)
	h := auth.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not run")
	}))

	for _, header := range []string{"", "Token abc", "Bearer "} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}
