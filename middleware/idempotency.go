package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/akinalp/forumcore/handlers"
	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/pkg/cache"
	"github.com/akinalp/forumcore/pkg/keylock"
)

// IdempotencyHeader is the request header clients set to make a POST safe
// to retry.
const IdempotencyHeader = "Idempotency-Key"

// ReplayedHeader marks a response served from the idempotency cache.
const ReplayedHeader = "Idempotent-Replayed"

const maxIdempotencyKeyLen = 128

type storedResponse struct {
	status int
	header http.Header
	body   []byte
}

// IdempotencyMiddleware replays the first response recorded for a
// (user, method, path, key) tuple. Concurrent duplicates wait on a keyed
// lock, so the handler runs once per tuple. Only outcomes that a retry
// would reproduce are stored: server errors, 409 Conflict and 429 Too Many
// Requests pass through and may be retried with the same key.
type IdempotencyMiddleware struct {
	responses *cache.TTLCache[string, *storedResponse]
	locks     *keylock.KeyedMutex
}

// NewIdempotencyMiddleware keeps responses for ttl.
func NewIdempotencyMiddleware(ttl time.Duration) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		responses: cache.New[string, *storedResponse](ttl, ttl/2),
		locks:     keylock.New(),
	}
}

// Wrap must run after AuthMiddleware; keys are scoped per user.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyHeader)
		user, ok := r.Context().Value(handlers.UserContextKey).(*models.User)
		if key == "" || !ok {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			handlers.RespondError(w, r, errKeyTooLong)
			return
		}

		cacheKey := user.ID + "|" + r.Method + "|" + r.URL.Path + "|" + key
		unlock := m.locks.Lock(cacheKey)
		defer unlock()

		if stored, hit := m.responses.Get(cacheKey); hit {
			replay(w, stored)
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if storable(rec.status) {
			m.responses.Set(cacheKey, &storedResponse{
				status: rec.status,
				header: w.Header().Clone(),
				body:   rec.body.Bytes(),
			})
		}
	})
}

// storable reports whether a response with this status is replayed on a
// retry.
func storable(status int) bool {
	switch {
	case status >= http.StatusInternalServerError:
		return false
	case status == http.StatusConflict, status == http.StatusTooManyRequests:
		return false
	}
	return true
}

// Close stops the cache janitor.
func (m *IdempotencyMiddleware) Close() {
	m.responses.Close()
}

func replay(w http.ResponseWriter, stored *storedResponse) {
	for k, values := range stored.header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.status)
	_, _ = w.Write(stored.body)
}

// recorder tees the response to the client and to a buffer.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

var errKeyTooLong = fmt.Errorf("%w: %s header must be at most %d characters", pkg.ErrValidation, IdempotencyHeader, maxIdempotencyKeyLen)
