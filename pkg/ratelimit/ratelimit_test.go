package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActionRateLimiter_CooldownAfterBurst(t *testing.T) {
	rl := NewActionRateLimiter(3, time.Minute, 30*time.Second)
	defer rl.Stop()

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("u1"), "attempt %d", i+1)
	}
	assert.False(t, rl.Allow("u1"))
	assert.Equal(t, 31, rl.CooldownSeconds("u1"))

	// other users are unaffected
	assert.True(t, rl.Allow("u2"))

	clock = clock.Add(31 * time.Second)
	assert.True(t, rl.Allow("u1"))
	assert.Equal(t, 0, rl.CooldownSeconds("u1"))
}

func TestActionRateLimiter_WindowResets(t *testing.T) {
	rl := NewActionRateLimiter(2, 10*time.Second, time.Minute)
	defer rl.Stop()

	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))

	clock = clock.Add(11 * time.Second)
	assert.True(t, rl.Allow("u1"))
}

func TestLoginRateLimiter_Reset(t *testing.T) {
	rl := NewLoginRateLimiter(2, time.Minute)
	defer rl.Stop()

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.Greater(t, rl.RetryAfterSeconds("1.2.3.4"), 0)

	rl.Reset("1.2.3.4")
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestExtractIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", ExtractIP(r))

	r.Header.Set("X-Real-IP", "9.9.9.9")
	assert.Equal(t, "9.9.9.9", ExtractIP(r))

	r.Header.Set("X-Forwarded-For", "8.8.8.8, 10.0.0.2")
	assert.Equal(t, "8.8.8.8", ExtractIP(r))
}
