package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
)

func TestBanExpirySweeper_SweepsOnStart(t *testing.T) {
	f := newFixture(t)
	u := f.user("u", 1)
	past := time.Now().Add(-time.Second)
	f.ban(u, models.BanTemporary, &past)

	require.NoError(t, f.store.Sessions().Create(f.ctx, &models.Session{
		UserID: u, RefreshToken: "stale", ExpiresAt: time.Now().Add(-time.Hour),
	}))

	moderation := NewModerationService(f.store, f.gate, nil)
	sweeper := NewBanExpirySweeper(moderation, f.store.Sessions(), time.Hour)
	sweeper.Start()
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		_, err := f.store.Bans().GetActive(f.ctx, u)
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := f.store.Sessions().GetByRefreshToken(f.ctx, "stale")
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)

	_, err := f.store.Bans().GetActive(f.ctx, u)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	sweeper.Stop()
}
