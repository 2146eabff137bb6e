package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
)

func (f *fixture) ban(userID string, banType models.BanType, endAt *time.Time) *models.Ban {
	f.t.Helper()
	b := &models.Ban{UserID: userID, Type: banType, Reason: "test", EndAt: endAt}
	require.NoError(f.t, f.store.Bans().Create(f.ctx, b))
	return b
}

func TestPermission_TrustGates(t *testing.T) {
	f := newFixture(t)
	newbie := f.user("newbie", 0)
	member := f.user("member", 1)

	d, err := f.gate.CanPerform(f.ctx, newbie, models.ActionPost)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, models.ReasonOK, d.Reason)

	d, err = f.gate.CanPerform(f.ctx, newbie, models.ActionVoteDown)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, models.ReasonInsufficientTrust, d.Reason)
	assert.Equal(t, 0, d.TrustLevel)

	d, err = f.gate.CanPerform(f.ctx, member, models.ActionVoteDown)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = f.gate.CanPerform(f.ctx, member, models.ActionCreateCategory)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	_, err = f.gate.CanPerform(f.ctx, member, "teleport")
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestPermission_UserWithoutProfileIsLevelZero(t *testing.T) {
	f := newFixture(t)
	u := f.createUser("quiet", false)

	d, err := f.gate.CanPerform(f.ctx, u, models.ActionUploadImage)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.TrustLevel)
}

func TestPermission_TemporaryBanDeniesAllButView(t *testing.T) {
	f := newFixture(t)
	u := f.user("elder", 4)
	end := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	f.ban(u, models.BanTemporary, &end)

	for _, action := range models.AllActions {
		d, err := f.gate.CanPerform(f.ctx, u, action)
		require.NoError(t, err)

		if action == models.ActionView {
			assert.True(t, d.Allowed, action)
			continue
		}
		assert.False(t, d.Allowed, action)
		assert.Equal(t, models.ReasonBannedTemporary, d.Reason, action)
		require.NotNil(t, d.BannedUntil, action)
		assert.True(t, d.BannedUntil.Equal(end), action)
	}

	err := f.gate.Authorize(f.ctx, u, models.ActionPost)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
	denied, ok := pkg.AsDenied(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonBannedTemporary, denied.Code)
	assert.NotNil(t, denied.Until)
}

func TestPermission_PermanentBan(t *testing.T) {
	f := newFixture(t)
	u := f.user("troll", 2)
	f.ban(u, models.BanPermanent, nil)

	d, err := f.gate.CanPerform(f.ctx, u, models.ActionReply)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, models.ReasonBannedPermanent, d.Reason)
	assert.Nil(t, d.BannedUntil)
}

func TestPermission_ExpiredBanIsIgnored(t *testing.T) {
	f := newFixture(t)
	u := f.user("reformed", 1)
	past := time.Now().Add(-time.Minute)
	f.ban(u, models.BanTemporary, &past)

	d, err := f.gate.CanPerform(f.ctx, u, models.ActionPost)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	ban, err := f.gate.ActiveBan(f.ctx, u)
	require.NoError(t, err)
	assert.Nil(t, ban)
}

func TestPermission_CanModerate(t *testing.T) {
	f := newFixture(t)
	cat := "cat-1"
	other := "cat-2"

	admin := f.admin("admin")
	global := f.moderator("global", nil)
	scoped := f.moderator("scoped", &cat)
	plain := f.user("plain", 4)

	check := func(user string, category *string) bool {
		ok, err := f.gate.CanModerate(f.ctx, user, category)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, check(admin, &other))
	assert.True(t, check(global, &other))
	assert.True(t, check(global, nil))
	assert.True(t, check(scoped, &cat))
	assert.True(t, check(scoped, nil))
	assert.False(t, check(scoped, &other))
	assert.False(t, check(plain, nil))

	f.ban(global, models.BanPermanent, nil)
	assert.False(t, check(global, nil))

	err := f.gate.AuthorizeModeration(f.ctx, plain, nil)
	denied, ok := pkg.AsDenied(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonNotModerator, denied.Code)

	err = f.gate.AuthorizeAdmin(f.ctx, scoped)
	denied, ok = pkg.AsDenied(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonNotAdmin, denied.Code)
	assert.NoError(t, f.gate.AuthorizeAdmin(f.ctx, admin))
}
