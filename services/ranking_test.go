package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
)

func TestHotScore(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

	assert.InDelta(t, 12669.4919536, HotScore(100, 10, jan), 1e-7)
	assert.Greater(t, HotScore(100, 10, dec), HotScore(100, 10, jan))

	// no votes: recency only
	assert.InDelta(t, 12667.5377111, HotScore(0, 0, jan), 1e-7)
	// net negative pulls below the neutral score
	assert.Less(t, HotScore(10, 100, jan), HotScore(0, 0, jan))
	// same age, larger margin wins
	assert.Greater(t, HotScore(50, 0, jan), HotScore(5, 0, jan))
}

func TestHotScore_Deterministic(t *testing.T) {
	at := time.Date(2023, 6, 15, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, HotScore(7, 3, at), HotScore(7, 3, at.In(time.FixedZone("x", 3*3600))))
}

func TestControversialScore(t *testing.T) {
	assert.Zero(t, ControversialScore(0, 5))
	assert.Zero(t, ControversialScore(5, 0))
	assert.Zero(t, ControversialScore(0, 0))
	assert.Equal(t, 20.0, ControversialScore(10, 10))
	assert.InDelta(t, 13.3333333, ControversialScore(30, 10), 1e-6)
	assert.Equal(t, ControversialScore(30, 10), ControversialScore(10, 30))
	assert.Greater(t, ControversialScore(50, 50), ControversialScore(90, 10))
}

func TestRankingService_GetRanking(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	threadID := f.thread(author, created, nil)

	votes := NewVoteService(f.store, f.gate, nil)
	for i, name := range []string{"a", "b", "c"} {
		voter := f.user(name, 1)
		dir := models.DirectionUp
		if i == 2 {
			dir = models.DirectionDown
		}
		_, err := votes.CastVote(f.ctx, voter, models.TargetThread, threadID, dir)
		require.NoError(t, err)
	}

	svc := NewRankingService(f.store, nil)
	r, err := svc.GetRanking(f.ctx, models.TargetThread, threadID)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Upvotes)
	assert.Equal(t, 1, r.Downvotes)
	assert.Equal(t, HotScore(2, 1, created), r.HotScore)
	assert.Equal(t, ControversialScore(2, 1), r.ControversialScore)

	_, err = svc.GetRanking(f.ctx, models.TargetThread, "missing")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestRankingService_TopThreadsFromStorage(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	old := f.thread(author, base, nil)
	fresh := f.thread(author, base.Add(48*time.Hour), nil)
	split := f.thread(author, base.Add(time.Hour), nil)

	votes := NewVoteService(f.store, f.gate, nil)
	cast := func(voter, target string, dir models.Direction) {
		_, err := votes.CastVote(f.ctx, voter, models.TargetThread, target, dir)
		require.NoError(t, err)
	}
	for i := 0; i < 4; i++ {
		v := f.user("voter"+string(rune('a'+i)), 1)
		cast(v, old, models.DirectionUp)
		if i%2 == 0 {
			cast(v, split, models.DirectionUp)
		} else {
			cast(v, split, models.DirectionDown)
		}
	}

	svc := NewRankingService(f.store, nil)

	hot, err := svc.TopThreads(f.ctx, models.SortHot, 10)
	require.NoError(t, err)
	require.Len(t, hot, 3)
	assert.Equal(t, fresh, hot[0].Thread.ID)

	top, err := svc.TopThreads(f.ctx, models.SortTop, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, old, top[0].Thread.ID)
	assert.Equal(t, 4, top[0].Ranking.Upvotes)

	contro, err := svc.TopThreads(f.ctx, models.SortControversial, 10)
	require.NoError(t, err)
	assert.Equal(t, split, contro[0].Thread.ID)

	_, err = svc.TopThreads(f.ctx, "newest", 10)
	assert.ErrorIs(t, err, pkg.ErrValidation)
}
