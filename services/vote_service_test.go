package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
)

// karmaSpy records "+author" for a receipt and "-author" for a retraction.
type karmaSpy struct {
	authors chan string
}

func newKarmaSpy() *karmaSpy {
	return &karmaSpy{authors: make(chan string, 64)}
}

func (k *karmaSpy) RecordUpvoteReceived(_ context.Context, userID string) error {
	k.authors <- "+" + userID
	return nil
}

func (k *karmaSpy) RecordUpvoteRetracted(_ context.Context, userID string) error {
	k.authors <- "-" + userID
	return nil
}

func (k *karmaSpy) expect(t *testing.T, signal string) {
	t.Helper()
	select {
	case got := <-k.authors:
		assert.Equal(t, signal, got)
	case <-time.After(5 * time.Second):
		t.Fatal("karma was not signalled")
	}
}

func (k *karmaSpy) expectNone(t *testing.T) {
	t.Helper()
	select {
	case got := <-k.authors:
		t.Fatalf("unexpected karma for %s", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCastVote_ToggleAndSwitch(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	voter := f.user("voter", 1)
	threadID := f.thread(author, time.Time{}, nil)
	svc := NewVoteService(f.store, f.gate, nil)

	out, err := svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, models.VoteCreated, out.Kind)
	assert.Equal(t, models.DirectionUp, out.Direction)
	assert.Equal(t, models.VoteCounts{Upvotes: 1, Score: 1}, svc.GetVoteCounts(f.ctx, models.TargetThread, threadID))

	out, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, models.VoteUpdated, out.Kind)
	assert.Equal(t, models.DirectionDown, out.Direction)
	assert.Equal(t, models.VoteCounts{Downvotes: 1, Score: -1}, svc.GetVoteCounts(f.ctx, models.TargetThread, threadID))

	dir, err := svc.GetUserVote(f.ctx, voter, models.TargetThread, threadID)
	require.NoError(t, err)
	require.NotNil(t, dir)
	assert.Equal(t, models.DirectionDown, *dir)

	out, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionDown)
	require.NoError(t, err)
	assert.Equal(t, models.VoteRemoved, out.Kind)
	assert.Equal(t, models.VoteCounts{}, svc.GetVoteCounts(f.ctx, models.TargetThread, threadID))

	dir, err = svc.GetUserVote(f.ctx, voter, models.TargetThread, threadID)
	require.NoError(t, err)
	assert.Nil(t, dir)
}

func TestCastVote_DownvoteNeedsMember(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	newbie := f.user("newbie", 0)
	postID := f.post(author, f.thread(author, time.Time{}, nil))
	svc := NewVoteService(f.store, f.gate, nil)

	_, err := svc.CastVote(f.ctx, newbie, models.TargetPost, postID, models.DirectionDown)
	require.ErrorIs(t, err, pkg.ErrUnauthorized)
	denied, ok := pkg.AsDenied(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonInsufficientTrust, denied.Code)
	assert.Equal(t, models.VoteCounts{}, svc.GetVoteCounts(f.ctx, models.TargetPost, postID))

	out, err := svc.CastVote(f.ctx, newbie, models.TargetPost, postID, models.DirectionUp)
	require.NoError(t, err)
	assert.Equal(t, models.VoteCreated, out.Kind)
}

func TestCastVote_BannedVoter(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	voter := f.user("voter", 3)
	threadID := f.thread(author, time.Time{}, nil)
	f.ban(voter, models.BanPermanent, nil)
	svc := NewVoteService(f.store, f.gate, nil)

	_, err := svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
	denied, ok := pkg.AsDenied(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonBannedPermanent, denied.Code)
}

func TestCastVote_InvalidInput(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	voter := f.user("voter", 1)
	threadID := f.thread(author, time.Time{}, nil)
	svc := NewVoteService(f.store, f.gate, nil)

	_, err := svc.CastVote(f.ctx, voter, "comment", threadID, models.DirectionUp)
	assert.ErrorIs(t, err, pkg.ErrValidation)

	_, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, "sideways")
	assert.ErrorIs(t, err, pkg.ErrValidation)

	_, err = svc.CastVote(f.ctx, voter, models.TargetThread, "missing", models.DirectionUp)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	require.NoError(t, f.store.Content().SoftDeleteThread(f.ctx, threadID, time.Now()))
	_, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestCastVote_KarmaOnNetNewUpvote(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	voter := f.user("voter", 1)
	threadID := f.thread(author, time.Time{}, nil)
	karma := newKarmaSpy()
	svc := NewVoteService(f.store, f.gate, karma)

	_, err := svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
	require.NoError(t, err)
	karma.expect(t, "+"+author)

	// up → down takes the upvote back, down → up grants it again
	_, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionDown)
	require.NoError(t, err)
	karma.expect(t, "-"+author)

	_, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
	require.NoError(t, err)
	karma.expect(t, "+"+author)

	_, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
	require.NoError(t, err)
	karma.expect(t, "-"+author)

	// removing a downvote touches no karma
	_, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionDown)
	require.NoError(t, err)
	_, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionDown)
	require.NoError(t, err)
	karma.expectNone(t)
}

func TestCastVote_SelfVoteEarnsNoKarma(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 1)
	threadID := f.thread(author, time.Time{}, nil)
	karma := newKarmaSpy()
	svc := NewVoteService(f.store, f.gate, karma)

	_, err := svc.CastVote(f.ctx, author, models.TargetThread, threadID, models.DirectionUp)
	require.NoError(t, err)
	karma.expectNone(t)

	stats, err := svc.GetUserVotingStats(f.ctx, author)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.UpvotesGiven)
	assert.Equal(t, 0, stats.UpvotesReceived)
	assert.Equal(t, 0, stats.Karma)
}

func TestCastVote_KarmaFeedsTrust(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	voter := f.user("voter", 1)
	threadID := f.thread(author, time.Time{}, nil)
	trust := NewTrustService(f.store, f.gate, nil)
	svc := NewVoteService(f.store, f.gate, trust)

	_, err := svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p, err := f.store.Trust().Get(f.ctx, author)
		return err == nil && p.LikesReceived == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCastVote_UpvoteTogglingDoesNotInflateLikes(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	voter := f.user("voter", 1)
	threadID := f.thread(author, time.Time{}, nil)
	trust := NewTrustService(f.store, f.gate, nil)
	svc := NewVoteService(f.store, f.gate, trust)

	for i := 0; i < 12; i++ {
		_, err := svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
		require.NoError(t, err)
		_, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
		require.NoError(t, err)
	}

	_, err := svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
	require.NoError(t, err)
	_, err = svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionDown)
	require.NoError(t, err)

	p, err := f.store.Trust().Get(f.ctx, author)
	require.NoError(t, err)
	assert.Equal(t, 0, p.LikesReceived)
	assert.Equal(t, models.MinTrustLevel, p.TrustLevel)

	stats, err := svc.GetUserVotingStats(f.ctx, author)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.UpvotesReceived)
}

func TestCastVote_Callbacks(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	voter := f.user("voter", 1)
	threadID := f.thread(author, time.Time{}, nil)
	svc := NewVoteService(f.store, f.gate, nil)

	events := make(chan VoteCastEvent, 1)
	svc.OnVoteCast(func(e VoteCastEvent) { events <- e })

	_, err := svc.CastVote(f.ctx, voter, models.TargetThread, threadID, models.DirectionUp)
	require.NoError(t, err)

	select {
	case e := <-events:
		assert.Equal(t, voter, e.VoterID)
		assert.Equal(t, author, e.AuthorID)
		assert.Equal(t, threadID, e.TargetID)
		assert.Equal(t, models.VoteCreated, e.Outcome.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("callback did not fire")
	}
}

func TestCastVote_ConcurrentTogglesKeepOneRow(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	voter := f.user("voter", 1)
	threadID := f.thread(author, time.Time{}, nil)
	svc := NewVoteService(f.store, f.gate, nil)

	const casts = 9
	var g errgroup.Group
	for i := 0; i < casts; i++ {
		g.Go(func() error {
			_, err := svc.CastVote(context.Background(), voter, models.TargetThread, threadID, models.DirectionUp)
			return err
		})
	}
	require.NoError(t, g.Wait())

	// an odd number of toggles leaves exactly one upvote
	assert.Equal(t, models.VoteCounts{Upvotes: 1, Score: 1}, svc.GetVoteCounts(f.ctx, models.TargetThread, threadID))
}

func TestCastVote_ConcurrentVoters(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	threadID := f.thread(author, time.Time{}, nil)
	svc := NewVoteService(f.store, f.gate, nil)

	const voters = 12
	ids := make([]string, voters)
	for i := range ids {
		ids[i] = f.user(fmt.Sprintf("voter%d", i), 1)
	}

	var g errgroup.Group
	for i, id := range ids {
		dir := models.DirectionUp
		if i%3 == 0 {
			dir = models.DirectionDown
		}
		g.Go(func() error {
			_, err := svc.CastVote(context.Background(), id, models.TargetThread, threadID, dir)
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, models.VoteCounts{Upvotes: 8, Downvotes: 4, Score: 4}, svc.GetVoteCounts(f.ctx, models.TargetThread, threadID))
}

func TestGetUserVotingStats(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 1)
	fan := f.user("fan", 1)
	critic := f.user("critic", 1)
	svc := NewVoteService(f.store, f.gate, nil)

	t1 := f.thread(author, time.Time{}, nil)
	t2 := f.thread(fan, time.Time{}, nil)

	cast := func(voter, target string, dir models.Direction) {
		_, err := svc.CastVote(f.ctx, voter, models.TargetThread, target, dir)
		require.NoError(t, err)
	}
	cast(fan, t1, models.DirectionUp)
	cast(critic, t1, models.DirectionDown)
	cast(author, t2, models.DirectionUp)

	stats, err := svc.GetUserVotingStats(f.ctx, author)
	require.NoError(t, err)
	assert.Equal(t, models.VotingStats{
		VotesGiven:        1,
		UpvotesGiven:      1,
		UpvotesReceived:   1,
		DownvotesReceived: 1,
		Karma:             0,
	}, *stats)

	_, err = svc.GetUserVotingStats(f.ctx, "missing")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}
