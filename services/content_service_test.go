package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
)

func TestContentService_DailyQuotaFollowsTrustLevel(t *testing.T) {
	f := newFixture(t)
	newbie := f.user("newbie", 0)
	regular := f.user("regular", 2)
	svc := NewContentService(f.store, f.gate, nil)

	req := func() *models.CreateThreadRequest {
		return &models.CreateThreadRequest{Title: "hello", Content: "world"}
	}

	thread, err := svc.CreateThread(f.ctx, newbie, req())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := svc.CreatePost(f.ctx, newbie, thread.ID, &models.CreatePostRequest{Content: "reply"})
		require.NoError(t, err)
	}

	_, err = svc.CreatePost(f.ctx, newbie, thread.ID, &models.CreatePostRequest{Content: "one too many"})
	denied, ok := pkg.AsDenied(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonDailyLimit, denied.Code)

	for i := 0; i < 5; i++ {
		_, err := svc.CreateThread(f.ctx, regular, req())
		require.NoError(t, err)
	}
}

func TestContentService_QuotaResetsAtUTCMidnight(t *testing.T) {
	f := newFixture(t)
	u := f.user("u", 0)
	svc := NewContentService(f.store, f.gate, nil)

	// three threads yesterday do not count against today
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	for i := 0; i < 3; i++ {
		f.thread(u, yesterday, nil)
	}

	_, err := svc.CreateThread(f.ctx, u, &models.CreateThreadRequest{Title: "t", Content: "c"})
	assert.NoError(t, err)
}

func TestContentService_RecordsActivity(t *testing.T) {
	f := newFixture(t)
	u := f.user("writer", 2)
	trust := NewTrustService(f.store, f.gate, nil)
	svc := NewContentService(f.store, f.gate, trust)

	thread, err := svc.CreateThread(f.ctx, u, &models.CreateThreadRequest{Title: "t", Content: "c"})
	require.NoError(t, err)
	_, err = svc.CreatePost(f.ctx, u, thread.ID, &models.CreatePostRequest{Content: "r"})
	require.NoError(t, err)

	p, err := trust.GetProfile(f.ctx, u)
	require.NoError(t, err)
	assert.Equal(t, 1, p.TopicsCreated)
	assert.Equal(t, 1, p.PostsCount)
}

func TestContentService_Validation(t *testing.T) {
	f := newFixture(t)
	u := f.user("u", 1)
	svc := NewContentService(f.store, f.gate, nil)

	_, err := svc.CreateThread(f.ctx, u, &models.CreateThreadRequest{Title: "  ", Content: "c"})
	assert.ErrorIs(t, err, pkg.ErrValidation)

	_, err = svc.CreatePost(f.ctx, u, "missing", &models.CreatePostRequest{Content: "c"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	thread, err := svc.CreateThread(f.ctx, u, &models.CreateThreadRequest{Title: "t", Content: "c"})
	require.NoError(t, err)
	require.NoError(t, f.store.Content().SoftDeleteThread(f.ctx, thread.ID, time.Now()))

	_, err = svc.GetThread(f.ctx, thread.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	_, err = svc.CreatePost(f.ctx, u, thread.ID, &models.CreatePostRequest{Content: "c"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestContentService_BannedAuthor(t *testing.T) {
	f := newFixture(t)
	u := f.user("u", 1)
	end := time.Now().Add(time.Hour)
	f.ban(u, models.BanTemporary, &end)
	svc := NewContentService(f.store, f.gate, nil)

	_, err := svc.CreateThread(f.ctx, u, &models.CreateThreadRequest{Title: "t", Content: "c"})
	denied, ok := pkg.AsDenied(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonBannedTemporary, denied.Code)
	assert.NotNil(t, denied.Until)
}

func TestContentService_OnThreadCreated(t *testing.T) {
	f := newFixture(t)
	u := f.user("u", 1)
	svc := NewContentService(f.store, f.gate, nil)

	got := make(chan *models.Thread, 1)
	svc.OnThreadCreated(func(th *models.Thread) { got <- th })

	thread, err := svc.CreateThread(f.ctx, u, &models.CreateThreadRequest{Title: "t", Content: "c"})
	require.NoError(t, err)

	select {
	case th := <-got:
		assert.Equal(t, thread.ID, th.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("callback not run")
	}
}
