package services

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/pkg/keylock"
	"github.com/akinalp/forumcore/repository"
)

// ContentService is the minimal thread/post store the engines work on.
type ContentService interface {
	CreateThread(ctx context.Context, authorID string, req *models.CreateThreadRequest) (*models.Thread, error)
	CreatePost(ctx context.Context, authorID, threadID string, req *models.CreatePostRequest) (*models.Post, error)
	// GetThread hides soft-deleted threads.
	GetThread(ctx context.Context, id string) (*models.Thread, error)

	// OnThreadCreated registers a callback run after a thread is stored.
	OnThreadCreated(fn func(*models.Thread))
}

// ActivityRecorder receives authoring activity for trust metrics.
type ActivityRecorder interface {
	RecordPost(ctx context.Context, userID string) error
	RecordTopic(ctx context.Context, userID string) error
}

type contentService struct {
	store    repository.Store
	gate     PermissionService
	activity ActivityRecorder
	locks    *keylock.KeyedMutex
	now      func() time.Time

	mu        sync.RWMutex
	callbacks []func(*models.Thread)
}

// NewContentService wires the content store. activity may be nil.
func NewContentService(store repository.Store, gate PermissionService, activity ActivityRecorder) ContentService {
	return &contentService{
		store:    store,
		gate:     gate,
		activity: activity,
		locks:    keylock.New(),
		now:      time.Now,
	}
}

func (s *contentService) OnThreadCreated(fn func(*models.Thread)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// admit runs the gate and the daily quota of the author's level. The
// returned unlock holds the author's quota slot until the insert is done.
func (s *contentService) admit(ctx context.Context, authorID string, action models.Action) (func(), error) {
	d, err := s.gate.CanPerform(ctx, authorID, action)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return nil, &pkg.DeniedError{Code: d.Reason, Until: d.BannedUntil}
	}

	unlock := s.locks.Lock("quota|" + authorID)

	limit := Abilities(d.TrustLevel).MaxPostsPerDay
	if limit >= unlimitedPostsPerDay {
		return unlock, nil
	}

	dayStart := s.now().UTC().Truncate(24 * time.Hour)
	count, err := s.store.Content().CountAuthoredSince(ctx, authorID, dayStart)
	if err != nil {
		unlock()
		return nil, err
	}
	if count >= limit {
		unlock()
		return nil, pkg.Deny(models.ReasonDailyLimit)
	}
	return unlock, nil
}

func (s *contentService) CreateThread(ctx context.Context, authorID string, req *models.CreateThreadRequest) (*models.Thread, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}

	unlock, err := s.admit(ctx, authorID, models.ActionPost)
	if err != nil {
		return nil, err
	}
	defer unlock()

	thread := &models.Thread{
		AuthorID:   authorID,
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Content:    req.Content,
	}
	if err := s.store.Content().CreateThread(ctx, thread); err != nil {
		return nil, err
	}

	if s.activity != nil {
		if err := s.activity.RecordTopic(ctx, authorID); err != nil {
			log.Printf("[content] failed to record topic for %s: %v", authorID, err)
		}
	}

	s.mu.RLock()
	callbacks := slices.Clone(s.callbacks)
	s.mu.RUnlock()
	for _, fn := range callbacks {
		created := *thread
		go fn(&created)
	}
	return thread, nil
}

func (s *contentService) CreatePost(ctx context.Context, authorID, threadID string, req *models.CreatePostRequest) (*models.Post, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	unlock, err := s.admit(ctx, authorID, models.ActionReply)
	if err != nil {
		return nil, err
	}
	defer unlock()

	post := &models.Post{
		ThreadID: threadID,
		AuthorID: authorID,
		Content:  req.Content,
	}
	if err := s.store.Content().CreatePost(ctx, post); err != nil {
		return nil, err
	}

	if s.activity != nil {
		if err := s.activity.RecordPost(ctx, authorID); err != nil {
			log.Printf("[content] failed to record post for %s: %v", authorID, err)
		}
	}
	return post, nil
}

func (s *contentService) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	thread, err := s.store.Content().GetThread(ctx, id)
	if err != nil {
		return nil, err
	}
	if thread.IsDeleted {
		return nil, fmt.Errorf("%w: thread", pkg.ErrNotFound)
	}
	return thread, nil
}
