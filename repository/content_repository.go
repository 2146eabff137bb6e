package repository

import (
	"context"
	"time"

	"github.com/akinalp/forumcore/models"
)

// ContentRepository stores threads and posts and executes soft deletion.
type ContentRepository interface {
	CreateThread(ctx context.Context, thread *models.Thread) error
	CreatePost(ctx context.Context, post *models.Post) error
	GetThread(ctx context.Context, id string) (*models.Thread, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListThreadsByIDs(ctx context.Context, ids []string) (map[string]models.Thread, error)

	// GetRef resolves a live (not deleted) vote target.
	GetRef(ctx context.Context, targetType models.TargetType, id string) (*models.ContentRef, error)

	// CountAuthoredSince counts threads and posts created by authorID at or after since.
	CountAuthoredSince(ctx context.Context, authorID string, since time.Time) (int, error)

	SoftDeleteThread(ctx context.Context, id string, at time.Time) error
	SoftDeletePost(ctx context.Context, id string, at time.Time) error
	SoftDeleteByAuthor(ctx context.Context, authorID string, at time.Time) (models.PurgeResult, error)
}
