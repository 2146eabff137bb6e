package repository

import (
	"context"

	"github.com/akinalp/forumcore/models"
)

// ModeratorRepository stores moderator assignments.
type ModeratorRepository interface {
	Create(ctx context.Context, m *models.Moderator) error
	GetByID(ctx context.Context, id string) (*models.Moderator, error)
	Deactivate(ctx context.Context, id string) error
	// IsActiveFor reports whether the user holds an active assignment that
	// covers categoryID. A nil categoryID (user-level moderation) accepts
	// any active assignment; otherwise only a global one or one for that
	// category counts.
	IsActiveFor(ctx context.Context, userID string, categoryID *string) (bool, error)
	ListActive(ctx context.Context) ([]models.Moderator, error)
}
