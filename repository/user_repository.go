package repository

import (
	"context"

	"github.com/akinalp/forumcore/models"
)

// UserRepository stores accounts.
type UserRepository interface {
	// Create fills user.ID and user.CreatedAt. A taken username or email
	// returns pkg.ErrConflict.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}
