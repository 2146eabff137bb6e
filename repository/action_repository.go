package repository

import (
	"context"

	"github.com/akinalp/forumcore/models"
)

// ActionRepository is the append-only moderation audit log.
type ActionRepository interface {
	Append(ctx context.Context, action *models.ModeratorAction) error
	// List returns newest first. A nil moderatorID lists every moderator.
	List(ctx context.Context, moderatorID *string, limit int) ([]models.ModeratorAction, error)
}
