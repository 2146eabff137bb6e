package repository

import (
	"context"

	"github.com/akinalp/forumcore/models"
)

// WarningRepository is append-only.
type WarningRepository interface {
	Create(ctx context.Context, warning *models.Warning) error
	CountByUser(ctx context.Context, userID string) (int, error)
	ListByUser(ctx context.Context, userID string) ([]models.Warning, error)
}
