package repository

import (
	"context"
	"time"

	"github.com/akinalp/forumcore/models"
)

// ReportRepository stores user flags.
type ReportRepository interface {
	// Create returns pkg.ErrConflict when the reporter already has a
	// pending report on the same target.
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	ListByStatus(ctx context.Context, status models.ReportStatus, limit int) ([]models.Report, error)
	// Resolve moves a pending report to status. It reports false when the
	// report was no longer pending.
	Resolve(ctx context.Context, id string, status models.ReportStatus, reviewerID, notes string, at time.Time) (bool, error)
}
