package repository

import (
	"context"
	"time"

	"github.com/akinalp/forumcore/models"
)

// BanRepository stores ban history. At most one row per user is active;
// the storage layer rejects a second one with pkg.ErrConflict.
//
// Rows are never deleted. Lifting or expiring a ban flips is_active and
// fills lifted_at (and lifted_by / lift_reason for a manual lift), so the
// full history stays available to GetUserBans and the audit log.
type BanRepository interface {
	Create(ctx context.Context, ban *models.Ban) error

	// GetActive returns the is_active row regardless of its end_at.
	// Callers decide whether it is still in effect.
	GetActive(ctx context.Context, userID string) (*models.Ban, error)

	// Deactivate flips an active ban off. liftedBy is nil for expiry.
	Deactivate(ctx context.Context, banID string, liftedBy, reason *string, at time.Time) (bool, error)

	ListByUser(ctx context.Context, userID string) ([]models.Ban, error)

	// ListExpired returns active temporary bans whose end_at is not after now.
	ListExpired(ctx context.Context, now time.Time) ([]models.Ban, error)
}
