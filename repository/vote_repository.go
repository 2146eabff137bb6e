package repository

import (
	"context"
	"time"

	"github.com/akinalp/forumcore/models"
)

// VoteRepository stores the single live vote per (voter, target).
//
// The three write methods are conditional writes. Each reports whether it
// changed a row, so a caller can run them as a compare-and-swap sequence
// inside one transaction.
type VoteRepository interface {
	// InsertIfAbsent creates the vote unless one already exists for the pair.
	InsertIfAbsent(ctx context.Context, vote *models.Vote) (bool, error)
	// SwitchDirection flips an existing vote whose direction differs from dir.
	SwitchDirection(ctx context.Context, voterID string, targetType models.TargetType, targetID string, dir models.Direction, at time.Time) (bool, error)
	// DeleteIfDirection removes an existing vote whose direction equals dir.
	DeleteIfDirection(ctx context.Context, voterID string, targetType models.TargetType, targetID string, dir models.Direction) (bool, error)

	Get(ctx context.Context, voterID string, targetType models.TargetType, targetID string) (*models.Vote, error)
	Counts(ctx context.Context, targetType models.TargetType, targetID string) (models.VoteCounts, error)
	StatsForUser(ctx context.Context, userID string) (models.VotingStats, error)

	// ThreadAggregates returns vote totals for every live thread.
	ThreadAggregates(ctx context.Context) ([]models.VoteAggregate, error)
}
