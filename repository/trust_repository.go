package repository

import (
	"context"
	"time"

	"github.com/akinalp/forumcore/models"
)

// TrustMetric names a counter column of user_trust_profiles.
type TrustMetric string

const (
	MetricPosts         TrustMetric = "posts_count"
	MetricTopics        TrustMetric = "topics_created"
	MetricReadMinutes   TrustMetric = "time_read_minutes"
	MetricLikesReceived TrustMetric = "likes_received"
	MetricFlagsAgreed   TrustMetric = "flags_agreed"
)

// TrustRepository stores participation metrics and trust levels.
type TrustRepository interface {
	// Ensure creates a level 0 profile if the user has none yet.
	Ensure(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (*models.UserTrustProfile, error)
	Increment(ctx context.Context, userID string, metric TrustMetric, delta int) error
	// MarkVisit counts day at most once. It reports whether the counter moved.
	MarkVisit(ctx context.Context, userID, day string) (bool, error)
	// PromoteIfHigher raises trust_level to level only when the stored value
	// is lower, so promotion never demotes and never applies twice.
	PromoteIfHigher(ctx context.Context, userID string, level int, at time.Time) (bool, error)
	// SetLevel overwrites trust_level unconditionally and snapshots the
	// current metrics as the promotion baseline.
	SetLevel(ctx context.Context, userID string, level int, at time.Time) error
	Leaderboard(ctx context.Context, limit int) ([]models.UserTrustProfile, error)
}
