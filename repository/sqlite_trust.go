package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/forumcore/database"
	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
)

type sqliteTrustRepo struct {
	db database.TxQuerier
}

// NewSQLiteTrustRepo returns the SQLite TrustRepository.
func NewSQLiteTrustRepo(db database.TxQuerier) TrustRepository {
	return &sqliteTrustRepo{db: db}
}

const trustColumns = `user_id, trust_level, posts_count, topics_created, days_visited,
	time_read_minutes, likes_received, flags_agreed, last_visit_day, last_promoted_at,
	created_at, updated_at, baseline_posts_count, baseline_topics_created,
	baseline_days_visited, baseline_time_read_minutes, baseline_likes_received,
	baseline_flags_agreed`

func scanTrust(row interface{ Scan(...any) error }, p *models.UserTrustProfile) error {
	b := &p.Baseline
	return row.Scan(&p.UserID, &p.TrustLevel, &p.PostsCount, &p.TopicsCreated, &p.DaysVisited,
		&p.TimeReadMinutes, &p.LikesReceived, &p.FlagsAgreed, &p.LastVisitDay, &p.LastPromotedAt,
		&p.CreatedAt, &p.UpdatedAt, &b.PostsCount, &b.TopicsCreated,
		&b.DaysVisited, &b.TimeReadMinutes, &b.LikesReceived,
		&b.FlagsAgreed)
}

func (r *sqliteTrustRepo) Ensure(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_trust_profiles (user_id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, now, now,
	)
	if err != nil {
		return storageErr("ensure trust profile", err)
	}
	return nil
}

func (r *sqliteTrustRepo) Get(ctx context.Context, userID string) (*models.UserTrustProfile, error) {
	p := &models.UserTrustProfile{}
	err := scanTrust(r.db.QueryRowContext(ctx,
		`SELECT `+trustColumns+` FROM user_trust_profiles WHERE user_id = ?`, userID), p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: trust profile", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get trust profile", err)
	}
	return p, nil
}

func (r *sqliteTrustRepo) Increment(ctx context.Context, userID string, metric TrustMetric, delta int) error {
	switch metric {
	case MetricPosts, MetricTopics, MetricReadMinutes, MetricLikesReceived, MetricFlagsAgreed:
	default:
		return fmt.Errorf("%w: unknown trust metric %q", pkg.ErrValidation, metric)
	}

	// The column name comes from the whitelist above.
	query := fmt.Sprintf(`
		UPDATE user_trust_profiles
		SET %[1]s = MAX(%[1]s + ?, 0), updated_at = ?
		WHERE user_id = ?`, metric)

	res, err := r.db.ExecContext(ctx, query, delta, time.Now().UTC(), userID)
	if err != nil {
		return storageErr("increment "+string(metric), err)
	}
	changed, err := rowsChanged(res, "increment "+string(metric))
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: trust profile", pkg.ErrNotFound)
	}
	return nil
}

func (r *sqliteTrustRepo) MarkVisit(ctx context.Context, userID, day string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_trust_profiles
		SET days_visited = days_visited + 1, last_visit_day = ?, updated_at = ?
		WHERE user_id = ? AND (last_visit_day IS NULL OR last_visit_day <> ?)`,
		day, time.Now().UTC(), userID, day,
	)
	if err != nil {
		return false, storageErr("mark visit", err)
	}
	return rowsChanged(res, "mark visit")
}

func (r *sqliteTrustRepo) PromoteIfHigher(ctx context.Context, userID string, level int, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_trust_profiles
		SET trust_level = ?, last_promoted_at = ?, updated_at = ?
		WHERE user_id = ? AND trust_level < ?`,
		level, at.UTC(), at.UTC(), userID, level,
	)
	if err != nil {
		return false, storageErr("promote trust level", err)
	}
	return rowsChanged(res, "promote trust level")
}

// SetLevel also snapshots the current metrics as the new promotion baseline.
func (r *sqliteTrustRepo) SetLevel(ctx context.Context, userID string, level int, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_trust_profiles
		SET trust_level = ?, last_promoted_at = ?, updated_at = ?,
			baseline_posts_count = posts_count,
			baseline_topics_created = topics_created,
			baseline_days_visited = days_visited,
			baseline_time_read_minutes = time_read_minutes,
			baseline_likes_received = likes_received,
			baseline_flags_agreed = flags_agreed
		WHERE user_id = ?`,
		level, at.UTC(), at.UTC(), userID,
	)
	if err != nil {
		return storageErr("set trust level", err)
	}
	changed, err := rowsChanged(res, "set trust level")
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: trust profile", pkg.ErrNotFound)
	}
	return nil
}

func (r *sqliteTrustRepo) Leaderboard(ctx context.Context, limit int) ([]models.UserTrustProfile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+trustColumns+` FROM user_trust_profiles
		ORDER BY trust_level DESC, likes_received DESC, posts_count DESC, user_id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("trust leaderboard", err)
	}
	defer rows.Close()

	var profiles []models.UserTrustProfile
	for rows.Next() {
		var p models.UserTrustProfile
		if err := scanTrust(rows, &p); err != nil {
			return nil, storageErr("scan trust profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate trust profiles", err)
	}
	return profiles, nil
}
