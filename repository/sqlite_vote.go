package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/forumcore/database"
	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
)

type sqliteVoteRepo struct {
	db database.TxQuerier
}

// NewSQLiteVoteRepo returns the SQLite VoteRepository.
func NewSQLiteVoteRepo(db database.TxQuerier) VoteRepository {
	return &sqliteVoteRepo{db: db}
}

// InsertIfAbsent leans on UNIQUE(voter_id, target_type, target_id): a
// conflicting insert affects zero rows instead of failing.
func (r *sqliteVoteRepo) InsertIfAbsent(ctx context.Context, vote *models.Vote) (bool, error) {
	vote.ID = uuid.NewString()
	now := time.Now().UTC()
	vote.CreatedAt, vote.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO votes (id, voter_id, target_type, target_id, author_id, direction, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (voter_id, target_type, target_id) DO NOTHING`,
		vote.ID, vote.VoterID, vote.TargetType, vote.TargetID, vote.AuthorID,
		vote.Direction, vote.CreatedAt, vote.UpdatedAt,
	)
	if err != nil {
		return false, storageErr("insert vote", err)
	}
	return rowsChanged(res, "insert vote")
}

func (r *sqliteVoteRepo) SwitchDirection(ctx context.Context, voterID string, targetType models.TargetType, targetID string, dir models.Direction, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE votes SET direction = ?, updated_at = ?
		WHERE voter_id = ? AND target_type = ? AND target_id = ? AND direction <> ?`,
		dir, at.UTC(), voterID, targetType, targetID, dir,
	)
	if err != nil {
		return false, storageErr("switch vote direction", err)
	}
	return rowsChanged(res, "switch vote direction")
}

func (r *sqliteVoteRepo) DeleteIfDirection(ctx context.Context, voterID string, targetType models.TargetType, targetID string, dir models.Direction) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM votes
		WHERE voter_id = ? AND target_type = ? AND target_id = ? AND direction = ?`,
		voterID, targetType, targetID, dir,
	)
	if err != nil {
		return false, storageErr("delete vote", err)
	}
	return rowsChanged(res, "delete vote")
}

func (r *sqliteVoteRepo) Get(ctx context.Context, voterID string, targetType models.TargetType, targetID string) (*models.Vote, error) {
	v := &models.Vote{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, voter_id, target_type, target_id, author_id, direction, created_at, updated_at
		FROM votes WHERE voter_id = ? AND target_type = ? AND target_id = ?`,
		voterID, targetType, targetID,
	).Scan(&v.ID, &v.VoterID, &v.TargetType, &v.TargetID, &v.AuthorID, &v.Direction, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: vote", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get vote", err)
	}
	return v, nil
}

func (r *sqliteVoteRepo) Counts(ctx context.Context, targetType models.TargetType, targetID string) (models.VoteCounts, error) {
	var c models.VoteCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN direction = 'up'   THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN direction = 'down' THEN 1 ELSE 0 END), 0)
		FROM votes WHERE target_type = ? AND target_id = ?`,
		targetType, targetID,
	).Scan(&c.Upvotes, &c.Downvotes)
	if err != nil {
		return c, storageErr("aggregate votes", err)
	}
	c.Score = c.Upvotes - c.Downvotes
	return c, nil
}

// StatsForUser excludes self-votes from the received side.
func (r *sqliteVoteRepo) StatsForUser(ctx context.Context, userID string) (models.VotingStats, error) {
	var s models.VotingStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN voter_id = ? AND direction = 'up'   THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN voter_id = ? AND direction = 'down' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN author_id = ? AND voter_id <> ? AND direction = 'up'   THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN author_id = ? AND voter_id <> ? AND direction = 'down' THEN 1 ELSE 0 END), 0)
		FROM votes WHERE voter_id = ? OR author_id = ?`,
		userID, userID, userID, userID, userID, userID, userID, userID,
	).Scan(&s.UpvotesGiven, &s.DownvotesGiven, &s.UpvotesReceived, &s.DownvotesReceived)
	if err != nil {
		return s, storageErr("voting stats", err)
	}
	s.VotesGiven = s.UpvotesGiven + s.DownvotesGiven
	s.Karma = s.UpvotesReceived - s.DownvotesReceived
	return s, nil
}

func (r *sqliteVoteRepo) ThreadAggregates(ctx context.Context) ([]models.VoteAggregate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.created_at,
			COALESCE(SUM(CASE WHEN v.direction = 'up'   THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN v.direction = 'down' THEN 1 ELSE 0 END), 0)
		FROM threads t
		LEFT JOIN votes v ON v.target_type = 'thread' AND v.target_id = t.id
		WHERE t.is_deleted = 0
		GROUP BY t.id, t.created_at`)
	if err != nil {
		return nil, storageErr("aggregate thread votes", err)
	}
	defer rows.Close()

	var aggs []models.VoteAggregate
	for rows.Next() {
		var a models.VoteAggregate
		if err := rows.Scan(&a.TargetID, &a.TargetCreatedAt, &a.Upvotes, &a.Downvotes); err != nil {
			return nil, storageErr("scan thread aggregate", err)
		}
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate thread aggregates", err)
	}
	return aggs, nil
}
