package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/forumcore/database"
	"github.com/akinalp/forumcore/models"
)

type sqliteActionRepo struct {
	db database.TxQuerier
}

// NewSQLiteActionRepo returns the SQLite ActionRepository.
func NewSQLiteActionRepo(db database.TxQuerier) ActionRepository {
	return &sqliteActionRepo{db: db}
}

func (r *sqliteActionRepo) Append(ctx context.Context, a *models.ModeratorAction) error {
	a.ID = uuid.NewString()
	a.CreatedAt = time.Now().UTC()
	if len(a.Details) == 0 {
		a.Details = []byte("{}")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO moderator_actions (id, moderator_id, action_type, target_type, target_id, reason, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ModeratorID, a.ActionType, a.TargetType, a.TargetID, a.Reason,
		string(a.Details), a.CreatedAt,
	)
	if err != nil {
		return storageErr("append moderator action", err)
	}
	return nil
}

func (r *sqliteActionRepo) List(ctx context.Context, moderatorID *string, limit int) ([]models.ModeratorAction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, moderator_id, action_type, target_type, target_id, reason, details, created_at
		FROM moderator_actions
		WHERE (? IS NULL OR moderator_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, moderatorID, moderatorID, limit)
	if err != nil {
		return nil, storageErr("list moderator actions", err)
	}
	defer rows.Close()

	var actions []models.ModeratorAction
	for rows.Next() {
		var a models.ModeratorAction
		var details string
		if err := rows.Scan(&a.ID, &a.ModeratorID, &a.ActionType, &a.TargetType, &a.TargetID,
			&a.Reason, &details, &a.CreatedAt); err != nil {
			return nil, storageErr("scan moderator action", err)
		}
		a.Details = []byte(details)
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate moderator actions", err)
	}
	return actions, nil
}
