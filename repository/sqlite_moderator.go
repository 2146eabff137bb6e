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

type sqliteModeratorRepo struct {
	db database.TxQuerier
}

// NewSQLiteModeratorRepo returns the SQLite ModeratorRepository.
func NewSQLiteModeratorRepo(db database.TxQuerier) ModeratorRepository {
	return &sqliteModeratorRepo{db: db}
}

func (r *sqliteModeratorRepo) Create(ctx context.Context, m *models.Moderator) error {
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	m.IsActive = true

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO moderators (id, user_id, category_id, assigned_by, is_active, created_at)
		VALUES (?, ?, ?, ?, 1, ?)`,
		m.ID, m.UserID, m.CategoryID, m.AssignedBy, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user is already a moderator for this scope", pkg.ErrConflict)
		}
		return storageErr("create moderator", err)
	}
	return nil
}

func (r *sqliteModeratorRepo) GetByID(ctx context.Context, id string) (*models.Moderator, error) {
	m := &models.Moderator{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, category_id, assigned_by, is_active, created_at
		FROM moderators WHERE id = ?`, id,
	).Scan(&m.ID, &m.UserID, &m.CategoryID, &m.AssignedBy, &m.IsActive, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: moderator", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get moderator", err)
	}
	return m, nil
}

func (r *sqliteModeratorRepo) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE moderators SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return storageErr("deactivate moderator", err)
	}
	changed, err := rowsChanged(res, "deactivate moderator")
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: active moderator", pkg.ErrNotFound)
	}
	return nil
}

func (r *sqliteModeratorRepo) IsActiveFor(ctx context.Context, userID string, categoryID *string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM moderators
			WHERE user_id = ? AND is_active = 1
			  AND (? IS NULL OR category_id IS NULL OR category_id = ?)
		)`, userID, categoryID, categoryID,
	).Scan(&exists)
	if err != nil {
		return false, storageErr("check moderator", err)
	}
	return exists, nil
}

func (r *sqliteModeratorRepo) ListActive(ctx context.Context) ([]models.Moderator, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category_id, assigned_by, is_active, created_at
		FROM moderators WHERE is_active = 1 ORDER BY created_at ASC`)
	if err != nil {
		return nil, storageErr("list moderators", err)
	}
	defer rows.Close()

	var mods []models.Moderator
	for rows.Next() {
		var m models.Moderator
		if err := rows.Scan(&m.ID, &m.UserID, &m.CategoryID, &m.AssignedBy, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, storageErr("scan moderator row", err)
		}
		mods = append(mods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate moderator rows", err)
	}
	return mods, nil
}
