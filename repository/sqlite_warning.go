package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/forumcore/database"
	"github.com/akinalp/forumcore/models"
)

type sqliteWarningRepo struct {
	db database.TxQuerier
}

// NewSQLiteWarningRepo returns the SQLite WarningRepository.
func NewSQLiteWarningRepo(db database.TxQuerier) WarningRepository {
	return &sqliteWarningRepo{db: db}
}

func (r *sqliteWarningRepo) Create(ctx context.Context, w *models.Warning) error {
	w.ID = uuid.NewString()
	w.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO warnings (id, user_id, issued_by, severity, reason, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.IssuedBy, w.Severity, w.Reason, w.Description, w.CreatedAt,
	)
	if err != nil {
		return storageErr("create warning", err)
	}
	return nil
}

func (r *sqliteWarningRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM warnings WHERE user_id = ?`, userID,
	).Scan(&n); err != nil {
		return 0, storageErr("count warnings", err)
	}
	return n, nil
}

func (r *sqliteWarningRepo) ListByUser(ctx context.Context, userID string) ([]models.Warning, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, issued_by, severity, reason, description, created_at
		FROM warnings WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, storageErr("list warnings", err)
	}
	defer rows.Close()

	var warnings []models.Warning
	for rows.Next() {
		var w models.Warning
		if err := rows.Scan(&w.ID, &w.UserID, &w.IssuedBy, &w.Severity, &w.Reason, &w.Description, &w.CreatedAt); err != nil {
			return nil, storageErr("scan warning row", err)
		}
		warnings = append(warnings, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate warning rows", err)
	}
	return warnings, nil
}
