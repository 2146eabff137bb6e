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

type sqliteBanRepo struct {
	db database.TxQuerier
}

// NewSQLiteBanRepo returns the SQLite BanRepository.
func NewSQLiteBanRepo(db database.TxQuerier) BanRepository {
	return &sqliteBanRepo{db: db}
}

const banColumns = `id, user_id, issued_by, type, reason, notes, start_at, end_at,
	is_active, lifted_at, lifted_by, lift_reason, created_at`

func scanBan(row interface{ Scan(...any) error }, b *models.Ban) error {
	return row.Scan(&b.ID, &b.UserID, &b.IssuedBy, &b.Type, &b.Reason, &b.Notes,
		&b.StartAt, &b.EndAt, &b.IsActive, &b.LiftedAt, &b.LiftedBy, &b.LiftReason, &b.CreatedAt)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (r *sqliteBanRepo) Create(ctx context.Context, ban *models.Ban) error {
	ban.ID = uuid.NewString()
	ban.CreatedAt = time.Now().UTC()
	if ban.StartAt.IsZero() {
		ban.StartAt = ban.CreatedAt
	}
	ban.IsActive = true

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bans (id, user_id, issued_by, type, reason, notes, start_at, end_at, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
		ban.ID, ban.UserID, ban.IssuedBy, ban.Type, ban.Reason, ban.Notes,
		ban.StartAt.UTC(), utcPtr(ban.EndAt), ban.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user already has an active ban", pkg.ErrConflict)
		}
		return storageErr("create ban", err)
	}
	return nil
}

func (r *sqliteBanRepo) GetActive(ctx context.Context, userID string) (*models.Ban, error) {
	b := &models.Ban{}
	err := scanBan(r.db.QueryRowContext(ctx,
		`SELECT `+banColumns+` FROM bans WHERE user_id = ? AND is_active = 1`, userID), b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: active ban", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get active ban", err)
	}
	return b, nil
}

func (r *sqliteBanRepo) Deactivate(ctx context.Context, banID string, liftedBy, reason *string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bans SET is_active = 0, lifted_at = ?, lifted_by = ?, lift_reason = ?
		WHERE id = ? AND is_active = 1`,
		at.UTC(), liftedBy, reason, banID,
	)
	if err != nil {
		return false, storageErr("deactivate ban", err)
	}
	return rowsChanged(res, "deactivate ban")
}

func (r *sqliteBanRepo) ListByUser(ctx context.Context, userID string) ([]models.Ban, error) {
	return r.list(ctx, "list user bans",
		`SELECT `+banColumns+` FROM bans WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

func (r *sqliteBanRepo) ListExpired(ctx context.Context, now time.Time) ([]models.Ban, error) {
	return r.list(ctx, "list expired bans", `
		SELECT `+banColumns+` FROM bans
		WHERE is_active = 1 AND end_at IS NOT NULL AND end_at <= ?
		ORDER BY end_at ASC`, now.UTC())
}

func (r *sqliteBanRepo) list(ctx context.Context, op, query string, args ...any) ([]models.Ban, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	var bans []models.Ban
	for rows.Next() {
		var b models.Ban
		if err := scanBan(rows, &b); err != nil {
			return nil, storageErr("scan ban row", err)
		}
		bans = append(bans, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate ban rows", err)
	}
	return bans, nil
}
