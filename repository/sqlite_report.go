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

type sqliteReportRepo struct {
	db database.TxQuerier
}

// NewSQLiteReportRepo returns the SQLite ReportRepository.
func NewSQLiteReportRepo(db database.TxQuerier) ReportRepository {
	return &sqliteReportRepo{db: db}
}

const reportColumns = `id, reporter_id, target_type, target_id, reason, description, status,
	reviewed_by, review_notes, reviewed_at, created_at`

func scanReport(row interface{ Scan(...any) error }, rp *models.Report) error {
	return row.Scan(&rp.ID, &rp.ReporterID, &rp.TargetType, &rp.TargetID, &rp.Reason,
		&rp.Description, &rp.Status, &rp.ReviewedBy, &rp.ReviewNotes, &rp.ReviewedAt, &rp.CreatedAt)
}

func (r *sqliteReportRepo) Create(ctx context.Context, rp *models.Report) error {
	rp.ID = uuid.NewString()
	rp.CreatedAt = time.Now().UTC()
	rp.Status = models.ReportPending

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (id, reporter_id, target_type, target_id, reason, description, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rp.ID, rp.ReporterID, rp.TargetType, rp.TargetID, rp.Reason, rp.Description,
		rp.Status, rp.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: report already pending", pkg.ErrConflict)
		}
		return storageErr("create report", err)
	}
	return nil
}

func (r *sqliteReportRepo) GetByID(ctx context.Context, id string) (*models.Report, error) {
	rp := &models.Report{}
	err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE id = ?`, id), rp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: report", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get report", err)
	}
	return rp, nil
}

func (r *sqliteReportRepo) ListByStatus(ctx context.Context, status models.ReportStatus, limit int) ([]models.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM reports
		WHERE status = ? ORDER BY created_at ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, storageErr("list reports", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var rp models.Report
		if err := scanReport(rows, &rp); err != nil {
			return nil, storageErr("scan report row", err)
		}
		reports = append(reports, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate report rows", err)
	}
	return reports, nil
}

func (r *sqliteReportRepo) Resolve(ctx context.Context, id string, status models.ReportStatus, reviewerID, notes string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = ?, reviewed_by = ?, review_notes = ?, reviewed_at = ?
		WHERE id = ? AND status = 'pending'`,
		status, reviewerID, notes, at.UTC(), id,
	)
	if err != nil {
		return false, storageErr("resolve report", err)
	}
	return rowsChanged(res, "resolve report")
}
