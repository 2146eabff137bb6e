package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/repository"
)

// ReportService handles user flags and their review queue.
type ReportService interface {
	Create(ctx context.Context, reporterID string, req *models.CreateReportRequest) (*models.Report, error)
	ListPending(ctx context.Context, moderatorID string, limit int) ([]models.Report, error)
	// Review resolves a pending report. An actioned report credits the
	// reporter with an agreed flag.
	Review(ctx context.Context, reportID string, req *models.ReviewReportRequest, moderatorID string) (*models.Report, error)
}

// FlagRecorder receives agreed flags for trust metrics.
type FlagRecorder interface {
	RecordFlagAgreed(ctx context.Context, userID string) error
}

type reportService struct {
	store repository.Store
	gate  PermissionService
	flags FlagRecorder
	now   func() time.Time
}

// NewReportService wires the report queue. flags may be nil.
func NewReportService(store repository.Store, gate PermissionService, flags FlagRecorder) ReportService {
	return &reportService{store: store, gate: gate, flags: flags, now: time.Now}
}

func (s *reportService) Create(ctx context.Context, reporterID string, req *models.CreateReportRequest) (*models.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}
	if err := s.gate.Authorize(ctx, reporterID, models.ActionFlag); err != nil {
		return nil, err
	}

	switch req.TargetType {
	case "user":
		if req.TargetID == reporterID {
			return nil, fmt.Errorf("%w: cannot report yourself", pkg.ErrValidation)
		}
		if _, err := s.store.Users().GetByID(ctx, req.TargetID); err != nil {
			return nil, err
		}
	default:
		if _, err := s.store.Content().GetRef(ctx, models.TargetType(req.TargetType), req.TargetID); err != nil {
			return nil, err
		}
	}

	report := &models.Report{
		ReporterID:  reporterID,
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		Reason:      req.Reason,
		Description: req.Description,
		Status:      models.ReportPending,
	}
	if err := s.store.Reports().Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *reportService) ListPending(ctx context.Context, moderatorID string, limit int) ([]models.Report, error) {
	if err := s.gate.AuthorizeModeration(ctx, moderatorID, nil); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}
	limit = min(limit, maxLogLimit)

	reports, err := s.store.Reports().ListByStatus(ctx, models.ReportPending, limit)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return reports, nil
}

func (s *reportService) Review(ctx context.Context, reportID string, req *models.ReviewReportRequest, moderatorID string) (*models.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}
	if err := s.gate.AuthorizeModeration(ctx, moderatorID, nil); err != nil {
		return nil, err
	}

	report, err := s.store.Reports().GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		ok, err := tx.Reports().Resolve(ctx, reportID, req.Status, moderatorID, req.Notes, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: report already reviewed", pkg.ErrConflict)
		}
		return tx.Actions().Append(ctx, &models.ModeratorAction{
			ModeratorID: &moderatorID,
			ActionType:  models.ActionReviewReport,
			TargetType:  &report.TargetType,
			TargetID:    &report.TargetID,
			Reason:      req.Notes,
			Details: details(map[string]any{
				"report_id": reportID,
				"status":    req.Status,
			}),
		})
	})
	if err != nil {
		return nil, err
	}

	if req.Status == models.ReportActioned && s.flags != nil {
		if err := s.flags.RecordFlagAgreed(ctx, report.ReporterID); err != nil {
			log.Printf("[report] failed to credit flag to %s: %v", report.ReporterID, err)
		}
	}

	return s.store.Reports().GetByID(ctx, reportID)
}
