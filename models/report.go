package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type ReportReason string

const (
	ReportSpam          ReportReason = "spam"
	ReportHarassment    ReportReason = "harassment"
	ReportInappropriate ReportReason = "inappropriate"
	ReportOfftopic      ReportReason = "offtopic"
	ReportOther         ReportReason = "other"
)

type ReportStatus string

const (
	ReportPending   ReportStatus = "pending"
	ReportReviewed  ReportStatus = "reviewed"
	ReportActioned  ReportStatus = "actioned"
	ReportDismissed ReportStatus = "dismissed"
)

// Report is a user flag on content or another user.
type Report struct {
	ID          string       `json:"id"`
	ReporterID  string       `json:"reporter_id"`
	TargetType  string       `json:"target_type"`
	TargetID    string       `json:"target_id"`
	Reason      ReportReason `json:"reason"`
	Description string       `json:"description"`
	Status      ReportStatus `json:"status"`
	ReviewedBy  *string      `json:"reviewed_by"`
	ReviewNotes *string      `json:"review_notes"`
	ReviewedAt  *time.Time   `json:"reviewed_at"`
	CreatedAt   time.Time    `json:"created_at"`
}

type CreateReportRequest struct {
	TargetType  string       `json:"target_type"`
	TargetID    string       `json:"target_id"`
	Reason      ReportReason `json:"reason"`
	Description string       `json:"description"`
}

func (r *CreateReportRequest) Validate() error {
	switch r.TargetType {
	case "thread", "post", "user":
	default:
		return fmt.Errorf("unknown target type %q", r.TargetType)
	}
	if r.TargetID == "" {
		return fmt.Errorf("target_id is required")
	}
	switch r.Reason {
	case ReportSpam, ReportHarassment, ReportInappropriate, ReportOfftopic, ReportOther:
	default:
		return fmt.Errorf("unknown report reason %q", r.Reason)
	}
	r.Description = strings.TrimSpace(r.Description)
	if utf8.RuneCountInString(r.Description) > 1000 {
		return fmt.Errorf("description must be at most 1000 characters")
	}
	return nil
}

type ReviewReportRequest struct {
	Status ReportStatus `json:"status"`
	Notes  string       `json:"notes"`
}

func (r *ReviewReportRequest) Validate() error {
	switch r.Status {
	case ReportReviewed, ReportActioned, ReportDismissed:
		return nil
	}
	return fmt.Errorf("unknown review status %q", r.Status)
}
