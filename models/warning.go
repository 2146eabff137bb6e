package models

import (
	"fmt"
	"strings"
	"time"
)

// WarningSeverity grades a warning.
type WarningSeverity string

const (
	SeverityLow      WarningSeverity = "low"
	SeverityMedium   WarningSeverity = "medium"
	SeverityHigh     WarningSeverity = "high"
	SeverityCritical WarningSeverity = "critical"
)

// Warning is append-only.
type Warning struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	IssuedBy    string          `json:"issued_by"`
	Severity    WarningSeverity `json:"severity"`
	Reason      string          `json:"reason"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WarningRequest is the payload of IssueWarning.
type WarningRequest struct {
	UserID      string          `json:"user_id"`
	Severity    WarningSeverity `json:"severity"`
	Reason      string          `json:"reason"`
	Description string          `json:"description"`
}

func (r *WarningRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	switch r.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	case "":
		r.Severity = SeverityLow
	default:
		return fmt.Errorf("unknown severity %q", r.Severity)
	}
	return nil
}

// WarningResult reports the warning, the count after it, and the
// escalation ban when one was issued.
type WarningResult struct {
	Warning      *Warning `json:"warning"`
	WarningCount int      `json:"warning_count"`
	AutoBan      *Ban     `json:"auto_ban,omitempty"`
}
