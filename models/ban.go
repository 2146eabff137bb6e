package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// BanType distinguishes time-bounded bans from permanent ones.
type BanType string

const (
	BanTemporary BanType = "temporary"
	BanPermanent BanType = "permanent"
)

// AutoBanReason is stamped on bans produced by warning escalation.
const AutoBanReason = "Automatic ban after 3 warnings"

// AutoBanDuration is the length of an escalation ban.
const AutoBanDuration = 7 * 24 * time.Hour

// AutoBanWarningThreshold is the warning count that triggers escalation.
const AutoBanWarningThreshold = 3

// Ban is one ban record. Rows are never deleted; IsActive flips to false
// on lift or expiry.
type Ban struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	IssuedBy   *string    `json:"issued_by"`
	Type       BanType    `json:"type"`
	Reason     string     `json:"reason"`
	Notes      string     `json:"notes"`
	StartAt    time.Time  `json:"start_at"`
	EndAt      *time.Time `json:"end_at"`
	IsActive   bool       `json:"is_active"`
	LiftedAt   *time.Time `json:"lifted_at,omitempty"`
	LiftedBy   *string    `json:"lifted_by,omitempty"`
	LiftReason *string    `json:"lift_reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// InEffect reports whether the ban covers now. An active temporary ban
// whose end has passed is not in effect even before the sweeper flips it.
func (b *Ban) InEffect(now time.Time) bool {
	if b == nil || !b.IsActive {
		return false
	}
	return b.EndAt == nil || b.EndAt.After(now)
}

// BanRequest is the payload of IssueBan.
type BanRequest struct {
	UserID string     `json:"user_id"`
	Type   BanType    `json:"type"`
	Reason string     `json:"reason"`
	EndAt  *time.Time `json:"end_at"`
	Notes  string     `json:"notes"`
}

// Validate checks the ban shape against now.
func (r *BanRequest) Validate(now time.Time) error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	if utf8.RuneCountInString(r.Reason) > 512 {
		return fmt.Errorf("ban reason must be at most 512 characters")
	}

	switch r.Type {
	case BanTemporary:
		if r.EndAt == nil || !r.EndAt.After(now) {
			return fmt.Errorf("temporary ban needs an end_at in the future")
		}
	case BanPermanent:
		if r.EndAt != nil {
			return fmt.Errorf("permanent ban must not have an end_at")
		}
	default:
		return fmt.Errorf("unknown ban type %q", r.Type)
	}
	return nil
}

// LiftBanRequest is the payload of LiftBan.
type LiftBanRequest struct {
	Reason string `json:"reason"`
}
