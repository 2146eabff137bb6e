package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Moderator grants moderation rights. A nil CategoryID is a global moderator.
type Moderator struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CategoryID *string   `json:"category_id"`
	AssignedBy string    `json:"assigned_by"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// AssignModeratorRequest is the admin payload for a new moderator.
type AssignModeratorRequest struct {
	UserID     string  `json:"user_id"`
	CategoryID *string `json:"category_id"`
}

func (r *AssignModeratorRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if r.CategoryID != nil && *r.CategoryID == "" {
		r.CategoryID = nil
	}
	return nil
}

// ActionType names an audited moderation operation.
type ActionType string

const (
	ActionWarnUser        ActionType = "warn_user"
	ActionBanUser         ActionType = "ban_user"
	ActionUnbanUser       ActionType = "unban_user"
	ActionBanExpired      ActionType = "ban_expired"
	ActionPurgeUser       ActionType = "purge_user"
	ActionDeleteThread    ActionType = "delete_thread"
	ActionDeletePost      ActionType = "delete_post"
	ActionAssignModerator ActionType = "assign_moderator"
	ActionRemoveModerator ActionType = "remove_moderator"
	ActionReviewReport    ActionType = "review_report"
)

// ModeratorAction is an immutable audit record. ModeratorID is nil for
// system actions such as ban expiry.
type ModeratorAction struct {
	ID          string          `json:"id"`
	ModeratorID *string         `json:"moderator_id"`
	ActionType  ActionType      `json:"action_type"`
	TargetType  *string         `json:"target_type"`
	TargetID    *string         `json:"target_id"`
	Reason      string          `json:"reason"`
	Details     json.RawMessage `json:"details"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PurgeResult counts what a purge soft-deleted.
type PurgeResult struct {
	ThreadsDeleted int `json:"threads_deleted"`
	PostsDeleted   int `json:"posts_deleted"`
}

// ReasonRequest carries a free-form reason for delete, purge and lift.
type ReasonRequest struct {
	Reason string `json:"reason"`
}
