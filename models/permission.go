package models

import (
	"fmt"
	"time"
)

// Action is a gated user operation.
type Action string

const (
	ActionView           Action = "view"
	ActionPost           Action = "post"
	ActionReply          Action = "reply"
	ActionVoteUp         Action = "vote_up"
	ActionVoteDown       Action = "vote_down"
	ActionUploadImage    Action = "upload_image"
	ActionUploadFile     Action = "upload_file"
	ActionEditOwn        Action = "edit_own"
	ActionEditOthers     Action = "edit_others"
	ActionFlag           Action = "flag"
	ActionCreatePoll     Action = "create_poll"
	ActionSeeViewers     Action = "see_viewers"
	ActionMoveThread     Action = "move_thread"
	ActionCreateCategory Action = "create_category"
)

// AllActions lists every gated action in a stable order.
var AllActions = []Action{
	ActionView, ActionPost, ActionReply, ActionVoteUp, ActionVoteDown,
	ActionUploadImage, ActionUploadFile, ActionEditOwn, ActionEditOthers,
	ActionFlag, ActionCreatePoll, ActionSeeViewers, ActionMoveThread,
	ActionCreateCategory,
}

// ParseAction rejects unknown actions.
func ParseAction(s string) (Action, error) {
	for _, a := range AllActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// ReadOnly reports whether the action is allowed during a ban.
func (a Action) ReadOnly() bool {
	return a == ActionView
}

// Denial reason codes. They are stable and mapped to copy by clients.
const (
	ReasonOK                = "ok"
	ReasonBannedTemporary   = "banned_temporary"
	ReasonBannedPermanent   = "banned_permanent"
	ReasonInsufficientTrust = "insufficient_trust"
	ReasonDailyLimit        = "daily_limit_reached"
	ReasonNotModerator      = "not_moderator"
	ReasonNotAdmin          = "not_admin"
	ReasonSelfModeration    = "self_moderation"
)

// Decision is the outcome of a permission check.
type Decision struct {
	Action      Action     `json:"action"`
	Allowed     bool       `json:"allowed"`
	Reason      string     `json:"reason"`
	TrustLevel  int        `json:"trust_level"`
	BannedUntil *time.Time `json:"banned_until,omitempty"`
}
