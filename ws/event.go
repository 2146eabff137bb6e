// Package ws pushes real-time forum events over WebSocket.
//
// Layout:
//   - Hub: tracks connections per user and fans events out
//   - Client: one WebSocket connection with its read and write pumps
//   - Event: the wire envelope
//
// Services publish through the EventPublisher interface; they never see
// connections.
package ws

// Event is the wire envelope. Seq increases per outbound event so a client
// can spot gaps.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client → server
const (
	OpHeartbeat = "heartbeat"
)

// Server → client
const (
	OpReady            = "ready"
	OpHeartbeatAck     = "heartbeat_ack"
	OpVoteUpdate       = "vote_update"
	OpTrustLevelUpdate = "trust_level_update"
	OpWarningIssued    = "warning_issued"
	OpBanIssued        = "ban_issued"
	OpBanLifted        = "ban_lifted"
	OpContentDeleted   = "content_deleted"
)

// ReadyData is sent once after the upgrade.
type ReadyData struct {
	UserID      string `json:"user_id"`
	OnlineUsers int    `json:"online_users"`
}

// VoteUpdateData carries fresh aggregates after a vote.
type VoteUpdateData struct {
	TargetType string  `json:"target_type"`
	TargetID   string  `json:"target_id"`
	Upvotes    int     `json:"upvotes"`
	Downvotes  int     `json:"downvotes"`
	Score      int     `json:"score"`
	HotScore   float64 `json:"hot_score"`
}

// TrustLevelData announces a level change to its owner.
type TrustLevelData struct {
	UserID    string `json:"user_id"`
	OldLevel  int    `json:"old_level"`
	NewLevel  int    `json:"new_level"`
	LevelName string `json:"level_name"`
	Manual    bool   `json:"manual"`
}

// ContentDeletedData tells readers a thread or post is gone.
type ContentDeletedData struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
}

// BanData accompanies ban_issued, sent right before the user's sockets
// are closed. ban_lifted carries it with only BanID set.
type BanData struct {
	BanID  string  `json:"ban_id,omitempty"`
	Type   string  `json:"type,omitempty"`
	Reason string  `json:"reason,omitempty"`
	EndAt  *string `json:"end_at,omitempty"`
}

// WarningData is pushed to the warned user.
type WarningData struct {
	WarningID    string `json:"warning_id"`
	Severity     string `json:"severity"`
	Reason       string `json:"reason"`
	WarningCount int    `json:"warning_count"`
}
