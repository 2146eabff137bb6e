package models

import "time"

// MinTrustLevel and MaxTrustLevel bound the ladder. MaxTrustLevel is terminal.
const (
	MinTrustLevel = 0
	MaxTrustLevel = 4
)

// UserTrustProfile holds the participation metrics of one user.
type UserTrustProfile struct {
	UserID          string     `json:"user_id"`
	TrustLevel      int        `json:"trust_level"`
	TrustLevelName  string     `json:"trust_level_name"`
	PostsCount      int        `json:"posts_count"`
	TopicsCreated   int        `json:"topics_created"`
	DaysVisited     int        `json:"days_visited"`
	TimeReadMinutes int        `json:"time_read_minutes"`
	LikesReceived   int        `json:"likes_received"`
	FlagsAgreed     int        `json:"flags_agreed"`
	LastVisitDay    *string    `json:"-"`
	LastPromotedAt  *time.Time `json:"last_promoted_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Baseline is the metric snapshot taken by the last manual override.
	// Zero for users who were never overridden.
	Baseline Requirements `json:"-"`
}

// SinceBaseline returns a copy whose metrics count only activity recorded
// after the last manual override.
func (p *UserTrustProfile) SinceBaseline() *UserTrustProfile {
	c := *p
	c.PostsCount = max(p.PostsCount-p.Baseline.PostsCount, 0)
	c.TopicsCreated = max(p.TopicsCreated-p.Baseline.TopicsCreated, 0)
	c.DaysVisited = max(p.DaysVisited-p.Baseline.DaysVisited, 0)
	c.TimeReadMinutes = max(p.TimeReadMinutes-p.Baseline.TimeReadMinutes, 0)
	c.LikesReceived = max(p.LikesReceived-p.Baseline.LikesReceived, 0)
	c.FlagsAgreed = max(p.FlagsAgreed-p.Baseline.FlagsAgreed, 0)
	return &c
}

// Requirements is the minimum metric vector a level demands.
type Requirements struct {
	PostsCount      int `json:"posts_count"`
	TopicsCreated   int `json:"topics_created"`
	DaysVisited     int `json:"days_visited"`
	TimeReadMinutes int `json:"time_read_minutes"`
	LikesReceived   int `json:"likes_received"`
	FlagsAgreed     int `json:"flags_agreed"`
}

// SatisfiedBy reports whether every minimum is met by p.
func (r Requirements) SatisfiedBy(p *UserTrustProfile) bool {
	return p.PostsCount >= r.PostsCount &&
		p.TopicsCreated >= r.TopicsCreated &&
		p.DaysVisited >= r.DaysVisited &&
		p.TimeReadMinutes >= r.TimeReadMinutes &&
		p.LikesReceived >= r.LikesReceived &&
		p.FlagsAgreed >= r.FlagsAgreed
}

// Abilities is the capability vector unlocked at a level.
type Abilities struct {
	CanPost           bool `json:"can_post"`
	CanReply          bool `json:"can_reply"`
	CanUpvote         bool `json:"can_upvote"`
	CanDownvote       bool `json:"can_downvote"`
	CanUploadImages   bool `json:"can_upload_images"`
	CanUploadFiles    bool `json:"can_upload_files"`
	CanEditOwnPosts   bool `json:"can_edit_own_posts"`
	CanFlag           bool `json:"can_flag"`
	CanCreatePolls    bool `json:"can_create_polls"`
	CanSeeViewers     bool `json:"can_see_viewers"`
	CanEditOthers     bool `json:"can_edit_others"`
	CanMoveThreads    bool `json:"can_move_threads"`
	CanCreateCategory bool `json:"can_create_category"`
	MaxPostsPerDay    int  `json:"max_posts_per_day"`
	MaxFileSizeMB     int  `json:"max_file_size_mb"`
}

// RequirementProgress is one row of a progress report.
type RequirementProgress struct {
	Key      string `json:"key"`
	Current  int    `json:"current"`
	Required int    `json:"required"`
	Met      bool   `json:"met"`
}

// TrustProgress describes how far a user is from the next level.
type TrustProgress struct {
	UserID       string                `json:"user_id"`
	CurrentLevel int                   `json:"current_level"`
	NextLevel    *int                  `json:"next_level"`
	Requirements []RequirementProgress `json:"requirements"`
	Percentage   int                   `json:"percentage"`
}

// SetTrustLevelRequest is the admin override payload.
type SetTrustLevelRequest struct {
	Level int `json:"level"`
}

// ReadTimeRequest reports minutes spent reading.
type ReadTimeRequest struct {
	Minutes int `json:"minutes"`
}
