package services

import "github.com/akinalp/forumcore/models"

// The ladder is data: index i describes trust level i. Adding a tier means
// appending a row to each table and raising models.MaxTrustLevel.

var trustLevelNames = [models.MaxTrustLevel + 1]string{
	"New User",
	"Member",
	"Regular",
	"Leader",
	"Elder",
}

var trustRequirements = [models.MaxTrustLevel + 1]models.Requirements{
	{},
	{PostsCount: 5, DaysVisited: 1, TimeReadMinutes: 30},
	{PostsCount: 50, DaysVisited: 10, TimeReadMinutes: 120, LikesReceived: 10},
	{PostsCount: 200, DaysVisited: 50, TimeReadMinutes: 1200, LikesReceived: 100, FlagsAgreed: 5},
	{PostsCount: 500, TopicsCreated: 50, DaysVisited: 100, TimeReadMinutes: 3600, LikesReceived: 500, FlagsAgreed: 25},
}

// unlimitedPostsPerDay marks levels without a daily quota.
const unlimitedPostsPerDay = 999999

var trustAbilities = [models.MaxTrustLevel + 1]models.Abilities{
	{
		CanPost: true, CanReply: true, CanUpvote: true,
		MaxPostsPerDay: 3, MaxFileSizeMB: 0,
	},
	{
		CanPost: true, CanReply: true, CanUpvote: true,
		CanDownvote: true, CanUploadImages: true, CanEditOwnPosts: true,
		MaxPostsPerDay: 10, MaxFileSizeMB: 5,
	},
	{
		CanPost: true, CanReply: true, CanUpvote: true,
		CanDownvote: true, CanUploadImages: true, CanEditOwnPosts: true,
		CanUploadFiles: true, CanFlag: true, CanCreatePolls: true, CanSeeViewers: true,
		MaxPostsPerDay: unlimitedPostsPerDay, MaxFileSizeMB: 10,
	},
	{
		CanPost: true, CanReply: true, CanUpvote: true,
		CanDownvote: true, CanUploadImages: true, CanEditOwnPosts: true,
		CanUploadFiles: true, CanFlag: true, CanCreatePolls: true, CanSeeViewers: true,
		CanEditOthers: true, CanMoveThreads: true,
		MaxPostsPerDay: unlimitedPostsPerDay, MaxFileSizeMB: 20,
	},
	{
		CanPost: true, CanReply: true, CanUpvote: true,
		CanDownvote: true, CanUploadImages: true, CanEditOwnPosts: true,
		CanUploadFiles: true, CanFlag: true, CanCreatePolls: true, CanSeeViewers: true,
		CanEditOthers: true, CanMoveThreads: true, CanCreateCategory: true,
		MaxPostsPerDay: unlimitedPostsPerDay, MaxFileSizeMB: 50,
	},
}

func clampLevel(level int) int {
	return max(models.MinTrustLevel, min(level, models.MaxTrustLevel))
}

// LevelName returns the display name of a level.
func LevelName(level int) string {
	return trustLevelNames[clampLevel(level)]
}

// Requirements returns the minimum metrics of a level.
func Requirements(level int) models.Requirements {
	return trustRequirements[clampLevel(level)]
}

// Abilities returns the capability vector of a level.
func Abilities(level int) models.Abilities {
	return trustAbilities[clampLevel(level)]
}

// QualifiedLevel is the highest level whose whole requirement vector p meets.
func QualifiedLevel(p *models.UserTrustProfile) int {
	for level := models.MaxTrustLevel; level > models.MinTrustLevel; level-- {
		if trustRequirements[level].SatisfiedBy(p) {
			return level
		}
	}
	return models.MinTrustLevel
}

// allows maps a gated action onto an ability flag.
func allows(a models.Abilities, action models.Action) bool {
	switch action {
	case models.ActionView:
		return true
	case models.ActionPost:
		return a.CanPost
	case models.ActionReply:
		return a.CanReply
	case models.ActionVoteUp:
		return a.CanUpvote
	case models.ActionVoteDown:
		return a.CanDownvote
	case models.ActionUploadImage:
		return a.CanUploadImages
	case models.ActionUploadFile:
		return a.CanUploadFiles
	case models.ActionEditOwn:
		return a.CanEditOwnPosts
	case models.ActionEditOthers:
		return a.CanEditOthers
	case models.ActionFlag:
		return a.CanFlag
	case models.ActionCreatePoll:
		return a.CanCreatePolls
	case models.ActionSeeViewers:
		return a.CanSeeViewers
	case models.ActionMoveThread:
		return a.CanMoveThreads
	case models.ActionCreateCategory:
		return a.CanCreateCategory
	}
	return false
}
