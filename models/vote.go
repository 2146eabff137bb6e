package models

import (
	"fmt"
	"time"
)

// TargetType is the kind of content a vote or ranking refers to.
type TargetType string

const (
	TargetThread TargetType = "thread"
	TargetPost   TargetType = "post"
)

// ParseTargetType accepts "thread" or "post".
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case TargetThread, TargetPost:
		return TargetType(s), nil
	}
	return "", fmt.Errorf("unknown target type %q", s)
}

// Direction is the sign of a vote.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionUp, DirectionDown:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown vote direction %q", s)
}

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionUp {
		return DirectionDown
	}
	return DirectionUp
}

// Vote is the single live vote of one voter on one target.
type Vote struct {
	ID         string     `json:"id"`
	VoterID    string     `json:"voter_id"`
	TargetType TargetType `json:"target_type"`
	TargetID   string     `json:"target_id"`
	AuthorID   string     `json:"author_id"`
	Direction  Direction  `json:"direction"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// VoteOutcomeKind tags the transition a cast produced.
type VoteOutcomeKind string

const (
	VoteCreated VoteOutcomeKind = "created"
	VoteUpdated VoteOutcomeKind = "updated"
	VoteRemoved VoteOutcomeKind = "removed"
)

// VoteOutcome is the result of a cast. Direction is empty for Removed.
type VoteOutcome struct {
	Kind      VoteOutcomeKind `json:"kind"`
	Direction Direction       `json:"direction,omitempty"`
}

// NetNewUpvote reports whether the transition registered an upvote that
// did not exist before.
func (o VoteOutcome) NetNewUpvote() bool {
	return (o.Kind == VoteCreated || o.Kind == VoteUpdated) && o.Direction == DirectionUp
}

// NetNewDownvote is the downvote counterpart of NetNewUpvote.
func (o VoteOutcome) NetNewDownvote() bool {
	return (o.Kind == VoteCreated || o.Kind == VoteUpdated) && o.Direction == DirectionDown
}

// UpvoteRetracted reports whether the transition took away an existing
// upvote. cast is the direction that was submitted: a removal deletes a
// vote in that direction, a switch to down replaces an up.
func (o VoteOutcome) UpvoteRetracted(cast Direction) bool {
	switch o.Kind {
	case VoteRemoved:
		return cast == DirectionUp
	case VoteUpdated:
		return o.Direction == DirectionDown
	}
	return false
}

// CastVoteRequest is the POST /api/votes payload.
type CastVoteRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Direction  string `json:"direction"`
}

// VoteCounts is the aggregate for one target.
type VoteCounts struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Score     int `json:"score"`
}

// VoteAggregate is the ranking input for one target.
type VoteAggregate struct {
	TargetID        string    `json:"target_id"`
	Upvotes         int       `json:"upvotes"`
	Downvotes       int       `json:"downvotes"`
	TargetCreatedAt time.Time `json:"target_created_at"`
}

// VotingStats summarizes what a user gave and received.
type VotingStats struct {
	VotesGiven        int `json:"votes_given"`
	UpvotesGiven      int `json:"upvotes_given"`
	DownvotesGiven    int `json:"downvotes_given"`
	UpvotesReceived   int `json:"upvotes_received"`
	DownvotesReceived int `json:"downvotes_received"`
	Karma             int `json:"karma"`
}
