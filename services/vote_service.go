package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/pkg/keylock"
	"github.com/akinalp/forumcore/repository"
)

// VoteService is the vote ledger: one live vote per (voter, target) with
// toggle and switch semantics.
//
// A cast is a small state machine over the stored row:
//
//	stored  cast   result
//	none    up     Created(up)
//	up      up     Removed
//	up      down   Updated(down)
//	down    down   Removed
//	down    up     Updated(up)
//
// CastVote does not read the row and branch on it. It tries the three
// conditional writes in order (insert if absent, switch if different,
// delete if same) and takes the first one that reports a changed row. If
// none does, the row moved between statements and the cast fails with
// ErrConflict instead of guessing.
//
// Karma follows the same table. Created(up) and Updated(up) credit the
// author, Removed after an up cast and Updated(down) take the credit back.
// Self-votes are counted but never touch karma.
type VoteService interface {
	// CastVote applies a vote and reports which transition it produced:
	// none → Created, same direction → Removed, opposite → Updated.
	CastVote(ctx context.Context, voterID string, targetType models.TargetType, targetID string, dir models.Direction) (models.VoteOutcome, error)
	// GetVoteCounts never fails; lookup errors are logged and yield zeros.
	GetVoteCounts(ctx context.Context, targetType models.TargetType, targetID string) models.VoteCounts
	// GetUserVote returns nil when the voter has no vote on the target.
	GetUserVote(ctx context.Context, voterID string, targetType models.TargetType, targetID string) (*models.Direction, error)
	GetUserVotingStats(ctx context.Context, userID string) (*models.VotingStats, error)

	// OnVoteCast registers a callback run after every committed cast.
	OnVoteCast(fn func(VoteCastEvent))
}

// VoteCastEvent describes a committed cast.
type VoteCastEvent struct {
	VoterID    string
	AuthorID   string
	TargetType models.TargetType
	TargetID   string
	Outcome    models.VoteOutcome
}

// KarmaRecorder receives the author side of upvote transitions. Every
// retraction follows the matching receipt for the same (voter, target), so
// a toggling voter nets to zero instead of farming likes_received.
type KarmaRecorder interface {
	RecordUpvoteReceived(ctx context.Context, userID string) error
	RecordUpvoteRetracted(ctx context.Context, userID string) error
}

const karmaTimeout = 10 * time.Second

type voteService struct {
	store repository.Store
	gate  PermissionService
	karma KarmaRecorder
	locks *keylock.KeyedMutex

	mu        sync.RWMutex
	callbacks []func(VoteCastEvent)
}

// NewVoteService wires the ledger. karma may be nil.
func NewVoteService(store repository.Store, gate PermissionService, karma KarmaRecorder) VoteService {
	return &voteService{
		store: store,
		gate:  gate,
		karma: karma,
		locks: keylock.New(),
	}
}

func (s *voteService) OnVoteCast(fn func(VoteCastEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

func (s *voteService) CastVote(ctx context.Context, voterID string, targetType models.TargetType, targetID string, dir models.Direction) (models.VoteOutcome, error) {
	if _, err := models.ParseTargetType(string(targetType)); err != nil {
		return models.VoteOutcome{}, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}
	if _, err := models.ParseDirection(string(dir)); err != nil {
		return models.VoteOutcome{}, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}
	if targetID == "" {
		return models.VoteOutcome{}, fmt.Errorf("%w: target_id is required", pkg.ErrValidation)
	}

	action := models.ActionVoteUp
	if dir == models.DirectionDown {
		action = models.ActionVoteDown
	}
	if err := s.gate.Authorize(ctx, voterID, action); err != nil {
		return models.VoteOutcome{}, err
	}

	ref, err := s.store.Content().GetRef(ctx, targetType, targetID)
	if err != nil {
		return models.VoteOutcome{}, err
	}

	unlock := s.locks.Lock(voterID + "|" + string(targetType) + "|" + targetID)
	defer unlock()

	var outcome models.VoteOutcome
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		votes := tx.Votes()

		created, err := votes.InsertIfAbsent(ctx, &models.Vote{
			VoterID:    voterID,
			TargetType: targetType,
			TargetID:   targetID,
			AuthorID:   ref.AuthorID,
			Direction:  dir,
		})
		if err != nil {
			return err
		}
		if created {
			outcome = models.VoteOutcome{Kind: models.VoteCreated, Direction: dir}
			return nil
		}

		switched, err := votes.SwitchDirection(ctx, voterID, targetType, targetID, dir, time.Now())
		if err != nil {
			return err
		}
		if switched {
			outcome = models.VoteOutcome{Kind: models.VoteUpdated, Direction: dir}
			return nil
		}

		removed, err := votes.DeleteIfDirection(ctx, voterID, targetType, targetID, dir)
		if err != nil {
			return err
		}
		if removed {
			outcome = models.VoteOutcome{Kind: models.VoteRemoved}
			return nil
		}

		// Every branch of the swap missed: the row changed under us.
		return fmt.Errorf("%w: vote changed concurrently", pkg.ErrConflict)
	})
	if err != nil {
		return models.VoteOutcome{}, err
	}

	// Still under the per-target lock: a voter's receipts and retractions
	// reach the author's counter in cast order.
	if ref.AuthorID != voterID {
		s.applyKarma(ref.AuthorID, outcome, dir)
	}

	s.fire(VoteCastEvent{
		VoterID:    voterID,
		AuthorID:   ref.AuthorID,
		TargetType: targetType,
		TargetID:   targetID,
		Outcome:    outcome,
	})

	return outcome, nil
}

// applyKarma is best effort on a detached context: failures are logged and
// never undo the cast.
func (s *voteService) applyKarma(authorID string, outcome models.VoteOutcome, dir models.Direction) {
	if s.karma == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), karmaTimeout)
	defer cancel()

	switch {
	case outcome.NetNewUpvote():
		if err := s.karma.RecordUpvoteReceived(ctx, authorID); err != nil {
			log.Printf("[vote] karma accrual failed for author %s: %v", authorID, err)
		}
	case outcome.UpvoteRetracted(dir):
		if err := s.karma.RecordUpvoteRetracted(ctx, authorID); err != nil {
			log.Printf("[vote] karma retraction failed for author %s: %v", authorID, err)
		}
	}
}

func (s *voteService) fire(evt VoteCastEvent) {
	s.mu.RLock()
	callbacks := slices.Clone(s.callbacks)
	s.mu.RUnlock()

	for _, fn := range callbacks {
		go fn(evt)
	}
}

func (s *voteService) GetVoteCounts(ctx context.Context, targetType models.TargetType, targetID string) models.VoteCounts {
	counts, err := s.store.Votes().Counts(ctx, targetType, targetID)
	if err != nil {
		log.Printf("[vote] failed to count votes for %s %s: %v", targetType, targetID, err)
		return models.VoteCounts{}
	}
	return counts
}

func (s *voteService) GetUserVote(ctx context.Context, voterID string, targetType models.TargetType, targetID string) (*models.Direction, error) {
	vote, err := s.store.Votes().Get(ctx, voterID, targetType, targetID)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote.Direction, nil
}

func (s *voteService) GetUserVotingStats(ctx context.Context, userID string) (*models.VotingStats, error) {
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}
	stats, err := s.store.Votes().StatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
