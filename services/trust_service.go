package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/repository"
	"github.com/akinalp/forumcore/ws"
)

// TrustService tracks participation metrics and moves users up the trust
// ladder.
//
// Automatic recalculation only promotes. SetManually is the one path that
// can lower a level. It restamps last_promoted_at and snapshots the
// user's metrics: from then on automatic promotion and progress count only
// activity above that snapshot. A demoted user therefore has to earn the
// next level again, and a manually raised one starts the climb to the
// level after it from zero.
type TrustService interface {
	GetProfile(ctx context.Context, userID string) (*models.UserTrustProfile, error)
	Recalculate(ctx context.Context, userID string) (*models.UserTrustProfile, bool, error)
	SetManually(ctx context.Context, userID string, level int, adminID string) (*models.UserTrustProfile, error)
	ProgressToNext(ctx context.Context, userID string) (*models.TrustProgress, error)
	Leaderboard(ctx context.Context, limit int) ([]models.UserTrustProfile, error)

	RecordPost(ctx context.Context, userID string) error
	RecordTopic(ctx context.Context, userID string) error
	RecordReadTime(ctx context.Context, userID string, minutes int) error
	// RecordVisit counts at most one visit per UTC calendar day.
	RecordVisit(ctx context.Context, userID string) error
	RecordUpvoteReceived(ctx context.Context, userID string) error
	// RecordUpvoteRetracted undoes one RecordUpvoteReceived. It never
	// lowers the trust level already reached.
	RecordUpvoteRetracted(ctx context.Context, userID string) error
	RecordFlagAgreed(ctx context.Context, userID string) error
}

const (
	defaultLeaderboardLimit = 20
	maxLeaderboardLimit     = 100

	// maxReadMinutesPerReport caps a single read-time report.
	maxReadMinutesPerReport = 60
)

type trustService struct {
	store repository.Store
	gate  PermissionService
	hub   ws.EventPublisher
	now   func() time.Time
}

// NewTrustService wires the trust engine. hub may be nil.
func NewTrustService(store repository.Store, gate PermissionService, hub ws.EventPublisher) TrustService {
	return &trustService{store: store, gate: gate, hub: hub, now: time.Now}
}

// GetProfile returns a zero level 0 profile for a known user who has no
// recorded activity yet.
func (s *trustService) GetProfile(ctx context.Context, userID string) (*models.UserTrustProfile, error) {
	profile, err := s.store.Trust().Get(ctx, userID)
	if errors.Is(err, pkg.ErrNotFound) {
		if _, uerr := s.store.Users().GetByID(ctx, userID); uerr != nil {
			return nil, uerr
		}
		profile = &models.UserTrustProfile{UserID: userID, TrustLevel: models.MinTrustLevel}
	} else if err != nil {
		return nil, err
	}

	profile.TrustLevelName = LevelName(profile.TrustLevel)
	return profile, nil
}

func (s *trustService) Recalculate(ctx context.Context, userID string) (*models.UserTrustProfile, bool, error) {
	if err := s.store.Trust().Ensure(ctx, userID); err != nil {
		return nil, false, err
	}

	profile, err := s.store.Trust().Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	oldLevel := profile.TrustLevel
	target := QualifiedLevel(profile.SinceBaseline())
	if target <= oldLevel {
		profile.TrustLevelName = LevelName(profile.TrustLevel)
		return profile, false, nil
	}

	// Conditional write: a concurrent recalculation that already promoted
	// makes this a no-op instead of a second promotion.
	promoted, err := s.store.Trust().PromoteIfHigher(ctx, userID, target, s.now())
	if err != nil {
		return nil, false, err
	}

	profile, err = s.store.Trust().Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	profile.TrustLevelName = LevelName(profile.TrustLevel)

	if promoted {
		log.Printf("[trust] user %s promoted %d -> %d", userID, oldLevel, profile.TrustLevel)
		s.publishLevel(userID, oldLevel, profile.TrustLevel, false)
	}
	return profile, promoted, nil
}

func (s *trustService) SetManually(ctx context.Context, userID string, level int, adminID string) (*models.UserTrustProfile, error) {
	if err := s.gate.AuthorizeAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if level < models.MinTrustLevel || level > models.MaxTrustLevel {
		return nil, fmt.Errorf("%w: trust level must be between %d and %d",
			pkg.ErrValidation, models.MinTrustLevel, models.MaxTrustLevel)
	}
	if _, err := s.store.Users().GetByID(ctx, userID); err != nil {
		return nil, err
	}

	var before, after *models.UserTrustProfile
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Trust().Ensure(ctx, userID); err != nil {
			return err
		}
		var err error
		if before, err = tx.Trust().Get(ctx, userID); err != nil {
			return err
		}
		if err := tx.Trust().SetLevel(ctx, userID, level, s.now()); err != nil {
			return err
		}
		after, err = tx.Trust().Get(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[trust] admin %s set user %s level %d -> %d", adminID, userID, before.TrustLevel, level)
	s.publishLevel(userID, before.TrustLevel, level, true)

	after.TrustLevelName = LevelName(after.TrustLevel)
	return after, nil
}

func (s *trustService) ProgressToNext(ctx context.Context, userID string) (*models.TrustProgress, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	progress := &models.TrustProgress{
		UserID:       userID,
		CurrentLevel: profile.TrustLevel,
		Requirements: []models.RequirementProgress{},
	}

	if profile.TrustLevel >= models.MaxTrustLevel {
		progress.Percentage = 100
		return progress, nil
	}

	next := profile.TrustLevel + 1
	progress.NextLevel = &next
	req := Requirements(next)
	earned := profile.SinceBaseline()

	rows := []struct {
		key      string
		current  int
		required int
	}{
		{"posts", earned.PostsCount, req.PostsCount},
		{"topics", earned.TopicsCreated, req.TopicsCreated},
		{"days_visited", earned.DaysVisited, req.DaysVisited},
		{"time_read", earned.TimeReadMinutes, req.TimeReadMinutes},
		{"likes_received", earned.LikesReceived, req.LikesReceived},
		{"flags_agreed", earned.FlagsAgreed, req.FlagsAgreed},
	}

	met := 0
	for _, r := range rows {
		ok := r.current >= r.required
		if ok {
			met++
		}
		progress.Requirements = append(progress.Requirements, models.RequirementProgress{
			Key: r.key, Current: r.current, Required: r.required, Met: ok,
		})
	}
	progress.Percentage = int(math.Round(float64(met) / float64(len(rows)) * 100))

	return progress, nil
}

func (s *trustService) Leaderboard(ctx context.Context, limit int) ([]models.UserTrustProfile, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	limit = min(limit, maxLeaderboardLimit)

	profiles, err := s.store.Trust().Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		profiles[i].TrustLevelName = LevelName(profiles[i].TrustLevel)
	}
	return profiles, nil
}

func (s *trustService) RecordPost(ctx context.Context, userID string) error {
	return s.record(ctx, userID, repository.MetricPosts, 1)
}

func (s *trustService) RecordTopic(ctx context.Context, userID string) error {
	return s.record(ctx, userID, repository.MetricTopics, 1)
}

func (s *trustService) RecordReadTime(ctx context.Context, userID string, minutes int) error {
	if minutes <= 0 || minutes > maxReadMinutesPerReport {
		return fmt.Errorf("%w: minutes must be between 1 and %d", pkg.ErrValidation, maxReadMinutesPerReport)
	}
	return s.record(ctx, userID, repository.MetricReadMinutes, minutes)
}

func (s *trustService) RecordUpvoteReceived(ctx context.Context, userID string) error {
	return s.record(ctx, userID, repository.MetricLikesReceived, 1)
}

func (s *trustService) RecordUpvoteRetracted(ctx context.Context, userID string) error {
	return s.record(ctx, userID, repository.MetricLikesReceived, -1)
}

func (s *trustService) RecordFlagAgreed(ctx context.Context, userID string) error {
	return s.record(ctx, userID, repository.MetricFlagsAgreed, 1)
}

func (s *trustService) RecordVisit(ctx context.Context, userID string) error {
	if err := s.store.Trust().Ensure(ctx, userID); err != nil {
		return err
	}

	day := s.now().UTC().Format(time.DateOnly)
	counted, err := s.store.Trust().MarkVisit(ctx, userID, day)
	if err != nil {
		return err
	}
	if !counted {
		return nil
	}

	_, _, err = s.Recalculate(ctx, userID)
	return err
}

func (s *trustService) record(ctx context.Context, userID string, metric repository.TrustMetric, delta int) error {
	if err := s.store.Trust().Ensure(ctx, userID); err != nil {
		return err
	}
	if err := s.store.Trust().Increment(ctx, userID, metric, delta); err != nil {
		return err
	}
	_, _, err := s.Recalculate(ctx, userID)
	return err
}

func (s *trustService) publishLevel(userID string, oldLevel, newLevel int, manual bool) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToUser(userID, ws.Event{
		Op: ws.OpTrustLevelUpdate,
		Data: ws.TrustLevelData{
			UserID:    userID,
			OldLevel:  oldLevel,
			NewLevel:  newLevel,
			LevelName: LevelName(newLevel),
			Manual:    manual,
		},
	})
}
