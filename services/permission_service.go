package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/repository"
)

// PermissionService is the single authorization policy of the forum: user
// actions are gated by ban state and trust level, moderation by role.
//
// Nothing is cached. Every call re-reads ban and trust state so a ban
// takes effect on the very next request.
type PermissionService interface {
	CanPerform(ctx context.Context, userID string, action models.Action) (models.Decision, error)
	// Authorize turns a denial into a *pkg.DeniedError.
	Authorize(ctx context.Context, userID string, action models.Action) error

	IsAdmin(ctx context.Context, userID string) (bool, error)
	// CanModerate is true for admins and for active moderators whose scope
	// covers categoryID (nil means user-level moderation). A moderator
	// under an active ban cannot moderate.
	CanModerate(ctx context.Context, userID string, categoryID *string) (bool, error)
	AuthorizeModeration(ctx context.Context, userID string, categoryID *string) error
	AuthorizeAdmin(ctx context.Context, userID string) error

	// ActiveBan returns the ban in effect now, or nil.
	ActiveBan(ctx context.Context, userID string) (*models.Ban, error)
}

type permissionService struct {
	store repository.Store
	now   func() time.Time
}

func NewPermissionService(store repository.Store) PermissionService {
	return &permissionService{store: store, now: time.Now}
}

func (s *permissionService) ActiveBan(ctx context.Context, userID string) (*models.Ban, error) {
	ban, err := s.store.Bans().GetActive(ctx, userID)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// An active row past its end is ignored even before the sweeper runs.
	if !ban.InEffect(s.now()) {
		return nil, nil
	}
	return ban, nil
}

func (s *permissionService) trustLevel(ctx context.Context, userID string) (int, error) {
	profile, err := s.store.Trust().Get(ctx, userID)
	if errors.Is(err, pkg.ErrNotFound) {
		return models.MinTrustLevel, nil
	}
	if err != nil {
		return 0, err
	}
	return profile.TrustLevel, nil
}

func (s *permissionService) CanPerform(ctx context.Context, userID string, action models.Action) (models.Decision, error) {
	if _, err := models.ParseAction(string(action)); err != nil {
		return models.Decision{}, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}

	decision := models.Decision{Action: action}

	ban, err := s.ActiveBan(ctx, userID)
	if err != nil {
		return decision, err
	}

	level, err := s.trustLevel(ctx, userID)
	if err != nil {
		return decision, err
	}
	decision.TrustLevel = level

	if ban != nil && !action.ReadOnly() {
		decision.Reason = models.ReasonBannedPermanent
		if ban.Type == models.BanTemporary {
			decision.Reason = models.ReasonBannedTemporary
			decision.BannedUntil = ban.EndAt
		}
		return decision, nil
	}

	if !allows(Abilities(level), action) {
		decision.Reason = models.ReasonInsufficientTrust
		return decision, nil
	}

	decision.Allowed = true
	decision.Reason = models.ReasonOK
	return decision, nil
}

func (s *permissionService) Authorize(ctx context.Context, userID string, action models.Action) error {
	d, err := s.CanPerform(ctx, userID, action)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &pkg.DeniedError{Code: d.Reason, Until: d.BannedUntil}
	}
	return nil
}

func (s *permissionService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, pkg.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

func (s *permissionService) CanModerate(ctx context.Context, userID string, categoryID *string) (bool, error) {
	ban, err := s.ActiveBan(ctx, userID)
	if err != nil {
		return false, err
	}
	if ban != nil {
		return false, nil
	}

	admin, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if admin {
		return true, nil
	}

	return s.store.Moderators().IsActiveFor(ctx, userID, categoryID)
}

func (s *permissionService) AuthorizeModeration(ctx context.Context, userID string, categoryID *string) error {
	ok, err := s.CanModerate(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return pkg.Deny(models.ReasonNotModerator)
	}
	return nil
}

func (s *permissionService) AuthorizeAdmin(ctx context.Context, userID string) error {
	ok, err := s.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return pkg.Deny(models.ReasonNotAdmin)
	}
	return nil
}
