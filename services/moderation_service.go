package services

import (
	"context"
	"encoding/json"
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

// ModerationService issues warnings and bans, removes content and keeps
// the audit log. Every mutation appends its audit record in the same
// transaction as the change itself.
//
// Warning escalation:
//
//	1st, 2nd warning    recorded, nothing else
//	3rd and later       7-day temporary ban, unless a ban is in effect
//
// "In effect" means active and not past end_at. A row still flagged
// active whose end_at has passed (the sweeper has not reached it yet) is
// retired with a ban_expired audit entry first, then the new ban is
// issued. A user with a permanent or running temporary ban collects
// further warnings without a second ban.
//
// Concurrent warnings for the same user are serialized on a per-user
// keylock, and the partial unique index on bans(user_id) WHERE is_active
// backs it up at the storage level: two escalations cannot both create an
// active ban.
//
// Notifications (ws push, email) are sent after commit and never fail the
// moderation call.
type ModerationService interface {
	// IssueWarning escalates to a 7-day ban when the warning count reaches
	// three and no ban is in effect.
	IssueWarning(ctx context.Context, req *models.WarningRequest, moderatorID string) (*models.WarningResult, error)
	// IssueBan supersedes any active ban of the user.
	IssueBan(ctx context.Context, req *models.BanRequest, moderatorID string) (*models.Ban, error)
	LiftBan(ctx context.Context, userID, reason, moderatorID string) (*models.Ban, error)
	PurgeUserContent(ctx context.Context, userID, reason, moderatorID string) (*models.PurgeResult, error)
	DeleteThread(ctx context.Context, threadID, reason, moderatorID string) error
	DeletePost(ctx context.Context, postID, reason, moderatorID string) error

	AssignModerator(ctx context.Context, req *models.AssignModeratorRequest, adminID string) (*models.Moderator, error)
	RemoveModerator(ctx context.Context, assignmentID, adminID string) error
	ListModerators(ctx context.Context, adminID string) ([]models.Moderator, error)

	GetModerationLog(ctx context.Context, viewerID string, moderatorID *string, limit int) ([]models.ModeratorAction, error)
	GetUserBans(ctx context.Context, viewerID, userID string) ([]models.Ban, error)
	GetUserWarnings(ctx context.Context, viewerID, userID string) ([]models.Warning, error)
	GetActiveBan(ctx context.Context, userID string) (*models.Ban, error)

	// ExpireBans deactivates temporary bans whose end has passed. It is
	// system-driven: the audit entries carry no moderator.
	ExpireBans(ctx context.Context, now time.Time) (int, error)

	// OnContentRemoved registers a callback run after a delete or purge commits.
	OnContentRemoved(fn func(ContentRemovedEvent))
}

// ContentRemovedEvent describes committed soft deletion. For a purge,
// TargetType is "user" and TargetID is the author.
type ContentRemovedEvent struct {
	TargetType string
	TargetID   string
}

const (
	defaultLogLimit = 50
	maxLogLimit     = 200

	notifyTimeout = 15 * time.Second

	supersededReason = "superseded by a new ban"
	expiredReason    = "expired"
)

type moderationService struct {
	store    repository.Store
	gate     PermissionService
	notifier Notifier
	locks    *keylock.KeyedMutex
	now      func() time.Time

	mu        sync.RWMutex
	callbacks []func(ContentRemovedEvent)
}

// NewModerationService wires the moderation engine. notifier may be nil.
func NewModerationService(store repository.Store, gate PermissionService, notifier Notifier) ModerationService {
	return &moderationService{
		store:    store,
		gate:     gate,
		notifier: notifier,
		locks:    keylock.New(),
		now:      time.Now,
	}
}

func (s *moderationService) OnContentRemoved(fn func(ContentRemovedEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

func (s *moderationService) fireRemoved(evt ContentRemovedEvent) {
	s.mu.RLock()
	callbacks := slices.Clone(s.callbacks)
	s.mu.RUnlock()

	for _, fn := range callbacks {
		go fn(evt)
	}
}

// notify runs fn after commit, detached from the request.
func (s *moderationService) notify(what string, fn func(ctx context.Context, n Notifier) error) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx, s.notifier); err != nil {
			log.Printf("[notifier] %s notification failed: %v", what, err)
		}
	}()
}

func userLock(userID string) string {
	return "moderation|" + userID
}

func ptr[T any](v T) *T {
	return &v
}

func details(v map[string]any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}

// authorizeUserModeration checks the moderator's role and that the target
// is another, existing user.
func (s *moderationService) authorizeUserModeration(ctx context.Context, moderatorID, targetID string) error {
	if err := s.gate.AuthorizeModeration(ctx, moderatorID, nil); err != nil {
		return err
	}
	if moderatorID == targetID {
		return pkg.Deny(models.ReasonSelfModeration)
	}
	_, err := s.store.Users().GetByID(ctx, targetID)
	return err
}

func (s *moderationService) IssueWarning(ctx context.Context, req *models.WarningRequest, moderatorID string) (*models.WarningResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}
	if err := s.authorizeUserModeration(ctx, moderatorID, req.UserID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userLock(req.UserID))
	defer unlock()

	now := s.now().UTC()
	result := &models.WarningResult{}
	var expired *models.Ban

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		warning := &models.Warning{
			UserID:      req.UserID,
			IssuedBy:    moderatorID,
			Severity:    req.Severity,
			Reason:      req.Reason,
			Description: req.Description,
		}
		if err := tx.Warnings().Create(ctx, warning); err != nil {
			return err
		}

		count, err := tx.Warnings().CountByUser(ctx, req.UserID)
		if err != nil {
			return err
		}

		if err := tx.Actions().Append(ctx, &models.ModeratorAction{
			ModeratorID: &moderatorID,
			ActionType:  models.ActionWarnUser,
			TargetType:  ptr("user"),
			TargetID:    &req.UserID,
			Reason:      req.Reason,
			Details: details(map[string]any{
				"warning_id":    warning.ID,
				"severity":      warning.Severity,
				"warning_count": count,
			}),
		}); err != nil {
			return err
		}

		result.Warning = warning
		result.WarningCount = count

		if count < models.AutoBanWarningThreshold {
			return nil
		}

		active, err := tx.Bans().GetActive(ctx, req.UserID)
		switch {
		case errors.Is(err, pkg.ErrNotFound):
		case err != nil:
			return err
		case active.InEffect(now):
			// Already banned: the warning is recorded, no second ban.
			return nil
		default:
			// The row outlived its end_at; retire it before escalating.
			if _, err := s.expireInTx(ctx, tx, active, now); err != nil {
				return err
			}
			expired = active
		}

		end := now.Add(models.AutoBanDuration)
		ban := &models.Ban{
			UserID:   req.UserID,
			IssuedBy: &moderatorID,
			Type:     models.BanTemporary,
			Reason:   models.AutoBanReason,
			StartAt:  now,
			EndAt:    &end,
		}
		if err := tx.Bans().Create(ctx, ban); err != nil {
			return err
		}

		if err := tx.Actions().Append(ctx, &models.ModeratorAction{
			ModeratorID: &moderatorID,
			ActionType:  models.ActionBanUser,
			TargetType:  ptr("user"),
			TargetID:    &req.UserID,
			Reason:      models.AutoBanReason,
			Details: details(map[string]any{
				"ban_id":        ban.ID,
				"type":          ban.Type,
				"end_at":        end,
				"auto":          true,
				"warning_count": count,
			}),
		}); err != nil {
			return err
		}

		result.AutoBan = ban
		return nil
	})
	if err != nil {
		return nil, err
	}

	if expired != nil {
		log.Printf("[moderation] retired expired ban %s of user %s", expired.ID, expired.UserID)
	}
	log.Printf("[moderation] %s warned user %s (%s), count=%d", moderatorID, req.UserID, req.Severity, result.WarningCount)

	warning, count := result.Warning, result.WarningCount
	s.notify("warning", func(ctx context.Context, n Notifier) error {
		return n.NotifyWarning(ctx, warning, count)
	})
	if ban := result.AutoBan; ban != nil {
		log.Printf("[moderation] user %s auto-banned until %s", ban.UserID, ban.EndAt.Format(time.RFC3339))
		s.notify("ban", func(ctx context.Context, n Notifier) error {
			return n.NotifyBan(ctx, ban)
		})
	}

	return result, nil
}

// expireInTx deactivates a lapsed ban and audits it as a system action.
func (s *moderationService) expireInTx(ctx context.Context, tx repository.Store, ban *models.Ban, now time.Time) (bool, error) {
	ok, err := tx.Bans().Deactivate(ctx, ban.ID, nil, ptr(expiredReason), now)
	if err != nil || !ok {
		return false, err
	}
	return true, tx.Actions().Append(ctx, &models.ModeratorAction{
		ActionType: models.ActionBanExpired,
		TargetType: ptr("user"),
		TargetID:   &ban.UserID,
		Reason:     expiredReason,
		Details:    details(map[string]any{"ban_id": ban.ID}),
	})
}

func (s *moderationService) IssueBan(ctx context.Context, req *models.BanRequest, moderatorID string) (*models.Ban, error) {
	now := s.now().UTC()
	if err := req.Validate(now); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}
	if err := s.authorizeUserModeration(ctx, moderatorID, req.UserID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userLock(req.UserID))
	defer unlock()

	ban := &models.Ban{
		UserID:   req.UserID,
		IssuedBy: &moderatorID,
		Type:     req.Type,
		Reason:   req.Reason,
		Notes:    req.Notes,
		StartAt:  now,
		EndAt:    req.EndAt,
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var superseded *string
		active, err := tx.Bans().GetActive(ctx, req.UserID)
		if err != nil && !errors.Is(err, pkg.ErrNotFound) {
			return err
		}
		if active != nil {
			if _, err := tx.Bans().Deactivate(ctx, active.ID, &moderatorID, ptr(supersededReason), now); err != nil {
				return err
			}
			superseded = &active.ID
		}

		if err := tx.Bans().Create(ctx, ban); err != nil {
			return err
		}

		if ban.Type == models.BanPermanent {
			if err := tx.Sessions().DeleteByUserID(ctx, req.UserID); err != nil {
				return err
			}
		}

		return tx.Actions().Append(ctx, &models.ModeratorAction{
			ModeratorID: &moderatorID,
			ActionType:  models.ActionBanUser,
			TargetType:  ptr("user"),
			TargetID:    &req.UserID,
			Reason:      req.Reason,
			Details: details(map[string]any{
				"ban_id":     ban.ID,
				"type":       ban.Type,
				"end_at":     ban.EndAt,
				"superseded": superseded,
			}),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[moderation] %s banned user %s (%s)", moderatorID, req.UserID, req.Type)
	s.notify("ban", func(ctx context.Context, n Notifier) error {
		return n.NotifyBan(ctx, ban)
	})

	return ban, nil
}

func (s *moderationService) LiftBan(ctx context.Context, userID, reason, moderatorID string) (*models.Ban, error) {
	if err := s.gate.AuthorizeModeration(ctx, moderatorID, nil); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userLock(userID))
	defer unlock()

	now := s.now().UTC()
	var lifted *models.Ban

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		active, err := tx.Bans().GetActive(ctx, userID)
		if err != nil {
			return err
		}

		ok, err := tx.Bans().Deactivate(ctx, active.ID, &moderatorID, &reason, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: ban was already lifted", pkg.ErrConflict)
		}

		active.IsActive = false
		active.LiftedAt = &now
		active.LiftedBy = &moderatorID
		active.LiftReason = &reason
		lifted = active

		return tx.Actions().Append(ctx, &models.ModeratorAction{
			ModeratorID: &moderatorID,
			ActionType:  models.ActionUnbanUser,
			TargetType:  ptr("user"),
			TargetID:    &userID,
			Reason:      reason,
			Details:     details(map[string]any{"ban_id": active.ID}),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[moderation] %s lifted ban %s of user %s", moderatorID, lifted.ID, userID)
	s.notify("ban lifted", func(ctx context.Context, n Notifier) error {
		return n.NotifyBanLifted(ctx, lifted)
	})

	return lifted, nil
}

func (s *moderationService) PurgeUserContent(ctx context.Context, userID, reason, moderatorID string) (*models.PurgeResult, error) {
	if err := s.authorizeUserModeration(ctx, moderatorID, userID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var result models.PurgeResult

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		if result, err = tx.Content().SoftDeleteByAuthor(ctx, userID, now); err != nil {
			return err
		}
		return tx.Actions().Append(ctx, &models.ModeratorAction{
			ModeratorID: &moderatorID,
			ActionType:  models.ActionPurgeUser,
			TargetType:  ptr("user"),
			TargetID:    &userID,
			Reason:      reason,
			Details: details(map[string]any{
				"threads_deleted": result.ThreadsDeleted,
				"posts_deleted":   result.PostsDeleted,
			}),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[moderation] %s purged user %s: %d threads, %d posts",
		moderatorID, userID, result.ThreadsDeleted, result.PostsDeleted)
	s.fireRemoved(ContentRemovedEvent{TargetType: "user", TargetID: userID})

	return &result, nil
}

func (s *moderationService) DeleteThread(ctx context.Context, threadID, reason, moderatorID string) error {
	thread, err := s.store.Content().GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	if thread.IsDeleted {
		return fmt.Errorf("%w: thread", pkg.ErrNotFound)
	}
	if err := s.gate.AuthorizeModeration(ctx, moderatorID, thread.CategoryID); err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Content().SoftDeleteThread(ctx, threadID, s.now().UTC()); err != nil {
			return err
		}
		return tx.Actions().Append(ctx, &models.ModeratorAction{
			ModeratorID: &moderatorID,
			ActionType:  models.ActionDeleteThread,
			TargetType:  ptr(string(models.TargetThread)),
			TargetID:    &threadID,
			Reason:      reason,
			Details:     details(map[string]any{"author_id": thread.AuthorID}),
		})
	})
	if err != nil {
		return err
	}

	s.fireRemoved(ContentRemovedEvent{TargetType: string(models.TargetThread), TargetID: threadID})
	return nil
}

func (s *moderationService) DeletePost(ctx context.Context, postID, reason, moderatorID string) error {
	post, err := s.store.Content().GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.IsDeleted {
		return fmt.Errorf("%w: post", pkg.ErrNotFound)
	}
	thread, err := s.store.Content().GetThread(ctx, post.ThreadID)
	if err != nil {
		return err
	}
	if err := s.gate.AuthorizeModeration(ctx, moderatorID, thread.CategoryID); err != nil {
		return err
	}

	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Content().SoftDeletePost(ctx, postID, s.now().UTC()); err != nil {
			return err
		}
		return tx.Actions().Append(ctx, &models.ModeratorAction{
			ModeratorID: &moderatorID,
			ActionType:  models.ActionDeletePost,
			TargetType:  ptr(string(models.TargetPost)),
			TargetID:    &postID,
			Reason:      reason,
			Details: details(map[string]any{
				"author_id": post.AuthorID,
				"thread_id": post.ThreadID,
			}),
		})
	})
	if err != nil {
		return err
	}

	s.fireRemoved(ContentRemovedEvent{TargetType: string(models.TargetPost), TargetID: postID})
	return nil
}

func (s *moderationService) AssignModerator(ctx context.Context, req *models.AssignModeratorRequest, adminID string) (*models.Moderator, error) {
	if err := s.gate.AuthorizeAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrValidation, err)
	}
	if _, err := s.store.Users().GetByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	m := &models.Moderator{
		UserID:     req.UserID,
		CategoryID: req.CategoryID,
		AssignedBy: adminID,
	}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Moderators().Create(ctx, m); err != nil {
			return err
		}
		return tx.Actions().Append(ctx, &models.ModeratorAction{
			ModeratorID: &adminID,
			ActionType:  models.ActionAssignModerator,
			TargetType:  ptr("user"),
			TargetID:    &req.UserID,
			Details: details(map[string]any{
				"assignment_id": m.ID,
				"category_id":   req.CategoryID,
			}),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[moderation] admin %s assigned moderator %s", adminID, req.UserID)
	return m, nil
}

func (s *moderationService) RemoveModerator(ctx context.Context, assignmentID, adminID string) error {
	if err := s.gate.AuthorizeAdmin(ctx, adminID); err != nil {
		return err
	}

	m, err := s.store.Moderators().GetByID(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !m.IsActive {
		return fmt.Errorf("%w: moderator assignment", pkg.ErrNotFound)
	}

	return s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Moderators().Deactivate(ctx, assignmentID); err != nil {
			return err
		}
		return tx.Actions().Append(ctx, &models.ModeratorAction{
			ModeratorID: &adminID,
			ActionType:  models.ActionRemoveModerator,
			TargetType:  ptr("user"),
			TargetID:    &m.UserID,
			Details: details(map[string]any{
				"assignment_id": m.ID,
				"category_id":   m.CategoryID,
			}),
		})
	})
}

func (s *moderationService) ListModerators(ctx context.Context, adminID string) ([]models.Moderator, error) {
	if err := s.gate.AuthorizeAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	mods, err := s.store.Moderators().ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if mods == nil {
		mods = []models.Moderator{}
	}
	return mods, nil
}

func (s *moderationService) GetModerationLog(ctx context.Context, viewerID string, moderatorID *string, limit int) ([]models.ModeratorAction, error) {
	if err := s.gate.AuthorizeModeration(ctx, viewerID, nil); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}
	limit = min(limit, maxLogLimit)

	actions, err := s.store.Actions().List(ctx, moderatorID, limit)
	if err != nil {
		return nil, err
	}
	if actions == nil {
		actions = []models.ModeratorAction{}
	}
	return actions, nil
}

func (s *moderationService) GetUserBans(ctx context.Context, viewerID, userID string) ([]models.Ban, error) {
	if err := s.gate.AuthorizeModeration(ctx, viewerID, nil); err != nil {
		return nil, err
	}
	bans, err := s.store.Bans().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bans == nil {
		bans = []models.Ban{}
	}
	return bans, nil
}

func (s *moderationService) GetUserWarnings(ctx context.Context, viewerID, userID string) ([]models.Warning, error) {
	if err := s.gate.AuthorizeModeration(ctx, viewerID, nil); err != nil {
		return nil, err
	}
	warnings, err := s.store.Warnings().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if warnings == nil {
		warnings = []models.Warning{}
	}
	return warnings, nil
}

// GetActiveBan returns the ban in effect now, or nil.
func (s *moderationService) GetActiveBan(ctx context.Context, userID string) (*models.Ban, error) {
	return s.gate.ActiveBan(ctx, userID)
}

func (s *moderationService) ExpireBans(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	expired, err := s.store.Bans().ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range expired {
		ban := &expired[i]
		ok, err := s.expireOne(ctx, ban, now)
		if err != nil {
			log.Printf("[moderation] failed to expire ban %s: %v", ban.ID, err)
			continue
		}
		if ok {
			count++
		}
	}

	if count > 0 {
		log.Printf("[moderation] expired %d bans", count)
	}
	return count, nil
}

func (s *moderationService) expireOne(ctx context.Context, ban *models.Ban, now time.Time) (bool, error) {
	unlock := s.locks.Lock(userLock(ban.UserID))
	defer unlock()

	var expired bool
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		expired, err = s.expireInTx(ctx, tx, ban, now)
		return err
	})
	if err != nil || !expired {
		return false, err
	}

	s.notify("ban expired", func(ctx context.Context, n Notifier) error {
		return n.NotifyBanLifted(ctx, ban)
	})
	return true, nil
}
