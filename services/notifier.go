package services

import (
	"context"
	"time"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg/email"
	"github.com/akinalp/forumcore/repository"
	"github.com/akinalp/forumcore/ws"
)

// Notifier tells a user about moderation outcomes. Callers treat every
// error as non-fatal.
type Notifier interface {
	NotifyBan(ctx context.Context, ban *models.Ban) error
	NotifyBanLifted(ctx context.Context, ban *models.Ban) error
	NotifyWarning(ctx context.Context, warning *models.Warning, warningCount int) error
}

type notifier struct {
	hub    ws.EventPublisher
	mailer email.EmailSender
	users  repository.UserRepository
}

// NewNotifier pushes over the hub and, when mailer is non-nil, emails
// users that have an address on file. hub may be nil.
func NewNotifier(hub ws.EventPublisher, mailer email.EmailSender, users repository.UserRepository) Notifier {
	return &notifier{hub: hub, mailer: mailer, users: users}
}

func (n *notifier) NotifyBan(ctx context.Context, ban *models.Ban) error {
	if n.hub != nil {
		data := ws.BanData{BanID: ban.ID, Type: string(ban.Type), Reason: ban.Reason}
		if ban.EndAt != nil {
			end := ban.EndAt.UTC().Format(time.RFC3339)
			data.EndAt = &end
		}
		n.hub.BroadcastToUser(ban.UserID, ws.Event{Op: ws.OpBanIssued, Data: data})
		n.hub.DisconnectUser(ban.UserID)
	}

	if n.mailer == nil {
		return nil
	}
	user, err := n.users.GetByID(ctx, ban.UserID)
	if err != nil {
		return err
	}
	if user.Email == nil {
		return nil
	}
	return n.mailer.SendBanNotice(ctx, *user.Email, email.BanNotice{
		Username: user.Username,
		Type:     string(ban.Type),
		Reason:   ban.Reason,
		EndAt:    ban.EndAt,
	})
}

func (n *notifier) NotifyBanLifted(_ context.Context, ban *models.Ban) error {
	if n.hub == nil {
		return nil
	}
	n.hub.BroadcastToUser(ban.UserID, ws.Event{Op: ws.OpBanLifted, Data: ws.BanData{BanID: ban.ID}})
	return nil
}

func (n *notifier) NotifyWarning(ctx context.Context, warning *models.Warning, warningCount int) error {
	if n.hub != nil {
		n.hub.BroadcastToUser(warning.UserID, ws.Event{
			Op: ws.OpWarningIssued,
			Data: ws.WarningData{
				WarningID:    warning.ID,
				Severity:     string(warning.Severity),
				Reason:       warning.Reason,
				WarningCount: warningCount,
			},
		})
	}

	if n.mailer == nil {
		return nil
	}
	user, err := n.users.GetByID(ctx, warning.UserID)
	if err != nil {
		return err
	}
	if user.Email == nil {
		return nil
	}
	return n.mailer.SendWarningNotice(ctx, *user.Email, email.WarningNotice{
		Username:     user.Username,
		Severity:     string(warning.Severity),
		Reason:       warning.Reason,
		WarningCount: warningCount,
	})
}
