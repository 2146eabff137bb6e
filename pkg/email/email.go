// Package email sends moderation notices to users.
//
// Services depend on the EmailSender interface; the Resend implementation
// is wired in main when RESEND_API_KEY is configured.
package email

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/resend/resend-go/v3"
)

// BanNotice is the content of a ban email.
type BanNotice struct {
	Username string
	Type     string
	Reason   string
	EndAt    *time.Time
}

// WarningNotice is the content of a warning email.
type WarningNotice struct {
	Username     string
	Severity     string
	Reason       string
	WarningCount int
}

// EmailSender delivers moderation notices.
type EmailSender interface {
	SendBanNotice(ctx context.Context, toEmail string, notice BanNotice) error
	SendWarningNotice(ctx context.Context, toEmail string, notice WarningNotice) error
}

type resendSender struct {
	client    *resend.Client
	fromEmail string
	appURL    string
}

// NewResendSender builds an EmailSender on the Resend API.
// fromEmail must belong to a domain verified in Resend.
func NewResendSender(apiKey, fromEmail, appURL string) EmailSender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		appURL:    appURL,
	}
}

func (s *resendSender) SendBanNotice(ctx context.Context, toEmail string, notice BanNotice) error {
	until := "permanently"
	if notice.EndAt != nil {
		until = "until " + notice.EndAt.UTC().Format("2006-01-02 15:04 UTC")
	}

	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your account has been banned %s.</p><p><strong>Reason:</strong> %s</p><p>You can review the community guidelines at <a href="%s/guidelines">%s/guidelines</a>.</p>`,
		html.EscapeString(notice.Username),
		until,
		html.EscapeString(notice.Reason),
		s.appURL, s.appURL,
	)

	return s.send(ctx, toEmail, "Your account has been banned", body)
}

func (s *resendSender) SendWarningNotice(ctx context.Context, toEmail string, notice WarningNotice) error {
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>A moderator issued a <strong>%s</strong> severity warning on your account.</p><p><strong>Reason:</strong> %s</p><p>This is warning %d. Three warnings lead to an automatic 7-day ban.</p>`,
		html.EscapeString(notice.Username),
		html.EscapeString(notice.Severity),
		html.EscapeString(notice.Reason),
		notice.WarningCount,
	)

	return s.send(ctx, toEmail, "You received a moderation warning", body)
}

func (s *resendSender) send(ctx context.Context, toEmail, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("forumcore <%s>", s.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    wrapLayout(subject, body),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send %q email: %w", subject, err)
	}
	return nil
}

func wrapLayout(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body style="margin:0;padding:24px;background-color:#f8fafc;font-family:Arial,Helvetica,sans-serif;color:#0f172a;">
  <div style="max-width:520px;margin:0 auto;background:#ffffff;border-radius:8px;padding:32px;">
    <h2 style="margin:0 0 16px 0;font-size:18px;">%s</h2>
    %s
  </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(title), body)
}
