package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
)

func TestReportService_CreateNeedsFlagAbility(t *testing.T) {
	f := newFixture(t)
	author := f.user("author", 0)
	newbie := f.user("newbie", 1)
	regular := f.user("regular", 2)
	threadID := f.thread(author, time.Time{}, nil)
	svc := NewReportService(f.store, f.gate, nil)

	req := &models.CreateReportRequest{TargetType: "thread", TargetID: threadID, Reason: models.ReportSpam}

	_, err := svc.Create(f.ctx, newbie, req)
	denied, ok := pkg.AsDenied(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonInsufficientTrust, denied.Code)

	report, err := svc.Create(f.ctx, regular, req)
	require.NoError(t, err)
	assert.Equal(t, models.ReportPending, report.Status)

	_, err = svc.Create(f.ctx, regular, req)
	assert.ErrorIs(t, err, pkg.ErrConflict)

	_, err = svc.Create(f.ctx, regular, &models.CreateReportRequest{TargetType: "post", TargetID: "missing", Reason: models.ReportSpam})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = svc.Create(f.ctx, regular, &models.CreateReportRequest{TargetType: "user", TargetID: regular, Reason: models.ReportOther})
	assert.ErrorIs(t, err, pkg.ErrValidation)

	_, err = svc.Create(f.ctx, regular, &models.CreateReportRequest{TargetType: "user", TargetID: author, Reason: "boring"})
	assert.ErrorIs(t, err, pkg.ErrValidation)
}

func TestReportService_ReviewActionedCreditsReporter(t *testing.T) {
	f := newFixture(t)
	mod := f.moderator("mod", nil)
	author := f.user("author", 0)
	reporter := f.user("reporter", 2)
	threadID := f.thread(author, time.Time{}, nil)

	trust := NewTrustService(f.store, f.gate, nil)
	svc := NewReportService(f.store, f.gate, trust)

	report, err := svc.Create(f.ctx, reporter, &models.CreateReportRequest{
		TargetType: "thread", TargetID: threadID, Reason: models.ReportHarassment,
	})
	require.NoError(t, err)

	_, err = svc.ListPending(f.ctx, reporter, 0)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	pending, err := svc.ListPending(f.ctx, mod, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.Review(f.ctx, report.ID, &models.ReviewReportRequest{Status: models.ReportPending}, mod)
	assert.ErrorIs(t, err, pkg.ErrValidation)

	reviewed, err := svc.Review(f.ctx, report.ID, &models.ReviewReportRequest{Status: models.ReportActioned, Notes: "removed"}, mod)
	require.NoError(t, err)
	assert.Equal(t, models.ReportActioned, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, mod, *reviewed.ReviewedBy)

	profile, err := f.store.Trust().Get(f.ctx, reporter)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.FlagsAgreed)

	_, err = svc.Review(f.ctx, report.ID, &models.ReviewReportRequest{Status: models.ReportDismissed}, mod)
	assert.ErrorIs(t, err, pkg.ErrConflict)

	pending, err = svc.ListPending(f.ctx, mod, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Len(t, f.actions(models.ActionReviewReport), 1)
}

func TestReportService_DismissedDoesNotCredit(t *testing.T) {
	f := newFixture(t)
	mod := f.moderator("mod", nil)
	target := f.user("target", 0)
	reporter := f.user("reporter", 2)

	trust := NewTrustService(f.store, f.gate, nil)
	svc := NewReportService(f.store, f.gate, trust)

	report, err := svc.Create(f.ctx, reporter, &models.CreateReportRequest{
		TargetType: "user", TargetID: target, Reason: models.ReportOther,
	})
	require.NoError(t, err)

	_, err = svc.Review(f.ctx, report.ID, &models.ReviewReportRequest{Status: models.ReportDismissed}, mod)
	require.NoError(t, err)

	profile, err := f.store.Trust().Get(f.ctx, reporter)
	require.NoError(t, err)
	assert.Zero(t, profile.FlagsAgreed)
}
