package services

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/forumcore/database"
	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/repository"
)

// fixture is a fresh sqlite database with the real migrations applied.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	store repository.Store
	gate  PermissionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)

	db, err := database.New(filepath.Join(t.TempDir(), "forum.db"), migrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := repository.NewSQLiteStore(db.Conn)
	return &fixture{
		t:     t,
		ctx:   context.Background(),
		store: store,
		gate:  NewPermissionService(store),
	}
}

func (f *fixture) createUser(name string, admin bool) string {
	f.t.Helper()
	u := &models.User{Username: name, PasswordHash: "x", IsAdmin: admin}
	require.NoError(f.t, f.store.Users().Create(f.ctx, u))
	return u.ID
}

// user creates a member at the given trust level.
func (f *fixture) user(name string, level int) string {
	f.t.Helper()
	id := f.createUser(name, false)
	require.NoError(f.t, f.store.Trust().Ensure(f.ctx, id))
	if level > 0 {
		require.NoError(f.t, f.store.Trust().SetLevel(f.ctx, id, level, time.Now()))
	}
	return id
}

func (f *fixture) admin(name string) string {
	f.t.Helper()
	return f.createUser(name, true)
}

func (f *fixture) moderator(name string, categoryID *string) string {
	f.t.Helper()
	id := f.user(name, 2)
	require.NoError(f.t, f.store.Moderators().Create(f.ctx, &models.Moderator{
		UserID:     id,
		CategoryID: categoryID,
		AssignedBy: id,
	}))
	return id
}

func (f *fixture) thread(authorID string, createdAt time.Time, categoryID *string) string {
	f.t.Helper()
	th := &models.Thread{
		AuthorID:   authorID,
		CategoryID: categoryID,
		Title:      "thread",
		Content:    "body",
		CreatedAt:  createdAt,
	}
	require.NoError(f.t, f.store.Content().CreateThread(f.ctx, th))
	return th.ID
}

func (f *fixture) post(authorID, threadID string) string {
	f.t.Helper()
	p := &models.Post{ThreadID: threadID, AuthorID: authorID, Content: "reply"}
	require.NoError(f.t, f.store.Content().CreatePost(f.ctx, p))
	return p.ID
}

func (f *fixture) level(userID string) int {
	f.t.Helper()
	p, err := f.store.Trust().Get(f.ctx, userID)
	require.NoError(f.t, err)
	return p.TrustLevel
}

func (f *fixture) actions(actionType models.ActionType) []models.ModeratorAction {
	f.t.Helper()
	all, err := f.store.Actions().List(f.ctx, nil, 1000)
	require.NoError(f.t, err)

	var out []models.ModeratorAction
	for _, a := range all {
		if a.ActionType == actionType {
			out = append(out, a)
		}
	}
	return out
}

// recordingNotifier captures notifications and can be told to fail.
type recordingNotifier struct {
	mu       sync.Mutex
	bans     []*models.Ban
	lifted   []*models.Ban
	warnings []*models.Warning
	fail     bool
	done     chan struct{}
}

func newRecordingNotifier(fail bool) *recordingNotifier {
	return &recordingNotifier{fail: fail, done: make(chan struct{}, 64)}
}

var errNotifyDown = errors.New("notification backend down")

func (n *recordingNotifier) finish() error {
	n.done <- struct{}{}
	if n.fail {
		return errNotifyDown
	}
	return nil
}

func (n *recordingNotifier) NotifyBan(_ context.Context, ban *models.Ban) error {
	n.mu.Lock()
	n.bans = append(n.bans, ban)
	n.mu.Unlock()
	return n.finish()
}

func (n *recordingNotifier) NotifyBanLifted(_ context.Context, ban *models.Ban) error {
	n.mu.Lock()
	n.lifted = append(n.lifted, ban)
	n.mu.Unlock()
	return n.finish()
}

func (n *recordingNotifier) NotifyWarning(_ context.Context, w *models.Warning, _ int) error {
	n.mu.Lock()
	n.warnings = append(n.warnings, w)
	n.mu.Unlock()
	return n.finish()
}

// wait blocks until count notifications were delivered.
func (n *recordingNotifier) wait(t *testing.T, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		select {
		case <-n.done:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for notification %d of %d", i+1, count)
		}
	}
}
