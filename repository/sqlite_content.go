package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/forumcore/database"
	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
)

type sqliteContentRepo struct {
	db database.TxQuerier
}

// NewSQLiteContentRepo returns the SQLite ContentRepository.
func NewSQLiteContentRepo(db database.TxQuerier) ContentRepository {
	return &sqliteContentRepo{db: db}
}

const threadColumns = `id, author_id, category_id, title, content, is_deleted, deleted_at, created_at`

func scanThread(row interface{ Scan(...any) error }, t *models.Thread) error {
	return row.Scan(&t.ID, &t.AuthorID, &t.CategoryID, &t.Title, &t.Content,
		&t.IsDeleted, &t.DeletedAt, &t.CreatedAt)
}

func (r *sqliteContentRepo) CreateThread(ctx context.Context, thread *models.Thread) error {
	thread.ID = uuid.NewString()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO threads (id, author_id, category_id, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		thread.ID, thread.AuthorID, thread.CategoryID, thread.Title, thread.Content,
		thread.CreatedAt.UTC(),
	)
	if err != nil {
		return storageErr("create thread", err)
	}
	return nil
}

func (r *sqliteContentRepo) CreatePost(ctx context.Context, post *models.Post) error {
	post.ID = uuid.NewString()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (id, thread_id, author_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		post.ID, post.ThreadID, post.AuthorID, post.Content, post.CreatedAt.UTC(),
	)
	if err != nil {
		return storageErr("create post", err)
	}
	return nil
}

func (r *sqliteContentRepo) GetThread(ctx context.Context, id string) (*models.Thread, error) {
	t := &models.Thread{}
	err := scanThread(r.db.QueryRowContext(ctx,
		`SELECT `+threadColumns+` FROM threads WHERE id = ?`, id), t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: thread", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get thread", err)
	}
	return t, nil
}

func (r *sqliteContentRepo) GetPost(ctx context.Context, id string) (*models.Post, error) {
	p := &models.Post{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, thread_id, author_id, content, is_deleted, deleted_at, created_at
		FROM posts WHERE id = ?`, id,
	).Scan(&p.ID, &p.ThreadID, &p.AuthorID, &p.Content, &p.IsDeleted, &p.DeletedAt, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: post", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get post", err)
	}
	return p, nil
}

// ListThreadsByIDs loads live threads in one query. Missing ids are absent
// from the map.
func (r *sqliteContentRepo) ListThreadsByIDs(ctx context.Context, ids []string) (map[string]models.Thread, error) {
	result := make(map[string]models.Thread, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM threads
		WHERE is_deleted = 0 AND id IN (%s)`,
		threadColumns, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, storageErr("list threads by ids", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Thread
		if err := scanThread(rows, &t); err != nil {
			return nil, storageErr("scan thread row", err)
		}
		result[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate thread rows", err)
	}
	return result, nil
}

func (r *sqliteContentRepo) GetRef(ctx context.Context, targetType models.TargetType, id string) (*models.ContentRef, error) {
	var query string
	switch targetType {
	case models.TargetThread:
		query = `SELECT id, author_id, category_id, created_at
			FROM threads WHERE id = ? AND is_deleted = 0`
	case models.TargetPost:
		query = `SELECT p.id, p.author_id, t.category_id, p.created_at
			FROM posts p JOIN threads t ON t.id = p.thread_id
			WHERE p.id = ? AND p.is_deleted = 0 AND t.is_deleted = 0`
	default:
		return nil, fmt.Errorf("%w: unknown target type %q", pkg.ErrValidation, targetType)
	}

	ref := &models.ContentRef{TargetType: targetType}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&ref.ID, &ref.AuthorID, &ref.CategoryID, &ref.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", pkg.ErrNotFound, targetType)
	}
	if err != nil {
		return nil, storageErr("get content ref", err)
	}
	return ref, nil
}

func (r *sqliteContentRepo) CountAuthoredSince(ctx context.Context, authorID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM threads WHERE author_id = ? AND created_at >= ?) +
			(SELECT COUNT(*) FROM posts   WHERE author_id = ? AND created_at >= ?)`,
		authorID, since.UTC(), authorID, since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, storageErr("count authored content", err)
	}
	return count, nil
}

func (r *sqliteContentRepo) SoftDeleteThread(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE threads SET is_deleted = 1, deleted_at = ? WHERE id = ? AND is_deleted = 0`,
		at.UTC(), id)
	if err != nil {
		return storageErr("soft delete thread", err)
	}
	changed, err := rowsChanged(res, "soft delete thread")
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: thread", pkg.ErrNotFound)
	}
	return nil
}

func (r *sqliteContentRepo) SoftDeletePost(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET is_deleted = 1, deleted_at = ? WHERE id = ? AND is_deleted = 0`,
		at.UTC(), id)
	if err != nil {
		return storageErr("soft delete post", err)
	}
	changed, err := rowsChanged(res, "soft delete post")
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("%w: post", pkg.ErrNotFound)
	}
	return nil
}

func (r *sqliteContentRepo) SoftDeleteByAuthor(ctx context.Context, authorID string, at time.Time) (models.PurgeResult, error) {
	var result models.PurgeResult

	res, err := r.db.ExecContext(ctx,
		`UPDATE threads SET is_deleted = 1, deleted_at = ? WHERE author_id = ? AND is_deleted = 0`,
		at.UTC(), authorID)
	if err != nil {
		return result, storageErr("purge threads", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return result, storageErr("purge threads (rows affected)", err)
	}
	result.ThreadsDeleted = int(n)

	res, err = r.db.ExecContext(ctx,
		`UPDATE posts SET is_deleted = 1, deleted_at = ? WHERE author_id = ? AND is_deleted = 0`,
		at.UTC(), authorID)
	if err != nil {
		return result, storageErr("purge posts", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return result, storageErr("purge posts (rows affected)", err)
	}
	result.PostsDeleted = int(n)

	return result, nil
}
