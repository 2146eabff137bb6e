// Package repository is the storage port of the forum core. Services depend
// on the interfaces declared here; the SQLite implementations live in the
// sqlite_*.go files.
//
// Errors come back in pkg's taxonomy:
//
//	no row              pkg.ErrNotFound
//	UNIQUE violation    pkg.ErrConflict
//	anything else       pkg.ErrStorage, wrapping the driver error
//
// Handlers map ErrStorage to a generic 500, so driver text never reaches
// a client.
//
// Writes that race (vote toggle, promotion, ban deactivation) are
// expressed as conditional UPDATE/DELETE statements that report whether
// they touched a row. The caller reads the bool and decides; repositories
// never read-then-write on their own.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/akinalp/forumcore/database"
	"github.com/akinalp/forumcore/pkg"
)

// Store bundles every repository over one connection or one transaction.
//
// WithTx hands fn a Store whose repositories all run inside the same
// transaction. Calling WithTx on a transactional Store reuses the open
// transaction instead of nesting.
//
// The database pool holds a single connection, so code inside fn must only
// use the tx Store it was given. Touching the outer Store there blocks.
type Store interface {
	Users() UserRepository
	Sessions() SessionRepository
	Content() ContentRepository
	Votes() VoteRepository
	Trust() TrustRepository
	Bans() BanRepository
	Warnings() WarningRepository
	Moderators() ModeratorRepository
	Actions() ActionRepository
	Reports() ReportRepository

	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type sqliteStore struct {
	conn *sql.DB
	inTx bool

	users      UserRepository
	sessions   SessionRepository
	content    ContentRepository
	votes      VoteRepository
	trust      TrustRepository
	bans       BanRepository
	warnings   WarningRepository
	moderators ModeratorRepository
	actions    ActionRepository
	reports    ReportRepository
}

// NewSQLiteStore builds a Store on top of an open pool.
func NewSQLiteStore(conn *sql.DB) Store {
	return newSQLiteStore(conn, conn, false)
}

func newSQLiteStore(conn *sql.DB, q database.TxQuerier, inTx bool) *sqliteStore {
	return &sqliteStore{
		conn:       conn,
		inTx:       inTx,
		users:      NewSQLiteUserRepo(q),
		sessions:   NewSQLiteSessionRepo(q),
		content:    NewSQLiteContentRepo(q),
		votes:      NewSQLiteVoteRepo(q),
		trust:      NewSQLiteTrustRepo(q),
		bans:       NewSQLiteBanRepo(q),
		warnings:   NewSQLiteWarningRepo(q),
		moderators: NewSQLiteModeratorRepo(q),
		actions:    NewSQLiteActionRepo(q),
		reports:    NewSQLiteReportRepo(q),
	}
}

func (s *sqliteStore) Users() UserRepository           { return s.users }
func (s *sqliteStore) Sessions() SessionRepository     { return s.sessions }
func (s *sqliteStore) Content() ContentRepository      { return s.content }
func (s *sqliteStore) Votes() VoteRepository           { return s.votes }
func (s *sqliteStore) Trust() TrustRepository          { return s.trust }
func (s *sqliteStore) Bans() BanRepository             { return s.bans }
func (s *sqliteStore) Warnings() WarningRepository     { return s.warnings }
func (s *sqliteStore) Moderators() ModeratorRepository { return s.moderators }
func (s *sqliteStore) Actions() ActionRepository       { return s.actions }
func (s *sqliteStore) Reports() ReportRepository       { return s.reports }

func (s *sqliteStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return database.WithTx(ctx, s.conn, func(tx *sql.Tx) error {
		return fn(newSQLiteStore(s.conn, tx, true))
	})
}

// storageErr tags a driver failure as pkg.ErrStorage.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", pkg.ErrStorage, op, err)
}

// isUniqueViolation matches SQLite UNIQUE constraint failures.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// rowsChanged returns whether an UPDATE/DELETE touched at least one row.
func rowsChanged(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(op+" (rows affected)", err)
	}
	return n > 0, nil
}
