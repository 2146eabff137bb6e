// Repository wiring.
package main

import (
	"database/sql"

	"github.com/akinalp/forumcore/repository"
)

// Repositories holds the storage entry points. Services take the Store so
// they can open transactions; a few pieces only need one repository.
type Repositories struct {
	Store    repository.Store
	Users    repository.UserRepository
	Sessions repository.SessionRepository
}

// initRepositories builds every repository on the shared connection.
func initRepositories(conn *sql.DB) *Repositories {
	store := repository.NewSQLiteStore(conn)
	return &Repositories{
		Store:    store,
		Users:    store.Users(),
		Sessions: store.Sessions(),
	}
}
