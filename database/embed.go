package database

import "embed"

// EmbeddedMigrations holds migrations/*.sql.
// Use fs.Sub(EmbeddedMigrations, "migrations") to reach the files.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS
