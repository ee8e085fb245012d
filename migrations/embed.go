package migrations

import "embed"

// EmbedMigrations holds the goose SQL migrations for the rbac schema.
//
//go:embed *.sql
var EmbedMigrations embed.FS
