package db

import "embed"

// MigrationFS embeds SQL migration files from internal/db/migrations.
// Used by the migrate runner (authsvc migrate and serve with AUTO_MIGRATE).
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
