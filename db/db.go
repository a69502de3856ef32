package db

import "embed"

// Migrations holds the ordered SQL files applied by internal/db.Migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS
