// Package db carries the goose migration files, embedded so the binary can
// migrate on startup regardless of its working directory.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
