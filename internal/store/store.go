package store

import (
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store wraps access to the database. All domain areas (videos, jobs, recap,
// audio recordings, storyboards) share one *sql.DB pool; their methods live
// in sibling files of this package.
type Store struct {
	DB *sql.DB
}

// New creates a new Store that uses a shared *sql.DB with pooling.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}
