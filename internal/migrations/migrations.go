// Package migrations embeds the versioned schema for every store backend.
// Files follow goose's annotated SQL format; one directory per dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dialect names a migration directory and the goose dialect that runs it.
type Dialect struct {
	Dir   string
	Goose string
}

var (
	SQLite   = Dialect{Dir: "sqlite", Goose: "sqlite3"}
	Postgres = Dialect{Dir: "postgres", Goose: "postgres"}
)

// Up applies every pending migration for the dialect.
func Up(ctx context.Context, db *sql.DB, d Dialect) error {
	goose.SetBaseFS(FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(d.Goose); err != nil {
		return fmt.Errorf("migrations: setting dialect %s: %w", d.Goose, err)
	}
	if err := goose.UpContext(ctx, db, d.Dir); err != nil {
		return fmt.Errorf("migrations: applying %s: %w", d.Dir, err)
	}
	return nil
}
