// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var embedded embed.FS

// Run applies all pending migrations to the database.
func Run(db *sql.DB) error {
	goose.SetBaseFS(embedded)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}
