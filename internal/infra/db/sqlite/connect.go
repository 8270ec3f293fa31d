// Package sqlite is the embedded database used for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bryanwahyu/cnav/internal/infra/db/sqlstore"
)

// Dialect for SQLite
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
	Types: sqlstore.Types{
		Key:   "TEXT",
		Text:  "TEXT",
		Time:  "TIMESTAMP",
		Float: "REAL",
		Int:   "INTEGER",
	},
	IsUnique: func(err error) bool {
		c := code(err)
		return c == sqlite3.SQLITE_CONSTRAINT_UNIQUE || c == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	},
	IsForeignKey: func(err error) bool { return code(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY },
}

func code(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

// Open opens path (":memory:" for a private in-memory database) with foreign keys on.
// A single connection is used so pragmas and in-memory data are shared by every query.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("path", path))
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, goerr.Wrap(err, "failed to set sqlite pragma", goerr.V("pragma", pragma))
		}
	}
	return db, nil
}
