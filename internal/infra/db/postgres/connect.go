package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/infra/db/sqlstore"
)

// Dialect for PostgreSQL
var Dialect = sqlstore.Dialect{
	Name:     "postgres",
	Numbered: true,
	Types: sqlstore.Types{
		Key:   "VARCHAR(255)",
		Text:  "TEXT",
		Time:  "TIMESTAMPTZ",
		Float: "DOUBLE PRECISION",
		Int:   "BIGINT",
	},
	IsUnique:     func(err error) bool { return code(err) == "unique_violation" },
	IsForeignKey: func(err error) bool { return code(err) == "foreign_key_violation" },
}

func code(err error) string {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code.Name()
	}
	return ""
}

// Connect opens the pool and pings it.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to ping postgres")
	}
	return db, nil
}
