package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/infra/db/sqlstore"
)

// MySQL error numbers
const (
	errDupEntry      = 1062
	errNoReferenced  = 1452
	errRowIsReferred = 1451
)

// Dialect for MySQL 8 / MariaDB
var Dialect = sqlstore.Dialect{
	Name:           "mysql",
	OnDuplicateKey: true,
	Types: sqlstore.Types{
		Key:   "VARCHAR(191)",
		Text:  "TEXT",
		Time:  "DATETIME(6)",
		Float: "DOUBLE",
		Int:   "BIGINT",
	},
	IsUnique:     func(err error) bool { return number(err) == errDupEntry },
	IsForeignKey: func(err error) bool { n := number(err); return n == errNoReferenced || n == errRowIsReferred },
}

func number(err error) uint16 {
	var me *driver.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// Connect opens the pool and pings it. The DSN must carry parseTime=true.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open mysql")
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, goerr.Wrap(err, "failed to ping mysql")
	}
	return db, nil
}
