// Package sqlstore implements the repositories on database/sql for every
// supported driver. Driver specifics live in a Dialect supplied by the
// mysql, postgres and sqlite packages.
package sqlstore

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
)

// Types are the column types used by the schema.
type Types struct {
	Key   string // indexed short string
	Text  string
	Time  string
	Float string
	Int   string
}

// Dialect describes one SQL backend.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of '?'
	Numbered bool
	// OnDuplicateKey uses MySQL's ON DUPLICATE KEY UPDATE instead of ON CONFLICT
	OnDuplicateKey bool
	Types          Types
	// IsUnique reports a unique or primary key violation.
	IsUnique func(error) bool
	// IsForeignKey reports a foreign key violation.
	IsForeignKey func(error) bool
}

// Rebind rewrites '?' placeholders for dialects that number them.
func (d Dialect) Rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Upsert returns the conflict clause that overwrites cols when keys collide.
func (d Dialect) Upsert(keys []string, cols []string) string {
	sets := make([]string, 0, len(cols))
	if d.OnDuplicateKey {
		for _, c := range cols {
			sets = append(sets, c+"=VALUES("+c+")")
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	for _, c := range cols {
		sets = append(sets, c+"=excluded."+c)
	}
	return "ON CONFLICT (" + strings.Join(keys, ", ") + ") DO UPDATE SET " + strings.Join(sets, ", ")
}

// classify maps driver errors onto domain sentinels, keeping the original for context.
func (d Dialect) classify(err error, msg string, vals ...goerr.Option) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return goerr.Wrap(errs.ErrNotFound, msg, vals...)
	case d.IsUnique != nil && d.IsUnique(err):
		return goerr.Wrap(errs.ErrConflict, msg, append(vals, goerr.V("cause", err.Error()))...)
	case d.IsForeignKey != nil && d.IsForeignKey(err):
		return goerr.Wrap(errs.ErrNotFound, msg, append(vals, goerr.V("cause", err.Error()))...)
	}
	return goerr.Wrap(err, msg, vals...)
}
