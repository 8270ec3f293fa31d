package pagination

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
)

// Page is a limit/offset window. Limit <= 0 means "no limit".
type Page struct {
	Limit  int
	Offset int
}

// Apply slices items client-side: offset first, then limit.
// A positive offset at or beyond the end is rejected.
func Apply[T any](items []T, p Page) ([]T, error) {
	if p.Offset < 0 || p.Limit < 0 {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "negative limit or offset",
			goerr.V("limit", p.Limit), goerr.V("offset", p.Offset))
	}
	if p.Offset > 0 && p.Offset >= len(items) {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "offset is greater than the number of items",
			goerr.V("offset", p.Offset), goerr.V("total", len(items)))
	}
	out := items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(out) {
		out = out[:p.Limit]
	}
	return out, nil
}
