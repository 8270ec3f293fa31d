package fallback

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

// SeedResult counts rows written by Seed; rows that already exist are skipped.
type SeedResult struct {
	Provisions    int
	Questions     int
	Organizations int
}

// Seed copies the dataset into the repositories. Mappings come from each question's provision list.
func (d *Dataset) Seed(ctx context.Context, qs questionnaire.Repository, orgs organizations.Repository) (SeedResult, error) {
	var res SeedResult
	for _, p := range d.Provisions {
		cp := *p
		cp.Questions = nil
		ok, err := created(qs.CreateProvision(ctx, &cp))
		if err != nil {
			return res, goerr.Wrap(err, "failed to seed provision", goerr.V("id", p.ID))
		}
		if ok {
			res.Provisions++
		}
	}
	for _, q := range d.Questions {
		cp := *q
		ok, err := created(qs.CreateQuestion(ctx, &cp))
		if err != nil {
			return res, goerr.Wrap(err, "failed to seed question", goerr.V("id", q.ID))
		}
		if ok {
			res.Questions++
		}
	}
	for _, o := range d.Organizations {
		cp := *o
		ok, err := created(orgs.Create(ctx, &cp))
		if err != nil {
			return res, goerr.Wrap(err, "failed to seed organization", goerr.V("id", o.ID))
		}
		if ok {
			res.Organizations++
		}
	}
	return res, nil
}

func created(err error) (bool, error) {
	if errors.Is(err, errs.ErrConflict) {
		return false, nil
	}
	return err == nil, err
}
