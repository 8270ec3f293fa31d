package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

// Source is everything the catalog can read.
type Source interface {
	questionnaire.QuestionReader
	questionnaire.ProvisionReader
	organizations.Reader
}

// Reader reads from Primary and switches to Fallback for a call when
// Primary fails with anything but ErrNotFound. No retries.
type Reader struct {
	Primary    Source
	Fallback   Source
	Logger     *zap.Logger
	OnFallback func(op string)
}

func fallbackOn[T any](ctx context.Context, r *Reader, op string, read func(context.Context, Source) (T, error)) (T, error) {
	v, err := read(ctx, r.Primary)
	if err == nil || errors.Is(err, errs.ErrNotFound) || r.Fallback == nil {
		return v, err
	}
	if r.Logger != nil {
		r.Logger.Warn("backend read failed, serving sample dataset", zap.String("op", op), zap.Error(err))
	}
	if r.OnFallback != nil {
		r.OnFallback(op)
	}
	return read(ctx, r.Fallback)
}

func (r *Reader) ListQuestions(ctx context.Context) ([]*questionnaire.Question, error) {
	return fallbackOn(ctx, r, "list_questions", func(ctx context.Context, src Source) ([]*questionnaire.Question, error) {
		return src.ListQuestions(ctx)
	})
}

func (r *Reader) GetQuestion(ctx context.Context, id string) (*questionnaire.Question, error) {
	return fallbackOn(ctx, r, "get_question", func(ctx context.Context, src Source) (*questionnaire.Question, error) {
		return src.GetQuestion(ctx, id)
	})
}

func (r *Reader) ListProvisions(ctx context.Context) ([]*questionnaire.Provision, error) {
	return fallbackOn(ctx, r, "list_provisions", func(ctx context.Context, src Source) ([]*questionnaire.Provision, error) {
		return src.ListProvisions(ctx)
	})
}

func (r *Reader) GetProvision(ctx context.Context, id string) (*questionnaire.Provision, error) {
	return fallbackOn(ctx, r, "get_provision", func(ctx context.Context, src Source) (*questionnaire.Provision, error) {
		return src.GetProvision(ctx, id)
	})
}

func (r *Reader) List(ctx context.Context) ([]*organizations.Organization, error) {
	return fallbackOn(ctx, r, "list_organizations", func(ctx context.Context, src Source) ([]*organizations.Organization, error) {
		return src.List(ctx)
	})
}

func (r *Reader) Get(ctx context.Context, id string) (*organizations.Organization, error) {
	return fallbackOn(ctx, r, "get_organization", func(ctx context.Context, src Source) (*organizations.Organization, error) {
		return src.Get(ctx, id)
	})
}

func (r *Reader) SearchByName(ctx context.Context, pattern string) ([]*organizations.Organization, error) {
	return fallbackOn(ctx, r, "search_organizations_by_name", func(ctx context.Context, src Source) ([]*organizations.Organization, error) {
		return src.SearchByName(ctx, pattern)
	})
}

func (r *Reader) SearchByEmployeeCount(ctx context.Context, min, max int) ([]*organizations.Organization, error) {
	return fallbackOn(ctx, r, "search_organizations_by_employee_count", func(ctx context.Context, src Source) ([]*organizations.Organization, error) {
		return src.SearchByEmployeeCount(ctx, min, max)
	})
}
