package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cnav/internal/application/catalog"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/pagination"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
	"github.com/bryanwahyu/cnav/internal/infra/fallback"
)

var errDown = errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")

// downSource fails every read with err.
type downSource struct{ err error }

func (d downSource) ListQuestions(context.Context) ([]*questionnaire.Question, error) {
	return nil, d.err
}
func (d downSource) GetQuestion(context.Context, string) (*questionnaire.Question, error) {
	return nil, d.err
}
func (d downSource) ListProvisions(context.Context) ([]*questionnaire.Provision, error) {
	return nil, d.err
}
func (d downSource) GetProvision(context.Context, string) (*questionnaire.Provision, error) {
	return nil, d.err
}
func (d downSource) List(context.Context) ([]*organizations.Organization, error) {
	return nil, d.err
}
func (d downSource) Get(context.Context, string) (*organizations.Organization, error) {
	return nil, d.err
}
func (d downSource) SearchByName(context.Context, string) ([]*organizations.Organization, error) {
	return nil, d.err
}
func (d downSource) SearchByEmployeeCount(context.Context, int, int) ([]*organizations.Organization, error) {
	return nil, d.err
}

func sampleReader(t *testing.T, primary catalog.Source) (*catalog.Reader, *[]string) {
	t.Helper()
	ds, err := fallback.Sample()
	require.NoError(t, err)
	var ops []string
	return &catalog.Reader{
		Primary:    primary,
		Fallback:   ds,
		Logger:     zap.NewNop(),
		OnFallback: func(op string) { ops = append(ops, op) },
	}, &ops
}

func TestReader_FallsBackOnBackendError(t *testing.T) {
	r, ops := sampleReader(t, downSource{err: errDown})

	orgs, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 3)
	assert.Equal(t, "sample-org-1", orgs[0].ID)
	assert.Equal(t, []string{"list_organizations"}, *ops)

	page, err := pagination.Apply(orgs, pagination.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "sample-org-2", page[0].ID)
}

func TestReader_NotFoundDoesNotFallBack(t *testing.T) {
	r, ops := sampleReader(t, downSource{err: errs.ErrNotFound})

	_, err := r.GetQuestion(context.Background(), "Q1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.Empty(t, *ops)
}

func TestReader_NotFoundInFallback(t *testing.T) {
	r, _ := sampleReader(t, downSource{err: errDown})

	q, err := r.GetQuestion(context.Background(), "Q3")
	require.NoError(t, err)
	assert.Equal(t, []string{"A.3.1", "A.3.2"}, q.Provisions)

	_, err = r.GetQuestion(context.Background(), "Q404")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestReader_FallbackSearch(t *testing.T) {
	r, _ := sampleReader(t, downSource{err: errDown})

	byName, err := r.SearchByName(context.Background(), "BAKERY")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "sample-org-2", byName[0].ID)

	byCount, err := r.SearchByEmployeeCount(context.Background(), 10, 30)
	require.NoError(t, err)
	assert.Len(t, byCount, 2)
}

func TestReader_NoFallbackConfigured(t *testing.T) {
	r := &catalog.Reader{Primary: downSource{err: errDown}}
	_, err := r.ListProvisions(context.Background())
	assert.ErrorIs(t, err, errDown)
}
