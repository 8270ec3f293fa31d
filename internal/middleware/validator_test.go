package middleware_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/pagination"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
	"github.com/bryanwahyu/cnav/internal/middleware"
)

func TestValidateID(t *testing.T) {
	for _, id := range []string{"Q1", "A.1.4", "3f1c2d4e-aaaa-bbbb-cccc-1234567890ab", "sample-org-1"} {
		assert.NoError(t, middleware.ValidateID(id), id)
	}
	for _, id := range []string{"", "../etc", "Q 1", ".hidden", "a;drop"} {
		err := middleware.ValidateID(id)
		require.Error(t, err, id)
		assert.True(t, errors.Is(err, errs.ErrInvalidInput), id)
	}
}

func TestValidateQuestion(t *testing.T) {
	q := &questionnaire.Question{ID: "Q1", Question: "Do you patch?", Audience: []string{"IT", "Owner"}, GroupTag: "PATCH/VULN"}
	assert.NoError(t, middleware.ValidateQuestion(q))

	bad := *q
	bad.Audience = []string{"CEO"}
	assert.ErrorIs(t, middleware.ValidateQuestion(&bad), errs.ErrInvalidInput)

	bad = *q
	bad.GroupTag = "SOMETHING"
	assert.ErrorIs(t, middleware.ValidateQuestion(&bad), errs.ErrInvalidInput)

	bad = *q
	bad.Question = "  "
	assert.ErrorIs(t, middleware.ValidateQuestion(&bad), errs.ErrInvalidInput)
}

func TestValidateOrganization(t *testing.T) {
	o := &organizations.Organization{Name: "  Acme\x00 Pte Ltd ", ContactEmail: "ops@acme.sg"}
	require.NoError(t, middleware.ValidateOrganization(o))
	assert.Equal(t, "Acme Pte Ltd", o.Name)

	assert.ErrorIs(t, middleware.ValidateOrganization(&organizations.Organization{Name: "x", ContactEmail: "not-mail"}), errs.ErrInvalidInput)
	assert.ErrorIs(t, middleware.ValidateOrganization(&organizations.Organization{}), errs.ErrInvalidInput)

	neg := -1
	assert.ErrorIs(t, middleware.ValidateOrganization(&organizations.Organization{Name: "x", NumberOfEmployees: &neg}), errs.ErrInvalidInput)
}

func TestParsePage(t *testing.T) {
	p, err := middleware.ParsePage(url.Values{"limit": {"5"}, "offset": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, pagination.Page{Limit: 5, Offset: 10}, p)

	p, err = middleware.ParsePage(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, pagination.Page{}, p)

	_, err = middleware.ParsePage(url.Values{"limit": {"-1"}})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = middleware.ParsePage(url.Values{"offset": {"abc"}})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestValidateLimit(t *testing.T) {
	assert.Equal(t, 20, middleware.ValidateLimit(0))
	assert.Equal(t, 100, middleware.ValidateLimit(1000))
	assert.Equal(t, 7, middleware.ValidateLimit(7))
}
