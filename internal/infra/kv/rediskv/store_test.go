package rediskv_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/infra/kv/rediskv"
)

func setup(t *testing.T, ttl time.Duration) (*rediskv.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := rediskv.New(context.Background(), rediskv.Options{
		URL:    fmt.Sprintf("redis://%s", mr.Addr()),
		Prefix: "cnav:",
		TTL:    ttl,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := setup(t, 0)

	_, err := s.Get(ctx, "questionnaire:org-1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	require.NoError(t, s.Put(ctx, "questionnaire:org-1", []byte(`{"submitted":false}`)))
	assert.True(t, mr.Exists("cnav:questionnaire:org-1"))

	got, err := s.Get(ctx, "questionnaire:org-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"submitted":false}`, string(got))

	require.NoError(t, s.Delete(ctx, "questionnaire:org-1"))
	_, err = s.Get(ctx, "questionnaire:org-1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestStore_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := setup(t, time.Hour)

	require.NoError(t, s.Put(ctx, "review:auditor-1", []byte("x")))
	mr.FastForward(2 * time.Hour)

	_, err := s.Get(ctx, "review:auditor-1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := setup(t, 0)
	mr.Close()

	err := s.Ping(ctx)
	assert.True(t, errors.Is(err, errs.ErrBackendUnavailable))
	err = s.Put(ctx, "k", []byte("v"))
	assert.True(t, errors.Is(err, errs.ErrBackendUnavailable))
}
