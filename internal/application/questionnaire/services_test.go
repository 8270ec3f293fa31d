package questionnaire_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cnav/internal/application/questionnaire"
	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	domain "github.com/bryanwahyu/cnav/internal/domain/questionnaire"
	"github.com/bryanwahyu/cnav/internal/domain/sessions"
	"github.com/bryanwahyu/cnav/internal/infra/db/sqlite"
	"github.com/bryanwahyu/cnav/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/cnav/internal/infra/fallback"
	"github.com/bryanwahyu/cnav/internal/infra/kv/sqlitekv"
)

const org = "sample-org-1"

type fixedClock struct{}

func (fixedClock) Now() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) }

type fakeEvidence struct{ keys []string }

func (f *fakeEvidence) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	return "http://minio/cnav/" + key, nil
}

type stack struct {
	db       *sql.DB
	answers  *sqlstore.AnswerRepository
	sessions sessions.Store
	evidence *fakeEvidence
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlstore.Migrate(ctx, db, sqlite.Dialect))

	ds, err := fallback.Sample()
	require.NoError(t, err)
	_, err = ds.Seed(ctx, sqlstore.NewQuestionnaireRepository(db, sqlite.Dialect), sqlstore.NewOrganizationRepository(db, sqlite.Dialect))
	require.NoError(t, err)

	kv, err := sqlitekv.New(ctx, db)
	require.NoError(t, err)
	return &stack{
		db:       db,
		answers:  sqlstore.NewAnswerRepository(db, sqlite.Dialect),
		sessions: kv,
		evidence: &fakeEvidence{},
	}
}

func (s *stack) service() *questionnaire.Service {
	return &questionnaire.Service{
		Questions: sqlstore.NewQuestionnaireRepository(s.db, sqlite.Dialect),
		Orgs:      sqlstore.NewOrganizationRepository(s.db, sqlite.Dialect),
		Answers:   s.answers,
		Evidence:  s.evidence,
		Sessions:  s.sessions,
		Clock:     fixedClock{},
		Logger:    zap.NewNop(),
	}
}

var allQuestions = []string{"Q1", "Q2", "Q3", "Q4", "Q5", "Q6"}

func TestService_UnknownOrganization(t *testing.T) {
	svc := newStack(t).service()
	_, err := svc.State(context.Background(), "nobody")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestService_AnswerAllAndSubmit(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)
	svc := st.service()
	var recorded, submitted int
	svc.Hooks = questionnaire.Hooks{
		AnswerRecorded: func() { recorded++ },
		Submitted:      func() { submitted++ },
	}

	v, err := svc.State(ctx, org)
	require.NoError(t, err)
	assert.Len(t, v.Questions, 6)
	assert.Zero(t, v.CompletionPercentage)
	assert.False(t, v.CanSubmit)

	_, err = svc.Submit(ctx, org)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	for _, qid := range allQuestions {
		v, err = svc.RecordAnswer(ctx, org, qid, "answer to "+qid)
		require.NoError(t, err)
	}
	assert.Equal(t, 100.0, v.CompletionPercentage)
	assert.True(t, v.CanSubmit)

	v, err = svc.Submit(ctx, org)
	require.NoError(t, err)
	assert.True(t, v.Submitted)
	assert.Equal(t, 6, recorded)
	assert.Equal(t, 1, submitted)

	stored, err := st.answers.List(ctx, answers.Filter{OrganizationID: org})
	require.NoError(t, err)
	assert.Len(t, stored, 6)
}

func TestService_EmptyAnswerUnmarks(t *testing.T) {
	ctx := context.Background()
	svc := newStack(t).service()

	_, err := svc.RecordAnswer(ctx, org, "Q1", "Ms Tan, the owner")
	require.NoError(t, err)
	_, err = svc.RecordAnswer(ctx, org, "Q2", "yes")
	require.NoError(t, err)
	v, err := svc.RecordAnswer(ctx, org, "Q1", "   ")
	require.NoError(t, err)
	assert.Equal(t, []string{"Q2"}, v.Completed)
	assert.InDelta(t, 100.0/6, v.CompletionPercentage, 0.001)

	_, err = svc.RecordAnswer(ctx, org, "Q99", "x")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestService_RestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	first := st.service()
	_, err := first.RecordAnswer(ctx, org, "Q3", "asset register in a spreadsheet")
	require.NoError(t, err)
	_, err = first.MoveTo(ctx, org, 2)
	require.NoError(t, err)
	_, err = first.RecordAnswer(ctx, org, "Q4", "Defender on all laptops")
	require.NoError(t, err)

	second := st.service()
	v, err := second.State(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q3", "Q4"}, v.Completed)
	assert.Equal(t, "Defender on all laptops", v.Answers["Q4"].Text)
}

func TestService_ReplaysStoredAnswersWithoutSnapshot(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)

	_, err := st.service().RecordAnswer(ctx, org, "Q5", "nightly backups")
	require.NoError(t, err)
	require.NoError(t, st.sessions.Delete(ctx, sessions.QuestionnaireKey(org)))

	v, err := st.service().State(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q5"}, v.Completed)
	assert.Equal(t, "nightly backups", v.Answers["Q5"].Text)
}

func TestService_MoveToOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc := newStack(t).service()

	v, err := svc.MoveTo(ctx, org, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Cursor)
	v, err = svc.MoveTo(ctx, org, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Cursor)
}

func TestService_AttachEvidence(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)
	svc := st.service()

	_, err := svc.RecordAnswer(ctx, org, "Q1", "Ms Tan")
	require.NoError(t, err)
	f, err := svc.AttachEvidence(ctx, org, "Q1", questionnaire.EvidenceUpload{
		Filename:    `C:\docs\org-chart.pdf`,
		ContentType: "application/pdf",
		Size:        4,
		Body:        strings.NewReader("%PDF"),
	})
	require.NoError(t, err)
	assert.Equal(t, "org-chart.pdf", f.Filename)
	require.Len(t, st.evidence.keys, 1)
	assert.True(t, strings.HasPrefix(st.evidence.keys[0], "evidence/sample-org-1/Q1/"))
	assert.True(t, strings.HasSuffix(st.evidence.keys[0], "-org-chart.pdf"))

	stored, err := st.answers.List(ctx, answers.Filter{OrganizationID: org, QuestionID: "Q1"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Ms Tan", stored[0].Answer)
	require.Len(t, stored[0].EvidenceFiles, 1)
	assert.Equal(t, f.FilePath, stored[0].EvidenceFiles[0].FilePath)

	// text edits keep the files
	v, err := svc.RecordAnswer(ctx, org, "Q1", "Ms Tan, director")
	require.NoError(t, err)
	assert.Len(t, v.Answers["Q1"].Files, 1)

	_, err = svc.AttachEvidence(ctx, org, "Q99", questionnaire.EvidenceUpload{Filename: "x.pdf", Body: strings.NewReader("x")})
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.Len(t, st.evidence.keys, 1)

	_, err = svc.AttachEvidence(ctx, org, "Q1", questionnaire.EvidenceUpload{Filename: "", Body: strings.NewReader("x")})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestService_SeesCatalogChanges(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)
	svc := st.service()
	repo := sqlstore.NewQuestionnaireRepository(st.db, sqlite.Dialect)

	for _, qid := range allQuestions {
		_, err := svc.RecordAnswer(ctx, org, qid, "answer to "+qid)
		require.NoError(t, err)
	}
	v, err := svc.MoveTo(ctx, org, 4)
	require.NoError(t, err)
	require.True(t, v.CanSubmit)

	require.NoError(t, repo.CreateQuestion(ctx, &domain.Question{ID: "Q7", Question: "Is MFA enabled?", Audience: []string{domain.AudienceIT}}))

	v, err = svc.State(ctx, org)
	require.NoError(t, err)
	assert.Len(t, v.Questions, 7)
	assert.Equal(t, 4, v.Cursor)
	assert.False(t, v.CanSubmit)
	assert.InDelta(t, 600.0/7, v.CompletionPercentage, 0.001)

	_, err = svc.Submit(ctx, org)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	_, err = svc.RecordAnswer(ctx, org, "Q7", "yes, on every account")
	require.NoError(t, err)
	v, err = svc.Submit(ctx, org)
	require.NoError(t, err)
	assert.True(t, v.Submitted)
}

type failingAnswers struct {
	answers.Repository
	fail bool
}

func (f *failingAnswers) Upsert(ctx context.Context, a *answers.Answer) error {
	if f.fail {
		return errors.New("db down")
	}
	return f.Repository.Upsert(ctx, a)
}

func TestService_FailedSaveLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	st := newStack(t)
	svc := st.service()
	repo := &failingAnswers{Repository: st.answers}
	svc.Answers = repo

	_, err := svc.RecordAnswer(ctx, org, "Q2", "yes")
	require.NoError(t, err)

	repo.fail = true
	_, err = svc.RecordAnswer(ctx, org, "Q1", "Ms Tan")
	require.Error(t, err)
	_, err = svc.RecordAnswer(ctx, org, "Q2", "")
	require.Error(t, err)
	_, err = svc.AttachEvidence(ctx, org, "Q2", questionnaire.EvidenceUpload{Filename: "policy.pdf", Size: 1, Body: strings.NewReader("x")})
	require.Error(t, err)

	v, err := svc.State(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q2"}, v.Completed)
	assert.InDelta(t, 100.0/6, v.CompletionPercentage, 0.001)
	assert.Equal(t, "yes", v.Answers["Q2"].Text)
	assert.Empty(t, v.Answers["Q2"].Files)
	_, ok := v.Answers["Q1"]
	assert.False(t, ok)

	// a fresh service reads the last persisted snapshot
	v, err = st.service().State(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, []string{"Q2"}, v.Completed)
}
