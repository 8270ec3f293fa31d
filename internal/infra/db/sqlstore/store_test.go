package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/prompts"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
	"github.com/bryanwahyu/cnav/internal/infra/db/sqlite"
	"github.com/bryanwahyu/cnav/internal/infra/db/sqlstore"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlstore.Migrate(ctx, db, sqlite.Dialect))
	return db
}

func seed(t *testing.T, db *sql.DB) (*sqlstore.QuestionnaireRepository, *sqlstore.OrganizationRepository) {
	t.Helper()
	ctx := context.Background()
	qr := sqlstore.NewQuestionnaireRepository(db, sqlite.Dialect)
	or := sqlstore.NewOrganizationRepository(db, sqlite.Dialect)

	for _, p := range []*questionnaire.Provision{
		{ID: "A.1.1", Section: "A", Subsection: "A.1", Clause: "A.1 Governance", Provision: "Appoint a responsible person", Keywords: []string{"governance"}},
		{ID: "A.9.1", Section: "A", Subsection: "A.9", Clause: "A.9 Backup", Provision: "Back up essential data"},
	} {
		require.NoError(t, qr.CreateProvision(ctx, p))
	}
	for _, q := range []*questionnaire.Question{
		{ID: "Q1", Question: "Who is responsible for cybersecurity?", Audience: []string{"Owner"}, GroupTag: "CONTEXT", Provisions: []string{"A.1.1"}},
		{ID: "Q2", Question: "Are backups tested?", Audience: []string{"IT", "Owner"}, GroupTag: "BACKUP", Provisions: []string{"A.1.1", "A.9.1"}},
	} {
		require.NoError(t, qr.CreateQuestion(ctx, q))
	}
	n := 12
	require.NoError(t, or.Create(ctx, &organizations.Organization{ID: "org-1", Name: "Acme Pte Ltd", NumberOfEmployees: &n}))
	require.NoError(t, or.Create(ctx, &organizations.Organization{ID: "org-2", Name: "Blue Harbour"}))
	return qr, or
}

func TestStatements_PerDialect(t *testing.T) {
	stmts := sqlstore.Statements(sqlite.Dialect)
	require.Len(t, stmts, 8)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS questions")
	assert.NotContains(t, stmts[0], "{key}")
}

func TestQuestionnaireRepository_Mappings(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	qr, _ := seed(t, db)

	q, err := qr.GetQuestion(ctx, "Q2")
	require.NoError(t, err)
	assert.Equal(t, []string{"A.1.1", "A.9.1"}, q.Provisions)
	assert.Equal(t, []string{"IT", "Owner"}, q.Audience)

	p, err := qr.GetProvision(ctx, "A.1.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1", "Q2"}, p.Questions)
	assert.Equal(t, []string{"governance"}, p.Keywords)

	require.NoError(t, qr.DeleteMapping(ctx, "Q2", "A.1.1"))
	p, err = qr.GetProvision(ctx, "A.1.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Q1"}, p.Questions)

	err = qr.DeleteMapping(ctx, "Q2", "A.1.1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	require.NoError(t, qr.CreateMapping(ctx, "Q2", "A.1.1"))
	err = qr.CreateMapping(ctx, "Q2", "A.1.1")
	assert.True(t, errors.Is(err, errs.ErrConflict))

	err = qr.CreateMapping(ctx, "Q2", "Z.9.9")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestQuestionnaireRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	qr, _ := seed(t, db)

	qs, err := qr.ListQuestions(ctx)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "Q1", qs[0].ID)
	assert.Equal(t, []string{"A.1.1"}, qs[0].Provisions)

	err = qr.CreateQuestion(ctx, &questionnaire.Question{ID: "Q1", Question: "dup"})
	assert.True(t, errors.Is(err, errs.ErrConflict))

	q := qs[0]
	q.Question = "Who owns cybersecurity?"
	require.NoError(t, qr.SaveQuestion(ctx, q))
	got, err := qr.GetQuestion(ctx, "Q1")
	require.NoError(t, err)
	assert.Equal(t, "Who owns cybersecurity?", got.Question)

	err = qr.SaveQuestion(ctx, &questionnaire.Question{ID: "Q404"})
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	require.NoError(t, qr.DeleteQuestion(ctx, "Q1"))
	_, err = qr.GetQuestion(ctx, "Q1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	// mapping rows go with the question
	p, err := qr.GetProvision(ctx, "A.1.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Q2"}, p.Questions)

	ps, err := qr.ListProvisions(ctx)
	require.NoError(t, err)
	assert.Len(t, ps, 2)
}

func TestOrganizationRepository(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	_, or := seed(t, db)

	o, err := or.Get(ctx, "org-1")
	require.NoError(t, err)
	require.NotNil(t, o.NumberOfEmployees)
	assert.Equal(t, 12, *o.NumberOfEmployees)
	assert.Nil(t, o.AnnualTurnover)

	byName, err := or.SearchByName(ctx, "harb")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "org-2", byName[0].ID)

	byCount, err := or.SearchByEmployeeCount(ctx, 10, 20)
	require.NoError(t, err)
	require.Len(t, byCount, 1)
	assert.Equal(t, "org-1", byCount[0].ID)

	turnover := 1.5e6
	assessed := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	o.AnnualTurnover = &turnover
	o.DateOfSelfAssessment = &assessed
	require.NoError(t, or.Save(ctx, o))
	o, err = or.Get(ctx, "org-1")
	require.NoError(t, err)
	require.NotNil(t, o.AnnualTurnover)
	assert.Equal(t, turnover, *o.AnnualTurnover)
	require.NotNil(t, o.DateOfSelfAssessment)
	assert.True(t, assessed.Equal(*o.DateOfSelfAssessment))

	err = or.Create(ctx, &organizations.Organization{ID: "org-1", Name: "again"})
	assert.True(t, errors.Is(err, errs.ErrConflict))

	require.NoError(t, or.Delete(ctx, "org-2"))
	err = or.Delete(ctx, "org-2")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestAnswerRepository_UpsertKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	seed(t, db)
	ar := sqlstore.NewAnswerRepository(db, sqlite.Dialect)

	first := &answers.Answer{OrganizationID: "org-1", QuestionID: "Q1", Answer: "the owner"}
	require.NoError(t, ar.Upsert(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &answers.Answer{OrganizationID: "org-1", QuestionID: "Q1", Answer: "the IT manager",
		EvidenceFiles: []answers.EvidenceFile{{Filename: "org-chart.pdf", FileType: "application/pdf"}}}
	require.NoError(t, ar.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := ar.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "the IT manager", got.Answer)
	require.Len(t, got.EvidenceFiles, 1)
	assert.Equal(t, "org-chart.pdf", got.EvidenceFiles[0].Filename)

	err = ar.Upsert(ctx, &answers.Answer{OrganizationID: "org-1", QuestionID: "Q404", Answer: "x"})
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestAnswerRepository_ListFilters(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	seed(t, db)
	ar := sqlstore.NewAnswerRepository(db, sqlite.Dialect)

	for _, a := range []*answers.Answer{
		{OrganizationID: "org-1", QuestionID: "Q1", Answer: "The Owner"},
		{OrganizationID: "org-1", QuestionID: "Q2", Answer: "weekly restore tests"},
		{OrganizationID: "org-2", QuestionID: "Q2", Answer: "never"},
	} {
		require.NoError(t, ar.Upsert(ctx, a))
	}

	all, err := ar.List(ctx, answers.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byOrg, err := ar.List(ctx, answers.Filter{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Len(t, byOrg, 2)

	byProvision, err := ar.List(ctx, answers.Filter{ProvisionID: "A.9.1"})
	require.NoError(t, err)
	assert.Len(t, byProvision, 2)

	contains, err := ar.List(ctx, answers.Filter{Contains: "owner"})
	require.NoError(t, err)
	require.Len(t, contains, 1)
	assert.Equal(t, "Q1", contains[0].QuestionID)

	require.NoError(t, ar.Delete(ctx, contains[0].ID))
	_, err = ar.Get(ctx, contains[0].ID)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestEvaluationRepository(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	seed(t, db)
	ar := sqlstore.NewAnswerRepository(db, sqlite.Dialect)
	er := sqlstore.NewEvaluationRepository(db, sqlite.Dialect)

	err := er.Upsert(ctx, &evaluations.Evaluation{OrganizationID: "org-1", QuestionID: "Q1", Result: evaluations.ResultPass})
	assert.True(t, errors.Is(err, errs.ErrNotFound), "evaluation without an answer")

	require.NoError(t, ar.Upsert(ctx, &answers.Answer{OrganizationID: "org-1", QuestionID: "Q1", Answer: "the owner"}))
	require.NoError(t, er.Upsert(ctx, &evaluations.Evaluation{OrganizationID: "org-1", QuestionID: "Q1",
		Answer: "the owner", Result: evaluations.ResultFail, EvaluatedBy: "auditor-1"}))
	require.NoError(t, er.Upsert(ctx, &evaluations.Evaluation{OrganizationID: "org-1", QuestionID: "Q1",
		Answer: "the owner", Result: evaluations.ResultPass, Reason: "named in org chart", EvaluatedBy: "auditor-1"}))

	list, err := er.ListByOrganization(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, evaluations.ResultPass, list[0].Result)
	assert.Equal(t, "named in org chart", list[0].Reason)
}

func TestPromptRepository_LatestPrompts(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	pr := sqlstore.NewPromptRepository(db, sqlite.Dialect)

	t0 := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	done := t0.Add(time.Hour)
	runs := []*prompts.Run{
		{ID: "run-old", Status: prompts.StatusCompleted, StartedAt: t0, CompletedAt: &done},
		{ID: "run-new", Status: prompts.StatusCompleted, StartedAt: t0.Add(24 * time.Hour), CompletedAt: &done},
		{ID: "run-failed", Status: prompts.StatusFailed, StartedAt: t0.Add(48 * time.Hour)},
	}
	for _, r := range runs {
		require.NoError(t, pr.SaveRun(ctx, r))
	}
	for i, p := range []*prompts.ClausePrompt{
		{ID: "p1", RunID: "run-old", ProvisionID: "A.1.1", Prompt: "old", CreatedAt: t0},
		{ID: "p2", RunID: "run-new", ProvisionID: "A.1.1", Prompt: "new", CreatedAt: t0.Add(24 * time.Hour)},
		{ID: "p3", RunID: "run-failed", ProvisionID: "A.1.1", Prompt: "broken", CreatedAt: t0.Add(48 * time.Hour)},
		{ID: "p4", RunID: "run-old", ProvisionID: "A.9.1", Prompt: "backup", CreatedAt: t0},
	} {
		require.NoError(t, pr.SavePrompt(ctx, p), i)
	}

	latest, err := pr.LatestPrompts(ctx, []string{"A.1.1", "A.9.1"})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	got := map[string]string{}
	for _, p := range latest {
		got[p.ProvisionID] = p.Prompt
	}
	assert.Equal(t, map[string]string{"A.1.1": "new", "A.9.1": "backup"}, got)

	listed, err := pr.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, prompts.RunID("run-failed"), listed[0].ID)
	assert.Nil(t, listed[0].CompletedAt)

	_, err = pr.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}
