package tracker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cnav/internal/application/reports"
	"github.com/bryanwahyu/cnav/internal/application/tracker"
	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

func answered(orgID string, qids ...string) []*answers.Answer {
	out := make([]*answers.Answer, 0, len(qids))
	for _, id := range qids {
		out = append(out, &answers.Answer{OrganizationID: orgID, QuestionID: id, Answer: "answer " + id})
	}
	return out
}

func selectedReview(t *testing.T) *tracker.Review {
	t.Helper()
	r := tracker.NewReview()
	org := &organizations.Organization{ID: "org-1", Name: "Acme"}
	r.SelectCompany(org, questions("Q1", "Q2"), nil, answered("org-1", "Q1", "Q2"))
	return r
}

func TestReview_StatsPassFail(t *testing.T) {
	r := selectedReview(t)
	_, err := r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q1", Result: evaluations.ResultPass})
	require.NoError(t, err)
	_, err = r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q2", Result: evaluations.ResultFail})
	require.NoError(t, err)

	assert.Equal(t, evaluations.Stats{
		Total:                2,
		Evaluated:            2,
		Passed:               1,
		Failed:               1,
		Pending:              0,
		CompletionPercentage: 100,
		PassPercentage:       50,
	}, r.Stats())
}

func TestReview_NoEvaluations(t *testing.T) {
	r := selectedReview(t)
	st := r.Stats()
	assert.Equal(t, 0.0, st.PassPercentage)
	assert.Equal(t, 2, st.Pending)
}

func TestReview_RecordOverwrites(t *testing.T) {
	r := selectedReview(t)
	_, err := r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q1", Result: evaluations.ResultFail})
	require.NoError(t, err)
	e, err := r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q1", Result: evaluations.ResultPass, Reason: "ok"})
	require.NoError(t, err)

	assert.Equal(t, "org-1", e.OrganizationID)
	assert.Equal(t, "answer Q1", e.Answer)
	assert.Equal(t, 1, r.Stats().Evaluated)
	assert.Equal(t, 1, r.Stats().Passed)
}

func TestReview_RequiresAnswer(t *testing.T) {
	r := tracker.NewReview()
	r.SelectCompany(&organizations.Organization{ID: "org-1"}, questions("Q1", "Q2"), nil, answered("org-1", "Q1"))

	_, err := r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q2", Result: evaluations.ResultPass})
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, err = r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q1", Result: "maybe"})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestReview_NothingSelected(t *testing.T) {
	r := tracker.NewReview()
	_, err := r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q1", Result: evaluations.ResultPass})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
	_, err = r.Report(nil, time.Now())
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestReview_SelectCompanyResetsEvaluations(t *testing.T) {
	r := selectedReview(t)
	_, err := r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q1", Result: evaluations.ResultPass})
	require.NoError(t, err)

	r.SelectCompany(&organizations.Organization{ID: "org-2"}, questions("Q1"), nil, answered("org-2", "Q1"))
	assert.Empty(t, r.Evaluations())
	assert.Equal(t, "org-2", r.Selected().ID)

	// re-selecting the same company also resets
	_, err = r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q1", Result: evaluations.ResultPass})
	require.NoError(t, err)
	r.SelectCompany(r.Selected(), questions("Q1"), nil, answered("org-2", "Q1"))
	assert.Empty(t, r.Evaluations())
}

func TestReview_SnapshotRestore(t *testing.T) {
	r := selectedReview(t)
	_, err := r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q2", Result: evaluations.ResultFail})
	require.NoError(t, err)
	snap := r.Snapshot()
	assert.Equal(t, "org-1", snap.SelectedID)

	fresh := selectedReview(t)
	fresh.Restore(snap)
	e, ok := fresh.Evaluation("Q2")
	require.True(t, ok)
	assert.Equal(t, evaluations.ResultFail, e.Result)

	other := tracker.NewReview()
	other.SelectCompany(&organizations.Organization{ID: "org-9"}, questions("Q2"), nil, answered("org-9", "Q2"))
	other.Restore(snap)
	assert.Empty(t, other.Evaluations())
}

func TestReview_Report(t *testing.T) {
	r := tracker.NewReview()
	qs := []*questionnaire.Question{{ID: "Q1", Provisions: []string{"P1"}}, {ID: "Q2", Provisions: []string{"P1"}}}
	ps := []*questionnaire.Provision{{ID: "P1", Provision: "Keep records", Questions: []string{"Q1", "Q2"}}}
	r.SelectCompany(&organizations.Organization{ID: "org-1", Name: "Acme"}, qs, ps, answered("org-1", "Q1", "Q2"))
	_, err := r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q1", Result: evaluations.ResultPass})
	require.NoError(t, err)

	rec, err := reports.NewCELRecommender("")
	require.NoError(t, err)
	rep, err := r.Report(rec, time.Unix(0, 0))
	require.NoError(t, err)

	require.Len(t, rep.Provisions, 1)
	assert.Equal(t, evaluations.ProvisionPartial, rep.Provisions[0].Status)
	assert.Equal(t, 100.0, rep.OverallScore)
	assert.Equal(t, "FAIL", rep.Recommendation)
}

func TestReview_StatsIgnoreUnknownQuestions(t *testing.T) {
	r := selectedReview(t)
	r.Restore(tracker.ReviewSnapshot{
		SelectedID: "org-1",
		Evaluations: map[string]*evaluations.Evaluation{
			"Q1": {QuestionID: "Q1", Result: evaluations.ResultPass},
			"Q9": {QuestionID: "Q9", Result: evaluations.ResultFail},
		},
	})

	st := r.Stats()
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Evaluated)
	assert.Equal(t, 1, st.Passed)
	assert.Zero(t, st.Failed)
	assert.Equal(t, 100.0, st.PassPercentage)

	rep, err := r.Report(nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, st, rep.Stats)
}

func TestReview_Gaps(t *testing.T) {
	r := tracker.NewReview()
	_, err := r.Gaps(time.Time{})
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))

	r = selectedReview(t)
	_, err = r.RecordEvaluation(evaluations.Evaluation{QuestionID: "Q1", Result: evaluations.ResultFail})
	require.NoError(t, err)
	gaps, err := r.Gaps(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "org-1", gaps.Organization.ID)
	assert.Equal(t, 1, gaps.Stats.Evaluated)
	// no provisions loaded, nothing to roll up
	assert.Empty(t, gaps.Gaps)
}
