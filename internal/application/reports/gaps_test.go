package reports_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cnav/internal/application/reports"
	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
)

func TestFindGaps(t *testing.T) {
	org, qs, ps := fixture()
	answered := map[string]*answers.Answer{
		"Q1": {QuestionID: "Q1", Answer: "spreadsheet"},
		"Q2": {QuestionID: "Q2", Answer: "only for admins"},
		"Q3": {QuestionID: "Q3", Answer: "  "},
	}
	got := reports.FindGaps(org, qs, ps, answered, map[string]*evaluations.Evaluation{
		"Q1": eval("Q1", evaluations.ResultPass),
		"Q2": eval("Q2", evaluations.ResultFail),
	}, now)

	assert.Equal(t, "org-1", got.Organization.ID)
	assert.Equal(t, 2, got.Stats.Evaluated)
	assert.False(t, got.Enriched)
	require.Len(t, got.Gaps, 3)

	assert.Equal(t, "B.2.1", got.Gaps[0].ProvisionID)
	assert.Equal(t, evaluations.SeverityHigh, got.Gaps[0].Severity)
	assert.Equal(t, []string{"Q2"}, got.Gaps[0].Failed)

	assert.Equal(t, "A.1.4", got.Gaps[1].ProvisionID)
	assert.Equal(t, evaluations.SeverityMedium, got.Gaps[1].Severity)
	assert.Equal(t, evaluations.ProvisionPartial, got.Gaps[1].Status)
	assert.Equal(t, "1 of 2 mapped questions passed, 1 failed, 0 unanswered", got.Gaps[1].Description)

	assert.Equal(t, "C.3.1", got.Gaps[2].ProvisionID)
	assert.Equal(t, evaluations.SeverityLow, got.Gaps[2].Severity)
	assert.Equal(t, []string{"Q3"}, got.Gaps[2].Unanswered)
	assert.Equal(t, "none of 1 mapped questions evaluated yet, 1 unanswered", got.Gaps[2].Description)
}

func TestFindGaps_AllPassHasNoGaps(t *testing.T) {
	org, qs, ps := fixture()
	evals := map[string]*evaluations.Evaluation{}
	for _, q := range qs {
		evals[q.ID] = eval(q.ID, evaluations.ResultPass)
	}
	got := reports.FindGaps(org, qs, ps, nil, evals, now)
	assert.Empty(t, got.Gaps)
	assert.NotNil(t, got.Gaps)
}

func TestGapAnalysis_Apply(t *testing.T) {
	org, qs, ps := fixture()
	got := reports.FindGaps(org, qs, ps, nil, nil, now)
	require.Len(t, got.Gaps, 3)

	got.Apply(&evaluations.GapAdvice{
		Summary:    " Backups and MFA need work. ",
		Priorities: []string{"enable MFA"},
		Gaps: []evaluations.GapAdviceItem{
			{ProvisionID: "C.3.1", Description: "No restore tests", Remediation: []string{"run a restore drill"}},
			{ProvisionID: "A.1.4", Remediation: []string{"list every laptop"}, QuickWins: []string{"export from MDM"}},
			{ProvisionID: "Z.9.9", Description: "not a gap"},
		},
	})
	assert.True(t, got.Enriched)
	assert.Equal(t, "Backups and MFA need work.", got.Summary)
	assert.Equal(t, []string{"enable MFA"}, got.Priorities)

	byID := map[string]evaluations.Gap{}
	for _, g := range got.Gaps {
		byID[g.ProvisionID] = g
	}
	assert.Equal(t, "No restore tests", byID["C.3.1"].Description)
	assert.Equal(t, []string{"run a restore drill"}, byID["C.3.1"].Remediation)
	assert.Contains(t, byID["A.1.4"].Description, "none of 2 mapped questions")
	assert.Equal(t, []string{"export from MDM"}, byID["A.1.4"].QuickWins)
	assert.Len(t, got.Gaps, 3)
}
