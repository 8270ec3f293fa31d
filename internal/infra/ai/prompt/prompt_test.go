package prompt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/prompts"
	"github.com/bryanwahyu/cnav/internal/infra/ai/prompt"
)

func TestGenerationUserPrompt(t *testing.T) {
	in := prompts.ClauseInput{
		ClauseID:    "A.9",
		ProvisionID: "A.9.1",
		Provision:   "Back up essential data regularly",
		Keywords:    []string{"backup", "restore"},
		Questions: []prompts.QuestionAnswer{
			{QuestionID: "Q6", Question: "How often are backups taken?", Answer: "Nightly to cloud"},
			{QuestionID: "Q7", Question: "Are restores tested?"},
		},
	}
	got := prompt.GenerationUserPrompt(in)
	assert.Contains(t, got, "**Provision ID**: A.9.1")
	assert.Contains(t, got, "**Keywords**: backup, restore")
	assert.Contains(t, got, "**Suggested Artefacts**: N/A")
	assert.Contains(t, got, "- **Q6**: How often are backups taken?\n  - Response: Nightly to cloud")
	assert.Contains(t, got, "- **Q7**: Are restores tested?\n")
	assert.NotContains(t, got, "No dependent questions found.")

	empty := prompt.GenerationUserPrompt(prompts.ClauseInput{ProvisionID: "A.1.1"})
	assert.Contains(t, empty, "No dependent questions found.")
}

func TestEvaluationSystemPrompt(t *testing.T) {
	def := prompt.EvaluationSystemPrompt(nil)
	assert.Contains(t, def, "Vague, aspirational or empty answers FAIL")
	assert.Contains(t, def, `"result": "<pass|fail|pending>"`)

	custom := prompt.EvaluationSystemPrompt([]string{"criteria one", "criteria two"})
	assert.NotContains(t, custom, "Vague, aspirational")
	assert.Contains(t, custom, "criteria one\n\n---\ncriteria two")
}

func TestEvaluationUserPrompt(t *testing.T) {
	got := prompt.EvaluationUserPrompt(evaluations.SuggestInput{QuestionID: "Q1", Question: "Who?", Evidence: []string{"a.pdf", "b.png"}})
	assert.Equal(t, "Question Q1: Who?\n\nAnswer: (no answer)\n\nEvidence files: a.pdf, b.png", got)
}

func TestParseSuggestion(t *testing.T) {
	s, err := prompt.ParseSuggestion("Q1", "Sure:\n```json\n{\"result\":\"PASS\",\"reason\":\"named owner\",\"confidence\":1.4}\n```")
	require.NoError(t, err)
	assert.Equal(t, evaluations.ResultPass, s.Result)
	assert.Equal(t, "Q1", s.QuestionID)
	assert.Equal(t, "named owner", s.Reason)
	assert.Equal(t, 1.0, s.Confidence)

	_, err = prompt.ParseSuggestion("Q1", "no json here")
	assert.Error(t, err)

	_, err = prompt.ParseSuggestion("Q1", `{"result":"maybe"}`)
	assert.Error(t, err)
}

func TestGapUserPrompt(t *testing.T) {
	got := prompt.GapUserPrompt(evaluations.GapInput{
		Analysis: &evaluations.GapAnalysis{
			Organization: evaluations.ReportOrganization{Name: "Tan Logistics"},
			Gaps: []evaluations.Gap{{
				ProvisionID: "A.9.1", Provision: "Back up data", Severity: evaluations.SeverityMedium,
				Status: evaluations.ProvisionPartial, Unanswered: []string{"Q7"},
			}},
		},
		Questions: []evaluations.QuestionContext{{QuestionID: "Q6", Question: "Backups?", Result: evaluations.ResultPass}, {QuestionID: "Q7", Question: "Restores?"}},
	})
	assert.Contains(t, got, "Tan Logistics (industry: N/A, size: N/A)")
	assert.Contains(t, got, "- **A.9.1** [medium, partial]: Back up data\n  - Unanswered questions: Q7\n")
	assert.NotContains(t, got, "Failed questions")
	assert.Contains(t, got, "- **Q7**: Restores?\n  - Answer: (no answer)\n  - Result: not evaluated\n")
}

func TestParseGapAdvice(t *testing.T) {
	a, err := prompt.ParseGapAdvice("```json\n{\"summary\":\"ok\",\"gaps\":[{\"provision_id\":\" A.1.1 \",\"remediation\":[\"name an owner\"]}]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "ok", a.Summary)
	require.Len(t, a.Gaps, 1)
	assert.Equal(t, "A.1.1", a.Gaps[0].ProvisionID)

	_, err = prompt.ParseGapAdvice("nothing")
	assert.Error(t, err)
}

func TestNarrativePrompts(t *testing.T) {
	assert.Contains(t, prompt.NarrativeSystemPrompt(evaluations.AudienceAudit), "certification body")
	assert.Contains(t, prompt.NarrativeSystemPrompt("unknown"), "business owner")

	got := prompt.NarrativeUserPrompt(evaluations.NarrativeInput{
		Auditor: "auditor-1",
		Report: &evaluations.ComplianceReport{
			Organization:   evaluations.ReportOrganization{Name: "Tan Logistics"},
			OverallScore:   50,
			ComplianceRate: 0.25,
			Recommendation: "FAIL",
			Provisions:     []evaluations.ProvisionOutcome{{ProvisionID: "A.1.1", Status: evaluations.ProvisionPass, Passed: 1, Total: 1, Provision: "Owner"}},
		},
		Gaps: &evaluations.GapAnalysis{Gaps: []evaluations.Gap{{ProvisionID: "A.9.1", Severity: evaluations.SeverityHigh, Description: "no backups"}}},
	})
	assert.Contains(t, got, "- Overall score: 50.0%\n- Compliance rate: 25.0%\n- Recommendation: FAIL")
	assert.Contains(t, got, "- A.1.1 [pass] 1/1 passed: Owner\n")
	assert.Contains(t, got, "## Gaps\n- A.9.1 (high): no backups\n")
}
