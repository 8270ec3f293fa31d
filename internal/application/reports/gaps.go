package reports

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

// FindGaps lists every provision with mapped questions that does not pass.
//
// Severity is high when the provision fails with at least one failed
// question, low while nothing is evaluated, and medium otherwise.
// Provisions without mapped questions are skipped.
func FindGaps(org *organizations.Organization, qs []*questionnaire.Question, ps []*questionnaire.Provision,
	answered map[string]*answers.Answer, evals map[string]*evaluations.Evaluation, now time.Time) *evaluations.GapAnalysis {

	known, byProvision := index(qs, evals)
	out := &evaluations.GapAnalysis{
		Organization: reportOrganization(org),
		GeneratedAt:  now,
		Stats:        evaluations.ComputeStats(len(qs), known),
		Gaps:         []evaluations.Gap{},
	}

	for _, p := range ps {
		ids := mapped(p, byProvision)
		if len(ids) == 0 {
			continue
		}
		roll := evaluations.RollupProvision(p.ID, p.Provision, ids, known)
		if roll.Status == evaluations.ProvisionPass {
			continue
		}
		g := evaluations.Gap{ProvisionID: p.ID, Provision: p.Provision, Status: roll.Status}
		for _, id := range ids {
			if e, ok := known[id]; ok && e.Result == evaluations.ResultFail {
				g.Failed = append(g.Failed, id)
			}
			if a, ok := answered[id]; !ok || strings.TrimSpace(a.Answer) == "" {
				g.Unanswered = append(g.Unanswered, id)
			}
		}
		switch {
		case roll.Status == evaluations.ProvisionFail && len(g.Failed) > 0:
			g.Severity = evaluations.SeverityHigh
		case roll.Status == evaluations.ProvisionPending:
			g.Severity = evaluations.SeverityLow
		default:
			g.Severity = evaluations.SeverityMedium
		}
		g.Description = describe(roll, len(g.Failed), len(g.Unanswered))
		out.Gaps = append(out.Gaps, g)
	}

	sort.SliceStable(out.Gaps, func(i, j int) bool {
		return out.Gaps[i].Severity.Rank() < out.Gaps[j].Severity.Rank()
	})
	return out
}

func describe(roll evaluations.ProvisionOutcome, failed, unanswered int) string {
	if roll.Evaluated == 0 {
		return fmt.Sprintf("none of %d mapped questions evaluated yet, %d unanswered", roll.Total, unanswered)
	}
	return fmt.Sprintf("%d of %d mapped questions passed, %d failed, %d unanswered", roll.Passed, roll.Total, failed, unanswered)
}
