package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
)

var audienceBrief = map[evaluations.Audience]string{
	evaluations.AudienceExecutive: "Write for the business owner and management: no jargon, lead with the certification outlook, the top risks in business terms and the decisions needed. At most one page.",
	evaluations.AudienceTechnical: "Write for the IT team: go provision by provision, state what failed and why, and give concrete configuration or process changes with verification steps.",
	evaluations.AudienceAudit:     "Write a formal audit record for the certification body: scope, method, per-provision determinations with the evidence basis, open findings and the overall recommendation. Stay factual and neutral.",
}

// NarrativeSystemPrompt sets the report style for one audience.
func NarrativeSystemPrompt(a evaluations.Audience) string {
	brief, ok := audienceBrief[a]
	if !ok {
		brief = audienceBrief[evaluations.AudienceExecutive]
	}
	return "You are a Cyber Essentials assessor writing up the result of a compliance review. " + brief +
		"\n\nUse only the figures given. Output markdown only, starting with a level-one heading."
}

// NarrativeUserPrompt renders the report figures and the gaps.
func NarrativeUserPrompt(in evaluations.NarrativeInput) string {
	var b strings.Builder
	rep := in.Report
	fmt.Fprintf(&b, "## Assessment\n- Organisation: %s\n- Industry: %s\n- Assessor: %s\n- Date: %s\n\n",
		rep.Organization.Name, orNA(rep.Organization.Industry), orNA(in.Auditor), rep.GeneratedAt.Format("2 January 2006"))
	fmt.Fprintf(&b, "## Results\n- Overall score: %.1f%%\n- Compliance rate: %.1f%%\n- Recommendation: %s\n- Questions evaluated: %d of %d (%d passed, %d failed)\n\n",
		rep.OverallScore, rep.ComplianceRate*100, orNA(rep.Recommendation), rep.Stats.Evaluated, rep.Stats.Total, rep.Stats.Passed, rep.Stats.Failed)

	b.WriteString("## Provisions\n")
	for _, p := range rep.Provisions {
		fmt.Fprintf(&b, "- %s [%s] %d/%d passed: %s\n", p.ProvisionID, p.Status, p.Passed, p.Total, p.Provision)
	}
	if in.Gaps != nil && len(in.Gaps.Gaps) > 0 {
		b.WriteString("\n## Gaps\n")
		for _, g := range in.Gaps.Gaps {
			fmt.Fprintf(&b, "- %s (%s): %s\n", g.ProvisionID, g.Severity, g.Description)
		}
	}
	return b.String()
}
