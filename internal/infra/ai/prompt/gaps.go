package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
)

// GapSystemPrompt asks for remediation advice on the computed gaps.
func GapSystemPrompt() string {
	return `You are a Cyber Essentials consultant helping a small organisation close its compliance gaps. You receive the provisions that do not pass yet, with the failed and unanswered questions behind each one, and the organisation's answers.

For every gap give a one-sentence description of what is missing, concrete remediation steps in the order they should be done, and quick wins that take less than a day. Keep advice proportionate for organisations with limited IT staff. Do not invent provisions that are not listed.

Respond with one JSON object only (no markdown, no code fences):
{"summary": "<two or three sentences>", "priorities": ["<top action>", ...], "gaps": [{"provision_id": "<id>", "description": "<text>", "remediation": ["<step>", ...], "quick_wins": ["<step>", ...]}]}`
}

// GapUserPrompt renders the company, its gaps and the question context.
func GapUserPrompt(in evaluations.GapInput) string {
	var b strings.Builder
	a := in.Analysis
	fmt.Fprintf(&b, "## Organisation\n%s (industry: %s, size: %s)\n\n", a.Organization.Name, orNA(a.Organization.Industry), orNA(a.Organization.Size))
	fmt.Fprintf(&b, "## Assessment Status\n%d of %d questions evaluated, %d passed, %d failed.\n\n", a.Stats.Evaluated, a.Stats.Total, a.Stats.Passed, a.Stats.Failed)

	b.WriteString("## Gaps\n")
	if len(a.Gaps) == 0 {
		b.WriteString("No gaps found.\n")
	}
	for _, g := range a.Gaps {
		fmt.Fprintf(&b, "- **%s** [%s, %s]: %s\n", g.ProvisionID, g.Severity, g.Status, g.Provision)
		if len(g.Failed) > 0 {
			fmt.Fprintf(&b, "  - Failed questions: %s\n", strings.Join(g.Failed, ", "))
		}
		if len(g.Unanswered) > 0 {
			fmt.Fprintf(&b, "  - Unanswered questions: %s\n", strings.Join(g.Unanswered, ", "))
		}
	}

	b.WriteString("\n## Questions\n")
	for _, q := range in.Questions {
		answer := q.Answer
		if strings.TrimSpace(answer) == "" {
			answer = "(no answer)"
		}
		result := string(q.Result)
		if result == "" {
			result = "not evaluated"
		}
		fmt.Fprintf(&b, "- **%s**: %s\n  - Answer: %s\n  - Result: %s\n", q.QuestionID, q.Question, answer, result)
	}
	return b.String()
}

type gapAdviceJSON struct {
	Summary    string   `json:"summary"`
	Priorities []string `json:"priorities"`
	Gaps       []struct {
		ProvisionID string   `json:"provision_id"`
		Description string   `json:"description"`
		Remediation []string `json:"remediation"`
		QuickWins   []string `json:"quick_wins"`
	} `json:"gaps"`
}

// ParseGapAdvice reads the model's JSON reply. Text around the object is ignored.
func ParseGapAdvice(content string) (*evaluations.GapAdvice, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, goerr.New("no JSON object in gap advice", goerr.V("content", content))
	}
	var raw gapAdviceJSON
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to decode gap advice", goerr.V("content", content))
	}
	out := &evaluations.GapAdvice{Summary: raw.Summary, Priorities: raw.Priorities}
	for _, g := range raw.Gaps {
		out.Gaps = append(out.Gaps, evaluations.GapAdviceItem{
			ProvisionID: strings.TrimSpace(g.ProvisionID),
			Description: g.Description,
			Remediation: g.Remediation,
			QuickWins:   g.QuickWins,
		})
	}
	return out, nil
}
