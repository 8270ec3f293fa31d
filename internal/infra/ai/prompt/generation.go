package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/cnav/internal/domain/prompts"
)

// GenerationSystemPrompt directs the model to write auditor criteria for one provision.
func GenerationSystemPrompt() string {
	return `You are an expert cybersecurity auditor specialising in the Singapore Cyber Essentials certification framework. You write evaluation criteria that auditors use to assess an organisation's self-assessment responses against one provision.

Cyber Essentials is a baseline certification for organisations with limited IT and cybersecurity expertise. Its measures are grouped into Assets (people, hardware/software, data), Secure/Protect (malware protection, access control, secure configuration), Update, Backup and Respond.

Write the evaluation prompt with these sections:
1. Provision Overview: what the provision requires in practice and the security objective behind it.
2. Evaluation Framework: PASS criteria, FAIL criteria and guidance for borderline answers.
3. Evidence Assessment: expected evidence types, quality bar and red flags.
4. Question-by-Question Instructions: what to look for, acceptable and unacceptable answers, follow-up questions.
5. Practical Considerations: scaling for very small organisations and reasonable effort.
6. Common Pitfalls: typical gaps and answers that look compliant but lack substance.
7. Scoring Guidance: a step-by-step PASS/FAIL decision and when to escalate.

Begin with: "You will be given a list of self-assessment questions with answers and evidence filled by the organization under evaluation. Your task is to evaluate if each question PASSES or FAILS for this particular provision. Here are the evaluation criteria for this provision:"

Keep the criteria practical and proportionate. Output markdown only.`
}

// GenerationUserPrompt renders the clause, provision and question/answer pairs.
func GenerationUserPrompt(in prompts.ClauseInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Clause Information\n**Clause ID**: %s\n\n", orNA(in.ClauseID))
	fmt.Fprintf(&b, "## Provision Details\n**Provision ID**: %s\n**Provision Requirement**: %s\n", in.ProvisionID, orNA(in.Provision))
	fmt.Fprintf(&b, "**Keywords**: %s\n", orNA(strings.Join(in.Keywords, ", ")))
	fmt.Fprintf(&b, "**Suggested Artefacts**: %s\n\n", orNA(in.SuggestedArtefacts))

	b.WriteString("## Dependent Questions\n")
	if len(in.Questions) == 0 {
		b.WriteString("No dependent questions found.\n")
	}
	for _, q := range in.Questions {
		fmt.Fprintf(&b, "- **%s**: %s\n", q.QuestionID, q.Question)
		if q.Answer != "" {
			fmt.Fprintf(&b, "  - Response: %s\n", q.Answer)
		}
	}

	b.WriteString("\n## Instructions\nGenerate a comprehensive evaluation prompt for auditors to assess self-assessment responses against this provision. ")
	b.WriteString("Focus on practical criteria that fit the resource constraints of Cyber Essentials applicants.\n")
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
