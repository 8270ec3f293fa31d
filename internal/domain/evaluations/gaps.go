package evaluations

import (
	"context"
	"strings"
	"time"
)

// Severity of a compliance gap
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities, high first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	}
	return 2
}

// Gap is a provision that is not (yet) shown to pass.
type Gap struct {
	ProvisionID string          `json:"provision_id"`
	Provision   string          `json:"provision"`
	Status      ProvisionStatus `json:"status"`
	Severity    Severity        `json:"severity"`
	Failed      []string        `json:"failed_questions,omitempty"`
	Unanswered  []string        `json:"unanswered_questions,omitempty"`
	Description string          `json:"description"`
	Remediation []string        `json:"remediation,omitempty"`
	QuickWins   []string        `json:"quick_wins,omitempty"`
}

// GapAnalysis lists the gaps of one company, most severe first.
type GapAnalysis struct {
	Organization ReportOrganization `json:"organization"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Stats        Stats              `json:"stats"`
	Gaps         []Gap              `json:"gaps"`
	Summary      string             `json:"summary,omitempty"`
	Priorities   []string           `json:"priorities,omitempty"`
	// Enriched is set once an analyst has added remediation advice.
	Enriched bool `json:"enriched"`
}

// GapAdvice is the analyst's remediation advice for a gap analysis.
type GapAdvice struct {
	Summary    string
	Priorities []string
	Gaps       []GapAdviceItem
}

// GapAdviceItem is the advice for one provision.
type GapAdviceItem struct {
	ProvisionID string
	Description string
	Remediation []string
	QuickWins   []string
}

// Apply merges advice into a. Items for provisions that are not a gap are dropped;
// an empty description keeps the computed one.
func (a *GapAnalysis) Apply(advice *GapAdvice) {
	if advice == nil {
		return
	}
	byID := make(map[string]int, len(a.Gaps))
	for i, g := range a.Gaps {
		byID[g.ProvisionID] = i
	}
	for _, item := range advice.Gaps {
		i, ok := byID[item.ProvisionID]
		if !ok {
			continue
		}
		if d := strings.TrimSpace(item.Description); d != "" {
			a.Gaps[i].Description = d
		}
		a.Gaps[i].Remediation = item.Remediation
		a.Gaps[i].QuickWins = item.QuickWins
	}
	a.Summary = strings.TrimSpace(advice.Summary)
	a.Priorities = advice.Priorities
	a.Enriched = true
}

// QuestionContext is one question with the company's answer, handed to the analyst.
type QuestionContext struct {
	QuestionID string
	Question   string
	Answer     string
	Result     Result // empty when not evaluated
}

// GapInput is what the analyst sees of a company.
type GapInput struct {
	Analysis  *GapAnalysis
	Questions []QuestionContext
}

// Audience of a narrative report
type Audience string

const (
	AudienceExecutive Audience = "executive"
	AudienceTechnical Audience = "technical"
	AudienceAudit     Audience = "audit"
)

// ParseAudience normalises user input; empty means executive.
func ParseAudience(s string) (Audience, bool) {
	switch a := Audience(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return AudienceExecutive, true
	case AudienceExecutive, AudienceTechnical, AudienceAudit:
		return a, true
	}
	return "", false
}

// NarrativeInput is the material for one written report.
type NarrativeInput struct {
	Audience Audience
	Auditor  string
	Report   *ComplianceReport
	Gaps     *GapAnalysis
}

// Narrative is a written report for one audience.
type Narrative struct {
	OrganizationID string    `json:"organization_id"`
	Audience       Audience  `json:"audience"`
	GeneratedAt    time.Time `json:"generated_at"`
	Content        string    `json:"content"`
	DocumentURL    string    `json:"document_url,omitempty"`
}

// Analyst port (LLM untuk gap analysis dan narasi laporan)
type Analyst interface {
	AnalyzeGaps(ctx context.Context, in GapInput) (*GapAdvice, error)
	Narrate(ctx context.Context, in NarrativeInput) (string, error)
}
