package evaluations

import "time"

// ProvisionStatus is the rolled-up outcome of one provision.
type ProvisionStatus string

const (
	ProvisionPass    ProvisionStatus = "pass"
	ProvisionFail    ProvisionStatus = "fail"
	ProvisionPartial ProvisionStatus = "partial"
	ProvisionPending ProvisionStatus = "pending"
)

// ProvisionOutcome aggregates the evaluations of the questions mapped to one provision.
type ProvisionOutcome struct {
	ProvisionID    string          `json:"provision_id"`
	Provision      string          `json:"provision"`
	Total          int             `json:"total"`
	Evaluated      int             `json:"evaluated"`
	Passed         int             `json:"passed"`
	Failed         int             `json:"failed"`
	Pending        int             `json:"pending"`
	PassPercentage float64         `json:"passPercentage"`
	Status         ProvisionStatus `json:"status"`
}

// RollupProvision derives a provision outcome from its mapped question ids.
//
// pending: nothing evaluated; pass: every mapped question passed;
// partial: some but not all passed; fail: evaluated, none passed.
func RollupProvision(id, text string, questionIDs []string, evals map[string]*Evaluation) ProvisionOutcome {
	out := ProvisionOutcome{ProvisionID: id, Provision: text, Total: len(questionIDs)}
	for _, qid := range questionIDs {
		e, ok := evals[qid]
		if !ok {
			continue
		}
		out.Evaluated++
		switch e.Result {
		case ResultPass:
			out.Passed++
		case ResultFail:
			out.Failed++
		}
	}
	out.Pending = out.Total - out.Evaluated
	out.PassPercentage = Percentage(out.Passed, out.Total)

	switch {
	case out.Evaluated == 0:
		out.Status = ProvisionPending
	case out.Passed == out.Total:
		out.Status = ProvisionPass
	case out.Passed == 0:
		out.Status = ProvisionFail
	default:
		out.Status = ProvisionPartial
	}
	return out
}

// ReportOrganization is the company identity printed on a report.
type ReportOrganization struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person,omitempty"`
	ContactEmail  string `json:"contact_email,omitempty"`
	Industry      string `json:"industry,omitempty"`
	Size          string `json:"size,omitempty"`
}

// ComplianceReport combines company identity, provision outcomes and an overall score.
type ComplianceReport struct {
	Organization   ReportOrganization `json:"organization"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Stats          Stats              `json:"stats"`
	Provisions     []ProvisionOutcome `json:"provisions"`
	OverallScore   float64            `json:"overall_score"`
	ComplianceRate float64            `json:"compliance_rate"`
	Recommendation string             `json:"recommendation"`
}
