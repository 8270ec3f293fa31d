package reports

import (
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

// Assemble builds a compliance report from the company's evaluations.
//
// Provisions keep their given order. A provision whose Questions list is
// empty falls back to the questions that name it in their own Provisions.
// OverallScore is the pass percentage over evaluated questions and
// ComplianceRate the share of evaluated provisions with status pass.
func Assemble(org *organizations.Organization, qs []*questionnaire.Question, ps []*questionnaire.Provision,
	evals map[string]*evaluations.Evaluation, rec Recommender, now time.Time) (*evaluations.ComplianceReport, error) {

	known, byProvision := index(qs, evals)
	st := evaluations.ComputeStats(len(qs), known)
	rep := &evaluations.ComplianceReport{
		Organization: reportOrganization(org),
		GeneratedAt:  now,
		Stats:        st,
		Provisions:   make([]evaluations.ProvisionOutcome, 0, len(ps)),
		OverallScore: st.PassPercentage,
	}

	var assessed, compliant int
	for _, p := range ps {
		out := evaluations.RollupProvision(p.ID, p.Provision, mapped(p, byProvision), known)
		rep.Provisions = append(rep.Provisions, out)
		if out.Status == evaluations.ProvisionPending {
			continue
		}
		assessed++
		if out.Status == evaluations.ProvisionPass {
			compliant++
		}
	}
	if assessed > 0 {
		rep.ComplianceRate = float64(compliant) / float64(assessed)
	}

	if rec != nil {
		r, err := rec.Recommend(rep.OverallScore, rep.ComplianceRate, st.Evaluated, st.Total)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to compute recommendation", goerr.V("organization_id", org.ID))
		}
		rep.Recommendation = r
	}
	return rep, nil
}

// index keeps the evaluations of listed questions and groups question ids by provision.
func index(qs []*questionnaire.Question, evals map[string]*evaluations.Evaluation) (map[string]*evaluations.Evaluation, map[string][]string) {
	// evaluasi untuk pertanyaan di luar daftar tidak dihitung
	known := make(map[string]*evaluations.Evaluation, len(evals))
	byProvision := map[string][]string{}
	for _, q := range qs {
		if e, ok := evals[q.ID]; ok {
			known[q.ID] = e
		}
		for _, pid := range q.Provisions {
			byProvision[pid] = append(byProvision[pid], q.ID)
		}
	}
	return known, byProvision
}

func mapped(p *questionnaire.Provision, byProvision map[string][]string) []string {
	if len(p.Questions) > 0 {
		return p.Questions
	}
	return byProvision[p.ID]
}

func reportOrganization(org *organizations.Organization) evaluations.ReportOrganization {
	return evaluations.ReportOrganization{
		ID:            org.ID,
		Name:          org.Name,
		ContactPerson: org.ContactPerson,
		ContactEmail:  org.ContactEmail,
		Industry:      org.Industry,
		Size:          org.Size,
	}
}
