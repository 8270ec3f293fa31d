package tracker

import (
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/application/reports"
	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

// Review holds one auditor's working set: the selected company, its
// questions, provisions and answers, and the evaluations made so far.
// Not safe for concurrent use.
type Review struct {
	companies  []*organizations.Organization
	selected   *organizations.Organization
	questions  []*questionnaire.Question
	provisions []*questionnaire.Provision
	answers    map[string]*answers.Answer // by question id
	evals      map[string]*evaluations.Evaluation
}

// NewReview returns an empty tracker.
func NewReview() *Review {
	return &Review{
		answers: map[string]*answers.Answer{},
		evals:   map[string]*evaluations.Evaluation{},
	}
}

// SetCompanies replaces the list of reviewable companies.
func (r *Review) SetCompanies(list []*organizations.Organization) { r.companies = list }

// Companies returns the list of reviewable companies.
func (r *Review) Companies() []*organizations.Organization { return r.companies }

// SelectCompany loads the data for org and drops every evaluation,
// also when org is the company already selected.
func (r *Review) SelectCompany(org *organizations.Organization, qs []*questionnaire.Question,
	ps []*questionnaire.Provision, as []*answers.Answer) {
	r.selected = org
	r.questions = qs
	r.provisions = ps
	r.answers = make(map[string]*answers.Answer, len(as))
	for _, a := range as {
		r.answers[a.QuestionID] = a
	}
	r.evals = map[string]*evaluations.Evaluation{}
}

// Selected returns the selected company or nil.
func (r *Review) Selected() *organizations.Organization { return r.selected }

// Questions of the selected company.
func (r *Review) Questions() []*questionnaire.Question { return r.questions }

// Answer returns the loaded answer for questionID.
func (r *Review) Answer(questionID string) (*answers.Answer, bool) {
	a, ok := r.answers[questionID]
	return a, ok
}

// Answers returns the loaded answers ordered by question id.
func (r *Review) Answers() []*answers.Answer {
	out := make([]*answers.Answer, 0, len(r.answers))
	for _, a := range r.answers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

// RecordEvaluation stores e, replacing any earlier evaluation of the same question.
// The question must have a loaded answer.
func (r *Review) RecordEvaluation(e evaluations.Evaluation) (*evaluations.Evaluation, error) {
	if r.selected == nil {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "no company selected")
	}
	a, ok := r.answers[e.QuestionID]
	if !ok {
		return nil, goerr.Wrap(errs.ErrNotFound, "no answer to evaluate",
			goerr.V("organization_id", r.selected.ID), goerr.V("question_id", e.QuestionID))
	}
	if _, ok := evaluations.ParseResult(string(e.Result)); !ok {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "unknown evaluation result", goerr.V("result", e.Result))
	}
	e.OrganizationID = r.selected.ID
	e.Answer = a.Answer
	r.evals[e.QuestionID] = &e
	return &e, nil
}

// Evaluation returns the evaluation for questionID.
func (r *Review) Evaluation(questionID string) (*evaluations.Evaluation, bool) {
	e, ok := r.evals[questionID]
	return e, ok
}

// Evaluations returns a copy of the evaluation map.
func (r *Review) Evaluations() map[string]*evaluations.Evaluation {
	out := make(map[string]*evaluations.Evaluation, len(r.evals))
	for k, v := range r.evals {
		out[k] = v
	}
	return out
}

// Stats counts evaluations against the loaded questions. Evaluations of
// questions outside the list are ignored, as in the report.
func (r *Review) Stats() evaluations.Stats {
	known := make(map[string]*evaluations.Evaluation, len(r.evals))
	for _, q := range r.questions {
		if e, ok := r.evals[q.ID]; ok {
			known[q.ID] = e
		}
	}
	return evaluations.ComputeStats(len(r.questions), known)
}

// Report assembles the compliance report for the selected company.
func (r *Review) Report(rec reports.Recommender, now time.Time) (*evaluations.ComplianceReport, error) {
	if r.selected == nil {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "no company selected")
	}
	return reports.Assemble(r.selected, r.questions, r.provisions, r.evals, rec, now)
}

// Gaps lists the provisions of the selected company that do not pass yet.
func (r *Review) Gaps(now time.Time) (*evaluations.GapAnalysis, error) {
	if r.selected == nil {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "no company selected")
	}
	return reports.FindGaps(r.selected, r.questions, r.provisions, r.answers, r.evals, now), nil
}

// ReviewSnapshot is the durable part of Review.
type ReviewSnapshot struct {
	SelectedID  string                             `json:"selected_id,omitempty"`
	Evaluations map[string]*evaluations.Evaluation `json:"evaluations"`
}

// Snapshot captures the selected company id and the evaluations.
func (r *Review) Snapshot() ReviewSnapshot {
	s := ReviewSnapshot{Evaluations: r.Evaluations()}
	if r.selected != nil {
		s.SelectedID = r.selected.ID
	}
	return s
}

// Restore re-applies evaluations after the company data has been reloaded
// with SelectCompany. A snapshot for another company is ignored.
func (r *Review) Restore(s ReviewSnapshot) {
	if r.selected == nil || s.SelectedID != r.selected.ID {
		return
	}
	r.evals = make(map[string]*evaluations.Evaluation, len(s.Evaluations))
	for k, v := range s.Evaluations {
		r.evals[k] = v
	}
}
