package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/cnav/internal/application"
	"github.com/bryanwahyu/cnav/internal/application/reports"
	"github.com/bryanwahyu/cnav/internal/application/tracker"
	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/prompts"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
	"github.com/bryanwahyu/cnav/internal/domain/sessions"
)

var tracer = otel.Tracer("github.com/bryanwahyu/cnav/internal/application/review")

// Service keeps one review tracker per auditor.
type Service struct {
	Orgs        organizations.Reader
	Questions   questionnaire.QuestionReader
	Provisions  questionnaire.ProvisionReader
	Answers     answers.Repository
	Evaluations evaluations.Repository
	Prompts     prompts.Repository
	Suggester   evaluations.Suggester
	Analyst     evaluations.Analyst
	Documents   prompts.DocumentStore
	Sessions    sessions.Store
	Recommender reports.Recommender
	Clock       application.Clock
	Logger      *zap.Logger
	// OnEvaluation is called after every recorded evaluation (metrics).
	OnEvaluation func()

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu     sync.Mutex
	loaded bool
	r      *tracker.Review
}

// View is the review state returned to the auditor.
type View struct {
	Auditor     string                             `json:"auditor"`
	Selected    *organizations.Organization        `json:"selected,omitempty"`
	Questions   []*questionnaire.Question          `json:"questions"`
	Answers     []*answers.Answer                  `json:"answers"`
	Evaluations map[string]*evaluations.Evaluation `json:"evaluations"`
	Stats       evaluations.Stats                  `json:"stats"`
}

func (s *Service) entryFor(auditor string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		s.entries = map[string]*entry{}
	}
	e, ok := s.entries[auditor]
	if !ok {
		e = &entry{}
		s.entries[auditor] = e
	}
	return e
}

func (s *Service) with(ctx context.Context, auditor string, persist bool, fn func(r *tracker.Review) error) error {
	e := s.entryFor(auditor)
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		r, err := s.load(ctx, auditor)
		if err != nil {
			return err
		}
		e.r, e.loaded = r, true
	}
	before := e.r.Snapshot()
	if err := fn(e.r); err != nil {
		e.r.Restore(before)
		return err
	}
	if !persist {
		return nil
	}
	raw, err := json.Marshal(e.r.Snapshot())
	if err != nil {
		e.r.Restore(before)
		return goerr.Wrap(err, "failed to encode review snapshot")
	}
	if err := s.Sessions.Put(ctx, sessions.ReviewKey(auditor), raw); err != nil {
		e.r.Restore(before)
		return goerr.Wrap(err, "failed to save review snapshot", goerr.V("auditor", auditor))
	}
	return nil
}

// load restores the auditor's last selection. A selected company that
// no longer exists is dropped silently.
func (s *Service) load(ctx context.Context, auditor string) (*tracker.Review, error) {
	r := tracker.NewReview()
	raw, err := s.Sessions.Get(ctx, sessions.ReviewKey(auditor))
	if errors.Is(err, errs.ErrNotFound) {
		return r, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read review snapshot", goerr.V("auditor", auditor))
	}
	var snap tracker.ReviewSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, goerr.Wrap(err, "corrupt review snapshot", goerr.V("auditor", auditor))
	}
	if snap.SelectedID == "" {
		return r, nil
	}
	if err := s.selectInto(ctx, r, snap.SelectedID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return r, nil
		}
		return nil, err
	}
	r.Restore(snap)
	return r, nil
}

// selectInto loads the company data concurrently and selects it.
func (s *Service) selectInto(ctx context.Context, r *tracker.Review, orgID string) error {
	var (
		org *organizations.Organization
		qs  []*questionnaire.Question
		ps  []*questionnaire.Provision
		as  []*answers.Answer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		org, err = s.Orgs.Get(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		qs, err = s.Questions.ListQuestions(gctx)
		return err
	})
	g.Go(func() (err error) {
		ps, err = s.Provisions.ListProvisions(gctx)
		return err
	})
	g.Go(func() (err error) {
		as, err = s.Answers.List(gctx, answers.Filter{OrganizationID: orgID})
		return err
	})
	if err := g.Wait(); err != nil {
		return goerr.Wrap(err, "failed to load company for review", goerr.V("organization_id", orgID))
	}
	r.SelectCompany(org, qs, ps, as)
	return nil
}

func (s *Service) view(auditor string, r *tracker.Review) *View {
	return &View{
		Auditor:     auditor,
		Selected:    r.Selected(),
		Questions:   r.Questions(),
		Answers:     r.Answers(),
		Evaluations: r.Evaluations(),
		Stats:       r.Stats(),
	}
}

//
// ==== USE CASES ====
//

// Companies refreshes and returns the list of reviewable companies.
func (s *Service) Companies(ctx context.Context, auditor string) ([]*organizations.Organization, error) {
	var out []*organizations.Organization
	err := s.with(ctx, auditor, false, func(r *tracker.Review) error {
		list, err := s.Orgs.List(ctx)
		if err != nil {
			return goerr.Wrap(err, "failed to list companies")
		}
		r.SetCompanies(list)
		out = list
		return nil
	})
	return out, err
}

// Select makes orgID the company under review and clears all evaluations.
func (s *Service) Select(ctx context.Context, auditor, orgID string) (*View, error) {
	ctx, span := tracer.Start(ctx, "review.Select")
	defer span.End()
	span.SetAttributes(attribute.String("auditor", auditor), attribute.String("organization_id", orgID))

	var v *View
	err := s.with(ctx, auditor, true, func(r *tracker.Review) error {
		if err := s.selectInto(ctx, r, orgID); err != nil {
			return err
		}
		v = s.view(auditor, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("company selected for review", zap.String("auditor", auditor), zap.String("organization_id", orgID))
	}
	return v, nil
}

// State returns the auditor's current review.
func (s *Service) State(ctx context.Context, auditor string) (*View, error) {
	var v *View
	err := s.with(ctx, auditor, false, func(r *tracker.Review) error {
		v = s.view(auditor, r)
		return nil
	})
	return v, err
}

// EvaluateCommand is one auditor judgment.
type EvaluateCommand struct {
	QuestionID string
	Result     string
	Reason     string
	Notes      string
}

// Evaluate records (or overwrites) the evaluation of one answer and upserts the row.
func (s *Service) Evaluate(ctx context.Context, auditor string, cmd EvaluateCommand) (*evaluations.Evaluation, error) {
	ctx, span := tracer.Start(ctx, "review.Evaluate")
	defer span.End()

	res, ok := evaluations.ParseResult(cmd.Result)
	if !ok {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "result must be pass, fail or pending", goerr.V("result", cmd.Result))
	}
	var out *evaluations.Evaluation
	err := s.with(ctx, auditor, true, func(r *tracker.Review) error {
		e, err := r.RecordEvaluation(evaluations.Evaluation{
			QuestionID:  cmd.QuestionID,
			Result:      res,
			Reason:      cmd.Reason,
			Notes:       cmd.Notes,
			EvaluatedBy: auditor,
			EvaluatedAt: s.Clock.Now(),
		})
		if err != nil {
			return err
		}
		if err := s.Evaluations.Upsert(ctx, e); err != nil {
			return goerr.Wrap(err, "failed to save evaluation",
				goerr.V("organization_id", e.OrganizationID), goerr.V("question_id", e.QuestionID))
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.OnEvaluation != nil {
		s.OnEvaluation()
	}
	return out, nil
}

// Stats of the current review.
func (s *Service) Stats(ctx context.Context, auditor string) (evaluations.Stats, error) {
	var st evaluations.Stats
	err := s.with(ctx, auditor, false, func(r *tracker.Review) error {
		st = r.Stats()
		return nil
	})
	return st, err
}

// Report assembles the compliance report of the selected company from the in-memory evaluations.
func (s *Service) Report(ctx context.Context, auditor string) (*evaluations.ComplianceReport, error) {
	var rep *evaluations.ComplianceReport
	err := s.with(ctx, auditor, false, func(r *tracker.Review) (err error) {
		rep, err = r.Report(s.Recommender, s.Clock.Now())
		return err
	})
	return rep, err
}

// Suggest asks the LLM for a pass/fail proposal on one answer. Nothing is recorded.
func (s *Service) Suggest(ctx context.Context, auditor, questionID string) (*evaluations.Suggestion, error) {
	ctx, span := tracer.Start(ctx, "review.Suggest")
	defer span.End()

	if s.Suggester == nil {
		return nil, goerr.Wrap(errs.ErrBackendUnavailable, "LLM is not configured")
	}

	var in evaluations.SuggestInput
	err := s.with(ctx, auditor, false, func(r *tracker.Review) error {
		if r.Selected() == nil {
			return goerr.Wrap(errs.ErrInvalidInput, "no company selected")
		}
		a, ok := r.Answer(questionID)
		if !ok {
			return goerr.Wrap(errs.ErrNotFound, "no answer to evaluate", goerr.V("question_id", questionID))
		}
		in = evaluations.SuggestInput{QuestionID: questionID, Answer: a.Answer}
		for _, f := range a.EvidenceFiles {
			in.Evidence = append(in.Evidence, f.Filename)
		}
		for _, q := range r.Questions() {
			if q.ID == questionID {
				in.Question = q.Question
				if s.Prompts != nil && len(q.Provisions) > 0 {
					cps, err := s.Prompts.LatestPrompts(ctx, q.Provisions)
					if err != nil {
						return goerr.Wrap(err, "failed to load clause prompts", goerr.V("question_id", questionID))
					}
					for _, cp := range cps {
						in.ClausePrompts = append(in.ClausePrompts, cp.Prompt)
					}
				}
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sug, err := s.Suggester.Suggest(ctx, in)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get evaluation suggestion", goerr.V("question_id", questionID))
	}
	sug.QuestionID = questionID
	return sug, nil
}

// Gaps lists the provisions of the selected company that do not pass yet.
// With an analyst configured every gap also carries remediation advice.
func (s *Service) Gaps(ctx context.Context, auditor string) (*evaluations.GapAnalysis, error) {
	ctx, span := tracer.Start(ctx, "review.Gaps")
	defer span.End()

	var (
		out *evaluations.GapAnalysis
		in  evaluations.GapInput
	)
	err := s.with(ctx, auditor, false, func(r *tracker.Review) (err error) {
		out, err = r.Gaps(s.Clock.Now())
		if err != nil {
			return err
		}
		in = evaluations.GapInput{Analysis: out, Questions: questionContext(r)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.Analyst == nil {
		return out, nil
	}

	advice, err := s.Analyst.AnalyzeGaps(ctx, in)
	if err != nil {
		return nil, goerr.Wrap(err, "gap analysis failed", goerr.V("organization_id", out.Organization.ID))
	}
	out.Apply(advice)
	return out, nil
}

func questionContext(r *tracker.Review) []evaluations.QuestionContext {
	qs := r.Questions()
	out := make([]evaluations.QuestionContext, 0, len(qs))
	for _, q := range qs {
		qc := evaluations.QuestionContext{QuestionID: q.ID, Question: q.Question}
		if a, ok := r.Answer(q.ID); ok {
			qc.Answer = a.Answer
		}
		if e, ok := r.Evaluation(q.ID); ok {
			qc.Result = e.Result
		}
		out = append(out, qc)
	}
	return out
}

// Narrative writes the report of the selected company for one audience.
// The text is kept in the document store when one is configured.
func (s *Service) Narrative(ctx context.Context, auditor string, audience evaluations.Audience) (*evaluations.Narrative, error) {
	ctx, span := tracer.Start(ctx, "review.Narrative")
	defer span.End()
	span.SetAttributes(attribute.String("auditor", auditor), attribute.String("audience", string(audience)))

	parsed, ok := evaluations.ParseAudience(string(audience))
	if !ok {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "audience must be executive, technical or audit", goerr.V("audience", audience))
	}
	audience = parsed
	if s.Analyst == nil {
		return nil, goerr.Wrap(errs.ErrBackendUnavailable, "LLM is not configured")
	}

	now := s.Clock.Now()
	in := evaluations.NarrativeInput{Audience: audience, Auditor: auditor}
	err := s.with(ctx, auditor, false, func(r *tracker.Review) (err error) {
		if in.Report, err = r.Report(s.Recommender, now); err != nil {
			return err
		}
		in.Gaps, err = r.Gaps(now)
		return err
	})
	if err != nil {
		return nil, err
	}

	orgID := in.Report.Organization.ID
	text, err := s.Analyst.Narrate(ctx, in)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to write report narrative", goerr.V("organization_id", orgID), goerr.V("audience", audience))
	}
	n := &evaluations.Narrative{OrganizationID: orgID, Audience: audience, GeneratedAt: now, Content: text}

	if s.Documents != nil {
		key := fmt.Sprintf("reports/%s/%s-%s.md", orgID, audience, now.UTC().Format("20060102T150405Z"))
		url, err := s.Documents.Put(ctx, key, strings.NewReader(text), int64(len(text)), "text/markdown; charset=utf-8")
		if err != nil {
			return nil, goerr.Wrap(err, "failed to store report narrative", goerr.V("key", key))
		}
		n.DocumentURL = url
	}
	if s.Logger != nil {
		s.Logger.Info("report narrative written",
			zap.String("auditor", auditor), zap.String("organization_id", orgID), zap.String("audience", string(audience)))
	}
	return n, nil
}
