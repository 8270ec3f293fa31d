package prompts

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/cnav/internal/application"
	"github.com/bryanwahyu/cnav/internal/domain/answers"
	domain "github.com/bryanwahyu/cnav/internal/domain/prompts"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

var tracer = otel.Tracer("github.com/bryanwahyu/cnav/internal/application/prompts")

const defaultConcurrency = 4

type Service struct {
	Questions  questionnaire.QuestionReader
	Provisions questionnaire.ProvisionReader
	Answers    answers.Repository
	Generator  domain.Generator
	Repo       domain.Repository
	Documents  domain.DocumentStore
	Clock      application.Clock
	Logger     *zap.Logger
	// OnGenerated dipanggil tiap prompt berhasil dibuat (metrics)
	OnGenerated func()
}

// Options for one generation run.
type Options struct {
	Name    string
	Version string
	// OrganizationID adds that company's answers to the user prompt.
	OrganizationID string
	// ProvisionIDs limits the run; empty means every provision.
	ProvisionIDs []string
	Concurrency  int
}

// Result of a run. Failed maps provision id to its error message.
type Result struct {
	Run     *domain.Run            `json:"run"`
	Prompts []*domain.ClausePrompt `json:"prompts"`
	Failed  map[string]string      `json:"failed,omitempty"`
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Generate creates a run and produces one evaluation prompt per provision.
// A provision that fails does not stop the others; the run is then marked failed.
func (s *Service) Generate(ctx context.Context, opts Options) (*Result, error) {
	ctx, span := tracer.Start(ctx, "prompts.Generate")
	defer span.End()

	if s.Generator == nil {
		return nil, goerr.New("prompt generator is not configured")
	}

	inputs, err := s.inputs(ctx, opts)
	if err != nil {
		return nil, err
	}

	started := s.Clock.Now()
	run := &domain.Run{
		ID:        domain.RunID(uuid.NewString()),
		Name:      opts.Name,
		Version:   opts.Version,
		Status:    domain.StatusRunning,
		StartedAt: started,
	}
	if run.Name == "" {
		run.Name = "prompt-run-" + started.UTC().Format("20060102150405")
	}
	if err := s.Repo.SaveRun(ctx, run); err != nil {
		return nil, goerr.Wrap(err, "failed to create prompt run")
	}
	span.SetAttributes(attribute.String("run_id", string(run.ID)), attribute.Int("provisions", len(inputs)))
	s.log().Info("prompt run started", zap.String("run_id", string(run.ID)), zap.Int("provisions", len(inputs)))

	limit := opts.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	prefix := "prompts/" + started.UTC().Format("20060102150405")

	var (
		mu     sync.Mutex
		out    []*domain.ClausePrompt
		failed = map[string]string{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, in := range inputs {
		g.Go(func() error {
			cp, err := s.generateOne(gctx, run.ID, prefix, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// satu provision gagal tidak menghentikan yang lain
				s.log().Warn("prompt generation failed", zap.String("run_id", string(run.ID)),
					zap.String("provision_id", in.ProvisionID), zap.Error(err))
				failed[in.ProvisionID] = err.Error()
				return nil
			}
			out = append(out, cp)
			return nil
		})
	}
	_ = g.Wait()

	done := s.Clock.Now()
	run.CompletedAt = &done
	run.Status = domain.StatusCompleted
	if len(failed) > 0 {
		run.Status = domain.StatusFailed
	}
	if err := s.Repo.SaveRun(ctx, run); err != nil {
		return nil, goerr.Wrap(err, "failed to finish prompt run", goerr.V("run_id", run.ID))
	}
	s.log().Info("prompt run finished", zap.String("run_id", string(run.ID)),
		zap.String("status", string(run.Status)), zap.Int("generated", len(out)), zap.Int("failed", len(failed)))

	res := &Result{Run: run, Prompts: out}
	if len(failed) > 0 {
		res.Failed = failed
	}
	return res, nil
}

func (s *Service) generateOne(ctx context.Context, runID domain.RunID, prefix string, in domain.ClauseInput) (*domain.ClausePrompt, error) {
	text, err := s.Generator.GeneratePrompt(ctx, in)
	if err != nil {
		return nil, err
	}
	cp := &domain.ClausePrompt{
		ID:          uuid.NewString(),
		RunID:       runID,
		ProvisionID: in.ProvisionID,
		Prompt:      text,
		CreatedAt:   s.Clock.Now(),
	}
	if s.Documents != nil {
		doc := domain.Document(in, text)
		key := fmt.Sprintf("%s/%s.md", prefix, domain.SnakeCase(in.ProvisionID))
		url, err := s.Documents.Put(ctx, key, strings.NewReader(doc), int64(len(doc)), "text/markdown; charset=utf-8")
		if err != nil {
			return nil, goerr.Wrap(err, "failed to upload prompt document", goerr.V("key", key))
		}
		cp.DocumentURL = url
	}
	if err := s.Repo.SavePrompt(ctx, cp); err != nil {
		return nil, goerr.Wrap(err, "failed to save clause prompt")
	}
	if s.OnGenerated != nil {
		s.OnGenerated()
	}
	return cp, nil
}

// inputs joins provisions with the questions that test them and, optionally, one company's answers.
func (s *Service) inputs(ctx context.Context, opts Options) ([]domain.ClauseInput, error) {
	var (
		ps    []*questionnaire.Provision
		qs    []*questionnaire.Question
		given []*answers.Answer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ps, err = s.Provisions.ListProvisions(gctx)
		return err
	})
	g.Go(func() (err error) {
		qs, err = s.Questions.ListQuestions(gctx)
		return err
	})
	if opts.OrganizationID != "" {
		g.Go(func() (err error) {
			given, err = s.Answers.List(gctx, answers.Filter{OrganizationID: opts.OrganizationID})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to load catalog for prompt generation")
	}

	byID := make(map[string]*questionnaire.Question, len(qs))
	byProvision := map[string][]string{}
	for _, q := range qs {
		byID[q.ID] = q
		for _, pid := range q.Provisions {
			byProvision[pid] = append(byProvision[pid], q.ID)
		}
	}
	answerOf := make(map[string]string, len(given))
	for _, a := range given {
		answerOf[a.QuestionID] = a.Answer
	}
	want := map[string]bool{}
	for _, id := range opts.ProvisionIDs {
		want[id] = true
	}

	var out []domain.ClauseInput
	for _, p := range ps {
		if len(want) > 0 && !want[p.ID] {
			continue
		}
		qids := p.Questions
		if len(qids) == 0 {
			qids = byProvision[p.ID]
		}
		in := domain.ClauseInput{
			ClauseID:           p.Clause,
			ProvisionID:        p.ID,
			Provision:          p.Provision,
			Keywords:           p.Keywords,
			SuggestedArtefacts: p.SuggestedArtefacts,
		}
		if in.ClauseID == "" {
			in.ClauseID = p.Subsection
		}
		for _, qid := range qids {
			q, ok := byID[qid]
			if !ok {
				continue
			}
			in.Questions = append(in.Questions, domain.QuestionAnswer{QuestionID: q.ID, Question: q.Question, Answer: answerOf[q.ID]})
		}
		out = append(out, in)
	}
	return out, nil
}

// Runs lists recent runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]*domain.Run, error) {
	return s.Repo.ListRuns(ctx, limit)
}

// RunPrompts returns the prompts of one run.
func (s *Service) RunPrompts(ctx context.Context, id domain.RunID) ([]*domain.ClausePrompt, error) {
	if _, err := s.Repo.GetRun(ctx, id); err != nil {
		return nil, err
	}
	return s.Repo.ListPrompts(ctx, id)
}
