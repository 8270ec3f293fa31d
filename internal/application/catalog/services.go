package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cnav/internal/application"
	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/pagination"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

var tracer = otel.Tracer("github.com/bryanwahyu/cnav/internal/application/catalog")

// Service implements the catalog use-cases: questions, provisions, mappings,
// organizations and answer lookups. Reads go through Read (with fallback),
// writes go straight to the repositories.
type Service struct {
	Questions questionnaire.Repository
	Orgs      organizations.Repository
	Answers   answers.Repository
	Read      *Reader
	Clock     application.Clock
}

type (
	questionRepository     = questionnaire.Repository
	organizationRepository = organizations.Repository
)

type repos struct {
	questionRepository
	organizationRepository
}

// New wires a Service whose reads fall back to fallback on backend failure.
func New(qs questionnaire.Repository, orgs organizations.Repository, as answers.Repository,
	fallback Source, logger *zap.Logger, onFallback func(op string), clock application.Clock) *Service {
	return &Service{
		Questions: qs,
		Orgs:      orgs,
		Answers:   as,
		Read: &Reader{
			Primary:    repos{qs, orgs},
			Fallback:   fallback,
			Logger:     logger,
			OnFallback: onFallback,
		},
		Clock: clock,
	}
}

//
// ==== QUESTIONS ====
//

func (s *Service) ListQuestions(ctx context.Context, page pagination.Page) ([]*questionnaire.Question, error) {
	ctx, span := tracer.Start(ctx, "catalog.ListQuestions")
	defer span.End()

	qs, err := s.Read.ListQuestions(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list questions")
	}
	return pagination.Apply(qs, page)
}

func (s *Service) GetQuestion(ctx context.Context, id string) (*questionnaire.Question, error) {
	return s.Read.GetQuestion(ctx, id)
}

// ProvisionsOfQuestion returns the provisions mapped to question id.
func (s *Service) ProvisionsOfQuestion(ctx context.Context, id string) ([]*questionnaire.Provision, error) {
	q, err := s.Read.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]*questionnaire.Provision, 0, len(q.Provisions))
	for _, pid := range q.Provisions {
		p, err := s.Read.GetProvision(ctx, pid)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load mapped provision",
				goerr.V("question_id", id), goerr.V("provision_id", pid))
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) CreateQuestion(ctx context.Context, q *questionnaire.Question) error {
	if strings.TrimSpace(q.ID) == "" || strings.TrimSpace(q.Question) == "" {
		return goerr.Wrap(errs.ErrInvalidInput, "question id and text are required")
	}
	now := s.Clock.Now()
	q.CreatedAt, q.UpdatedAt = now, now
	return s.Questions.CreateQuestion(ctx, q)
}

// UpdateQuestion replaces the editable fields of an existing question. Mappings are not touched.
func (s *Service) UpdateQuestion(ctx context.Context, id string, in *questionnaire.Question) (*questionnaire.Question, error) {
	q, err := s.Questions.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Question) != "" {
		q.Question = in.Question
	}
	if in.Audience != nil {
		q.Audience = in.Audience
	}
	if in.CyberEssentialsRequirement != "" {
		q.CyberEssentialsRequirement = in.CyberEssentialsRequirement
	}
	if in.GroupTag != "" {
		q.GroupTag = in.GroupTag
	}
	q.UpdatedAt = s.Clock.Now()
	if err := s.Questions.SaveQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) DeleteQuestion(ctx context.Context, id string) error {
	return s.Questions.DeleteQuestion(ctx, id)
}

//
// ==== PROVISIONS ====
//

func (s *Service) ListProvisions(ctx context.Context, page pagination.Page) ([]*questionnaire.Provision, error) {
	ctx, span := tracer.Start(ctx, "catalog.ListProvisions")
	defer span.End()

	ps, err := s.Read.ListProvisions(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list provisions")
	}
	return pagination.Apply(ps, page)
}

func (s *Service) GetProvision(ctx context.Context, id string) (*questionnaire.Provision, error) {
	return s.Read.GetProvision(ctx, id)
}

// QuestionsOfProvision returns the questions mapped to provision id.
func (s *Service) QuestionsOfProvision(ctx context.Context, id string) ([]*questionnaire.Question, error) {
	p, err := s.Read.GetProvision(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]*questionnaire.Question, 0, len(p.Questions))
	for _, qid := range p.Questions {
		q, err := s.Read.GetQuestion(ctx, qid)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to load mapped question",
				goerr.V("provision_id", id), goerr.V("question_id", qid))
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *Service) CreateProvision(ctx context.Context, p *questionnaire.Provision) error {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Provision) == "" {
		return goerr.Wrap(errs.ErrInvalidInput, "provision id and text are required")
	}
	now := s.Clock.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	return s.Questions.CreateProvision(ctx, p)
}

func (s *Service) UpdateProvision(ctx context.Context, id string, in *questionnaire.Provision) (*questionnaire.Provision, error) {
	p, err := s.Questions.GetProvision(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Section != "" {
		p.Section = in.Section
	}
	if in.Subsection != "" {
		p.Subsection = in.Subsection
	}
	if in.Clause != "" {
		p.Clause = in.Clause
	}
	if in.Subclause != "" {
		p.Subclause = in.Subclause
	}
	if strings.TrimSpace(in.Provision) != "" {
		p.Provision = in.Provision
	}
	if in.Keywords != nil {
		p.Keywords = in.Keywords
	}
	if in.SuggestedArtefacts != "" {
		p.SuggestedArtefacts = in.SuggestedArtefacts
	}
	p.UpdatedAt = s.Clock.Now()
	if err := s.Questions.SaveProvision(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeleteProvision(ctx context.Context, id string) error {
	return s.Questions.DeleteProvision(ctx, id)
}

//
// ==== MAPPINGS ====
//

// CreateMapping links a question to a provision; both must exist.
func (s *Service) CreateMapping(ctx context.Context, questionID, provisionID string) (*questionnaire.Mapping, error) {
	if _, err := s.Questions.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	if _, err := s.Questions.GetProvision(ctx, provisionID); err != nil {
		return nil, err
	}
	if err := s.Questions.CreateMapping(ctx, questionID, provisionID); err != nil {
		return nil, err
	}
	return &questionnaire.Mapping{QuestionID: questionID, ProvisionID: provisionID, CreatedAt: s.Clock.Now()}, nil
}

func (s *Service) DeleteMapping(ctx context.Context, questionID, provisionID string) error {
	return s.Questions.DeleteMapping(ctx, questionID, provisionID)
}

func (s *Service) MappingStats(ctx context.Context) (questionnaire.MappingStats, error) {
	qs, err := s.Read.ListQuestions(ctx)
	if err != nil {
		return questionnaire.MappingStats{}, err
	}
	ps, err := s.Read.ListProvisions(ctx)
	if err != nil {
		return questionnaire.MappingStats{}, err
	}
	return questionnaire.ComputeMappingStats(qs, ps), nil
}

//
// ==== ORGANIZATIONS ====
//

func (s *Service) ListOrganizations(ctx context.Context, page pagination.Page) ([]*organizations.Organization, error) {
	ctx, span := tracer.Start(ctx, "catalog.ListOrganizations")
	defer span.End()

	list, err := s.Read.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list organizations")
	}
	return pagination.Apply(list, page)
}

func (s *Service) GetOrganization(ctx context.Context, id string) (*organizations.Organization, error) {
	return s.Read.Get(ctx, id)
}

func (s *Service) SearchOrganizationsByName(ctx context.Context, pattern string, page pagination.Page) ([]*organizations.Organization, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "empty search pattern")
	}
	list, err := s.Read.SearchByName(ctx, pattern)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search organizations", goerr.V("pattern", pattern))
	}
	return pagination.Apply(list, page)
}

func (s *Service) SearchOrganizationsByEmployeeCount(ctx context.Context, min, max int, page pagination.Page) ([]*organizations.Organization, error) {
	if min < 0 || min > max {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "invalid employee count range",
			goerr.V("min", min), goerr.V("max", max))
	}
	list, err := s.Read.SearchByEmployeeCount(ctx, min, max)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search organizations", goerr.V("min", min), goerr.V("max", max))
	}
	return pagination.Apply(list, page)
}

// CreateOrganization registers a company. An empty id gets a fresh uuid.
func (s *Service) CreateOrganization(ctx context.Context, o *organizations.Organization) error {
	if strings.TrimSpace(o.Name) == "" {
		return goerr.Wrap(errs.ErrInvalidInput, "organisation_name is required")
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := s.Clock.Now()
	o.CreatedAt, o.UpdatedAt = now, now
	return s.Orgs.Create(ctx, o)
}

func (s *Service) UpdateOrganization(ctx context.Context, id string, p organizations.Patch) (*organizations.Organization, error) {
	o, err := s.Orgs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Apply(o)
	if strings.TrimSpace(o.Name) == "" {
		return nil, goerr.Wrap(errs.ErrInvalidInput, "organisation_name cannot be empty")
	}
	o.UpdatedAt = s.Clock.Now()
	if err := s.Orgs.Save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) DeleteOrganization(ctx context.Context, id string) error {
	return s.Orgs.Delete(ctx, id)
}

//
// ==== ANSWERS ====
//

func (s *Service) ListAnswers(ctx context.Context, f answers.Filter, page pagination.Page) ([]*answers.Answer, error) {
	as, err := s.Answers.List(ctx, f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list answers")
	}
	return pagination.Apply(as, page)
}

func (s *Service) GetAnswer(ctx context.Context, id answers.AnswerID) (*answers.Answer, error) {
	return s.Answers.Get(ctx, id)
}

func (s *Service) DeleteAnswer(ctx context.Context, id answers.AnswerID) error {
	return s.Answers.Delete(ctx, id)
}
