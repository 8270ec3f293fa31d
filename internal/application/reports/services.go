package reports

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/cnav/internal/application"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

var tracer = otel.Tracer("github.com/bryanwahyu/cnav/internal/application/reports")

// Service builds reports from persisted evaluations.
type Service struct {
	Orgs        organizations.Reader
	Questions   questionnaire.QuestionReader
	Provisions  questionnaire.ProvisionReader
	Evaluations evaluations.Repository
	Recommender Recommender
	Clock       application.Clock
}

// Build loads everything for orgID and assembles the report.
func (s *Service) Build(ctx context.Context, orgID string) (*evaluations.ComplianceReport, error) {
	ctx, span := tracer.Start(ctx, "reports.Build")
	defer span.End()
	span.SetAttributes(attribute.String("organization_id", orgID))

	org, err := s.Orgs.Get(ctx, orgID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load organization", goerr.V("organization_id", orgID))
	}

	var (
		qs    []*questionnaire.Question
		ps    []*questionnaire.Provision
		evals []*evaluations.Evaluation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		qs, err = s.Questions.ListQuestions(gctx)
		return err
	})
	g.Go(func() (err error) {
		ps, err = s.Provisions.ListProvisions(gctx)
		return err
	})
	g.Go(func() (err error) {
		evals, err = s.Evaluations.ListByOrganization(gctx, orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to load report data", goerr.V("organization_id", orgID))
	}

	byQuestion := make(map[string]*evaluations.Evaluation, len(evals))
	for _, e := range evals {
		byQuestion[e.QuestionID] = e
	}
	return Assemble(org, qs, ps, byQuestion, s.Recommender, s.Clock.Now())
}
