// Package bootstrap wires configuration, storage and services together for
// the cnav commands.
package bootstrap

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cnav/internal/application"
	appcatalog "github.com/bryanwahyu/cnav/internal/application/catalog"
	appprompts "github.com/bryanwahyu/cnav/internal/application/prompts"
	appquestionnaire "github.com/bryanwahyu/cnav/internal/application/questionnaire"
	appreports "github.com/bryanwahyu/cnav/internal/application/reports"
	appreview "github.com/bryanwahyu/cnav/internal/application/review"
	"github.com/bryanwahyu/cnav/internal/config"
	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/evaluations"
	"github.com/bryanwahyu/cnav/internal/domain/prompts"
	"github.com/bryanwahyu/cnav/internal/domain/sessions"
	"github.com/bryanwahyu/cnav/internal/infra/db/mysql"
	"github.com/bryanwahyu/cnav/internal/infra/db/postgres"
	"github.com/bryanwahyu/cnav/internal/infra/db/sqlite"
	"github.com/bryanwahyu/cnav/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/cnav/internal/infra/httpserver"
	"github.com/bryanwahyu/cnav/internal/infra/kv/rediskv"
	"github.com/bryanwahyu/cnav/internal/infra/kv/sqlitekv"
	"github.com/bryanwahyu/cnav/internal/middleware"
)

// OpenDatabase connects to the configured driver. Schema is not migrated here.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, sqlstore.Dialect, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysql.Connect(ctx, cfg.MySQLDSN())
		return db, mysql.Dialect, err
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		return db, postgres.Dialect, err
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Database.Path)
		return db, sqlite.Dialect, err
	}
	return nil, sqlstore.Dialect{}, goerr.New("unsupported database driver", goerr.V("driver", cfg.Database.Driver))
}

// OpenSessions opens the session snapshot store. When the main database is the
// same sqlite file, its connection is reused.
func OpenSessions(ctx context.Context, cfg *config.Config, db *sql.DB) (sessions.Store, io.Closer, error) {
	switch cfg.Session.Backend {
	case "redis":
		s, err := rediskv.New(ctx, rediskv.Options{URL: cfg.Session.RedisURL, Prefix: cfg.Session.Prefix})
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case "sqlite":
		if cfg.Database.Driver == "sqlite" && samePath(cfg.Database.Path, cfg.Session.Path) {
			s, err := sqlitekv.New(ctx, db)
			return s, noClose{}, err
		}
		kvdb, err := sqlite.Open(ctx, cfg.Session.Path)
		if err != nil {
			return nil, nil, err
		}
		s, err := sqlitekv.New(ctx, kvdb)
		if err != nil {
			kvdb.Close()
			return nil, nil, err
		}
		return s, kvdb, nil
	}
	return nil, nil, goerr.New("unsupported session backend", goerr.V("backend", cfg.Session.Backend))
}

type noClose struct{}

func (noClose) Close() error { return nil }

func samePath(a, b string) bool {
	if a == ":memory:" || b == ":memory:" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

// Principals indexes configured API keys by key.
func Principals(keys []config.APIKey) map[string]middleware.Principal {
	out := make(map[string]middleware.Principal, len(keys))
	for _, k := range keys {
		out[k.Key] = middleware.Principal{Name: k.Name, Role: k.Role, OrganizationID: k.OrganizationID}
	}
	return out
}

// Deps are the already-opened backends. Evidence, Documents, Generator,
// Suggester and Analyst are optional and must be left nil (not typed-nil) when disabled.
type Deps struct {
	DB          *sql.DB
	Dialect     sqlstore.Dialect
	Sessions    sessions.Store
	Fallback    appcatalog.Source
	Evidence    answers.EvidenceStore
	Documents   prompts.DocumentStore
	Generator   prompts.Generator
	Suggester   evaluations.Suggester
	Analyst     evaluations.Analyst
	Recommender appreports.Recommender
	Logger      *zap.Logger
	Clock       application.Clock
}

// Services builds every use-case on top of d. Domain events feed the /metrics counters.
func Services(d Deps) httpserver.Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = application.SystemClock{}
	}
	qs := sqlstore.NewQuestionnaireRepository(d.DB, d.Dialect)
	orgs := sqlstore.NewOrganizationRepository(d.DB, d.Dialect)
	as := sqlstore.NewAnswerRepository(d.DB, d.Dialect)
	evals := sqlstore.NewEvaluationRepository(d.DB, d.Dialect)
	runs := sqlstore.NewPromptRepository(d.DB, d.Dialect)

	catalog := appcatalog.New(qs, orgs, as, d.Fallback, d.Logger.Named("catalog"), middleware.IncrementFallback, d.Clock)
	read := catalog.Read

	return httpserver.Services{
		Catalog: catalog,
		Questionnaire: &appquestionnaire.Service{
			Questions: read,
			Orgs:      read,
			Answers:   as,
			Evidence:  d.Evidence,
			Sessions:  d.Sessions,
			Clock:     d.Clock,
			Logger:    d.Logger.Named("questionnaire"),
			Hooks: appquestionnaire.Hooks{
				AnswerRecorded: middleware.IncrementAnswers,
				Submitted:      middleware.IncrementSubmissions,
			},
		},
		Review: &appreview.Service{
			Orgs:         read,
			Questions:    read,
			Provisions:   read,
			Answers:      as,
			Evaluations:  evals,
			Prompts:      runs,
			Suggester:    d.Suggester,
			Analyst:      d.Analyst,
			Documents:    d.Documents,
			Sessions:     d.Sessions,
			Recommender:  d.Recommender,
			Clock:        d.Clock,
			Logger:       d.Logger.Named("review"),
			OnEvaluation: middleware.IncrementEvaluations,
		},
		Reports: &appreports.Service{
			Orgs:        read,
			Questions:   read,
			Provisions:  read,
			Evaluations: evals,
			Recommender: d.Recommender,
			Clock:       d.Clock,
		},
		Prompts: &appprompts.Service{
			Questions:   read,
			Provisions:  read,
			Answers:     as,
			Generator:   d.Generator,
			Repo:        runs,
			Documents:   d.Documents,
			Clock:       d.Clock,
			Logger:      d.Logger.Named("prompts"),
			OnGenerated: middleware.IncrementPrompts,
		},
	}
}
