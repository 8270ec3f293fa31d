package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	appcatalog "github.com/bryanwahyu/cnav/internal/application/catalog"
	appprompts "github.com/bryanwahyu/cnav/internal/application/prompts"
	appquestionnaire "github.com/bryanwahyu/cnav/internal/application/questionnaire"
	appreports "github.com/bryanwahyu/cnav/internal/application/reports"
	appreview "github.com/bryanwahyu/cnav/internal/application/review"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/logging"
	"github.com/bryanwahyu/cnav/internal/middleware"
)

// Services are the use-cases behind the API.
type Services struct {
	Catalog       *appcatalog.Service
	Questionnaire *appquestionnaire.Service
	Review        *appreview.Service
	Reports       *appreports.Service
	Prompts       *appprompts.Service
}

// Options configures the outer HTTP layer.
type Options struct {
	Logger      *zap.Logger
	Keys        map[string]middleware.Principal
	CORSOrigins []string
	// RateLimit is requests per minute per principal and address; 0 disables it.
	RateLimit             int
	LegacyProvisionRoutes bool
	Health                map[string]middleware.HealthChecker
	// MaxUploadBytes caps evidence uploads (default 32 MiB).
	MaxUploadBytes int64
}

type Router struct {
	svc       Services
	logger    *zap.Logger
	maxUpload int64
}

// NewRouter mounts every endpoint under /api/v1. ctx bounds background work (rate-limit cleanup).
func NewRouter(ctx context.Context, svc Services, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{svc: svc, logger: logger, maxUpload: opts.MaxUploadBytes}
	if r.maxUpload <= 0 {
		r.maxUpload = 32 << 20
	}

	mux := chi.NewRouter()
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(opts.Keys))
	mux.Use(middleware.LoggingMiddleware(logger))
	if opts.RateLimit > 0 {
		capacity, refill := middleware.PerMinute(opts.RateLimit)
		mux.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(ctx, capacity, refill)))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.ReadinessHandler(opts.Health))
	mux.Get("/metrics", middleware.MetricsHandler)

	admin := middleware.RequireRole()
	auditor := middleware.RequireRole(middleware.RoleAuditor)
	company := middleware.RequireRole(middleware.RoleCompany)
	anyone := middleware.RequireRole(middleware.RoleCompany, middleware.RoleAuditor)
	ownOrg := middleware.RequireOwnOrganization("id")

	mux.Route("/api/v1", func(rt chi.Router) {
		rt.With(anyone).Get("/questions", r.wrap(r.handleListQuestions))
		rt.With(admin).Post("/questions", r.wrap(r.handleCreateQuestion))
		rt.With(anyone).Get("/questions/{id}", r.wrap(r.handleGetQuestion))
		rt.With(admin).Put("/questions/{id}", r.wrap(r.handleUpdateQuestion))
		rt.With(admin).Delete("/questions/{id}", r.wrap(r.handleDeleteQuestion))
		rt.With(anyone).Get("/questions/{id}/provisions", r.wrap(r.handleProvisionsOfQuestion))

		provisions := func(prefix string) {
			rt.With(anyone).Get(prefix, r.wrap(r.handleListProvisions))
			rt.With(admin).Post(prefix, r.wrap(r.handleCreateProvision))
			rt.With(anyone).Get(prefix+"/{id}", r.wrap(r.handleGetProvision))
			rt.With(admin).Put(prefix+"/{id}", r.wrap(r.handleUpdateProvision))
			rt.With(admin).Delete(prefix+"/{id}", r.wrap(r.handleDeleteProvision))
			rt.With(anyone).Get(prefix+"/{id}/questions", r.wrap(r.handleQuestionsOfProvision))
		}
		provisions("/provisions")
		if opts.LegacyProvisionRoutes {
			// old clients still call the doubled segment
			provisions("/provisions/provisions")
		}

		rt.With(admin).Post("/mappings", r.wrap(r.handleCreateMapping))
		rt.With(admin).Delete("/mappings", r.wrap(r.handleDeleteMapping))
		rt.With(anyone).Get("/analytics/mapping-stats", r.wrap(r.handleMappingStats))

		rt.With(auditor).Get("/organizations", r.wrap(r.handleListOrganizations))
		rt.With(company).Post("/organizations", r.wrap(r.handleCreateOrganization))
		rt.With(auditor).Get("/organizations/search/by-name/{pattern}", r.wrap(r.handleSearchByName))
		rt.With(auditor).Get("/organizations/search/by-employee-count/{min}/{max}", r.wrap(r.handleSearchByEmployeeCount))
		rt.With(anyone, ownOrg).Get("/organizations/{id}", r.wrap(r.handleGetOrganization))
		rt.With(company, ownOrg).Put("/organizations/{id}", r.wrap(r.handleUpdateOrganization))
		rt.With(admin).Delete("/organizations/{id}", r.wrap(r.handleDeleteOrganization))
		rt.With(anyone, ownOrg).Get("/organizations/{id}/report", r.wrap(r.handleOrganizationReport))

		rt.Route("/organizations/{id}/questionnaire", func(rt chi.Router) {
			rt.Use(company, ownOrg)
			rt.Get("/", r.wrap(r.handleQuestionnaire))
			rt.Put("/answers/{questionID}", r.wrap(r.handleRecordAnswer))
			rt.Post("/answers/{questionID}/evidence", r.wrap(r.handleAttachEvidence))
			rt.Post("/cursor", r.wrap(r.handleMoveCursor))
			rt.Post("/submit", r.wrap(r.handleSubmit))
		})

		rt.With(auditor).Get("/answers", r.wrap(r.handleListAnswers))
		rt.With(auditor).Get("/answers/by-question/{questionID}", r.wrap(r.handleAnswersByQuestion))
		rt.With(anyone, ownOrg).Get("/answers/by-organization/{id}", r.wrap(r.handleAnswersByOrganization))
		rt.With(auditor).Get("/answers/{answerID}", r.wrap(r.handleGetAnswer))
		rt.With(admin).Delete("/answers/{answerID}", r.wrap(r.handleDeleteAnswer))

		rt.Route("/review", func(rt chi.Router) {
			rt.Use(auditor)
			rt.Get("/", r.wrap(r.handleReview))
			rt.Get("/companies", r.wrap(r.handleReviewCompanies))
			rt.Post("/select", r.wrap(r.handleReviewSelect))
			rt.Put("/evaluations/{questionID}", r.wrap(r.handleEvaluate))
			rt.Post("/evaluations/{questionID}/suggest", r.wrap(r.handleSuggest))
			rt.Get("/stats", r.wrap(r.handleReviewStats))
			rt.Get("/report", r.wrap(r.handleReviewReport))
			rt.Get("/gaps", r.wrap(r.handleReviewGaps))
			rt.Post("/narrative", r.wrap(r.handleReviewNarrative))
		})

		rt.With(auditor).Get("/prompt-runs", r.wrap(r.handleListPromptRuns))
		rt.With(auditor).Get("/prompt-runs/{id}/prompts", r.wrap(r.handleRunPrompts))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errs.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusOf(err)
		fields := append([]zap.Field{zap.String("method", req.Method), zap.String("path", req.URL.Path),
			zap.Int("status", status)}, logging.ErrorFields(err)...)

		msg := err.Error()
		if status == http.StatusInternalServerError {
			r.logger.Error("request failed", fields...)
			msg = "internal server error"
		} else {
			r.logger.Warn("request rejected", fields...)
		}
		writeJSON(w, status, map[string]string{"error": msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, v any) error {
	writeJSON(w, http.StatusOK, v)
	return nil
}

func created(w http.ResponseWriter, v any) error {
	writeJSON(w, http.StatusCreated, v)
	return nil
}

func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return goerr.Wrap(errs.ErrInvalidInput, "invalid JSON body", goerr.V("error", err.Error()))
	}
	return nil
}

func pathID(req *http.Request, name string) (string, error) {
	id := chi.URLParam(req, name)
	if err := middleware.ValidateID(id); err != nil {
		return "", err
	}
	return id, nil
}

func pathInt(req *http.Request, name string) (int, error) {
	raw := chi.URLParam(req, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, goerr.Wrap(errs.ErrInvalidInput, name+" must be an integer", goerr.V(name, raw))
	}
	return n, nil
}

func principal(req *http.Request) middleware.Principal {
	p, _ := middleware.PrincipalFrom(req.Context())
	return p
}
