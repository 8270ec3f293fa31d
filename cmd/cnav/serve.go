package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cnav/internal/application"
	"github.com/bryanwahyu/cnav/internal/application/reports"
	"github.com/bryanwahyu/cnav/internal/bootstrap"
	"github.com/bryanwahyu/cnav/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/cnav/internal/infra/fallback"
	"github.com/bryanwahyu/cnav/internal/infra/httpserver"
	"github.com/bryanwahyu/cnav/internal/middleware"
)

func cmdServe() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Run the HTTP API",
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := open(ctx, c)
			if err != nil {
				return err
			}
			defer rt.Close()
			return serve(ctx, rt)
		},
	}
}

func serve(ctx context.Context, rt *runtime) error {
	cfg, logger := rt.cfg, rt.logger

	if err := sqlstore.Migrate(ctx, rt.db, rt.dialect); err != nil {
		return err
	}

	sessions, closer, err := bootstrap.OpenSessions(ctx, cfg, rt.db)
	if err != nil {
		return goerr.Wrap(err, "failed to open session store", goerr.V("backend", cfg.Session.Backend))
	}
	defer closer.Close()

	ds, err := fallback.Sample()
	if err != nil {
		return goerr.Wrap(err, "failed to load sample dataset")
	}
	rec, err := reports.NewCELRecommender(cfg.Report.Recommendation)
	if err != nil {
		return err
	}

	deps := bootstrap.Deps{
		DB:          rt.db,
		Dialect:     rt.dialect,
		Sessions:    sessions,
		Fallback:    ds,
		Recommender: rec,
		Logger:      logger,
		Clock:       application.SystemClock{},
	}
	store, err := rt.storage(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		deps.Evidence, deps.Documents = store, store
	}
	if llm := rt.llm(); llm != nil {
		deps.Generator, deps.Suggester, deps.Analyst = llm, llm, llm
	}

	if len(cfg.Auth.Keys) == 0 {
		logger.Warn("no API keys configured; every request runs as admin")
	}
	handler := httpserver.NewRouter(ctx, bootstrap.Services(deps), httpserver.Options{
		Logger:                logger.Named("http"),
		Keys:                  bootstrap.Principals(cfg.Auth.Keys),
		CORSOrigins:           cfg.Server.CORSOrigins,
		RateLimit:             cfg.Server.RateLimit,
		LegacyProvisionRoutes: cfg.Server.LegacyProvisionRoutes,
		Health: map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: rt.db},
			"session":  middleware.CheckFunc(sessions.Ping),
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // suggestions wait on the LLM
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// graceful shutdown
	select {
	case err := <-errCh:
		if err != nil {
			return goerr.Wrap(err, "server error", goerr.V("addr", addr))
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}
