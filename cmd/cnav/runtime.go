package main

import (
	"context"
	"database/sql"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cnav/internal/bootstrap"
	"github.com/bryanwahyu/cnav/internal/config"
	"github.com/bryanwahyu/cnav/internal/infra/ai/openai"
	"github.com/bryanwahyu/cnav/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/cnav/internal/infra/storage"
	"github.com/bryanwahyu/cnav/internal/logging"
)

// runtime holds what every command needs: config, logger and an open database.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *sql.DB
	dialect sqlstore.Dialect
}

func open(ctx context.Context, c *cli.Command) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	db, dialect, err := bootstrap.OpenDatabase(ctx, cfg)
	if err != nil {
		_ = logger.Sync()
		return nil, goerr.Wrap(err, "failed to open database", goerr.V("driver", cfg.Database.Driver))
	}
	logger.Info("database connected", zap.String("driver", dialect.Name))
	return &runtime{cfg: cfg, logger: logger, db: db, dialect: dialect}, nil
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

func (rt *runtime) storage(ctx context.Context) (*storage.Store, error) {
	if !rt.cfg.MinioEnabled() {
		rt.logger.Warn("minio is not configured; evidence uploads and prompt documents are disabled")
		return nil, nil
	}
	m := rt.cfg.Minio
	return storage.New(ctx, m.Endpoint, m.Region, m.BucketName, m.AccessKey, m.SecretKey, m.UseSSL)
}

func (rt *runtime) llm() *openai.Client {
	if !rt.cfg.OpenAIEnabled() {
		rt.logger.Warn("openai is not configured; prompt generation and suggestions are disabled")
		return nil
	}
	if rt.cfg.OpenAI.BaseURL != "" {
		return openai.NewClientWithBaseURL(rt.cfg.OpenAI.APIKey, rt.cfg.OpenAI.Model, rt.cfg.OpenAI.BaseURL)
	}
	return openai.NewClient(rt.cfg.OpenAI.APIKey, rt.cfg.OpenAI.Model)
}
