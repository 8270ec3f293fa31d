package main

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/bryanwahyu/cnav/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/cnav/internal/infra/fallback"
)

func cmdMigrate() *cli.Command {
	var seed bool

	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the database schema",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "seed",
				Usage:       "load the sample questions, provisions and organizations",
				Destination: &seed,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			rt, err := open(ctx, c)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := sqlstore.Migrate(ctx, rt.db, rt.dialect); err != nil {
				return err
			}
			rt.logger.Info("schema migrated", zap.String("driver", rt.dialect.Name))

			if !seed {
				return nil
			}
			ds, err := fallback.Sample()
			if err != nil {
				return goerr.Wrap(err, "failed to load sample dataset")
			}
			res, err := ds.Seed(ctx, sqlstore.NewQuestionnaireRepository(rt.db, rt.dialect),
				sqlstore.NewOrganizationRepository(rt.db, rt.dialect))
			if err != nil {
				return err
			}
			rt.logger.Info("sample dataset seeded",
				zap.Int("provisions", res.Provisions),
				zap.Int("questions", res.Questions),
				zap.Int("organizations", res.Organizations))
			return nil
		},
	}
}
