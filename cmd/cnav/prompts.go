package main

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	appprompts "github.com/bryanwahyu/cnav/internal/application/prompts"
	"github.com/bryanwahyu/cnav/internal/bootstrap"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/cnav/internal/infra/fallback"
)

func cmdGeneratePrompts() *cli.Command {
	return &cli.Command{
		Name:  "generate-prompts",
		Usage: "Generate an evaluation prompt for every provision with the LLM",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "run name (default prompt-run-<timestamp>)"},
			&cli.StringFlag{Name: "run-version", Usage: "free-form version label stored on the run"},
			&cli.StringFlag{Name: "org", Usage: "include this organization's answers in the prompts"},
			&cli.StringSliceFlag{Name: "provision", Usage: "limit the run to these provision ids (repeatable)"},
			&cli.IntFlag{Name: "concurrency", Usage: "parallel LLM calls", Value: 4},
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
			llm := rt.llm()
			if llm == nil {
				return goerr.Wrap(errs.ErrBackendUnavailable, "openai.apiKey is required for prompt generation")
			}
			ds, err := fallback.Sample()
			if err != nil {
				return goerr.Wrap(err, "failed to load sample dataset")
			}

			deps := bootstrap.Deps{DB: rt.db, Dialect: rt.dialect, Fallback: ds, Generator: llm, Logger: rt.logger}
			store, err := rt.storage(ctx)
			if err != nil {
				return err
			}
			if store != nil {
				deps.Documents = store
			}
			svc := bootstrap.Services(deps).Prompts

			res, err := svc.Generate(ctx, appprompts.Options{
				Name:           c.String("name"),
				Version:        c.String("run-version"),
				OrganizationID: c.String("org"),
				ProvisionIDs:   c.StringSlice("provision"),
				Concurrency:    int(c.Int("concurrency")),
			})
			if err != nil {
				return err
			}

			for _, p := range res.Prompts {
				fmt.Fprintf(os.Stdout, "%s\t%s\n", p.ProvisionID, p.DocumentURL)
			}
			for id, reason := range res.Failed {
				fmt.Fprintf(os.Stderr, "%s\tFAILED: %s\n", id, reason)
			}
			if len(res.Failed) > 0 {
				return goerr.New("some provisions failed", goerr.V("failed", len(res.Failed)), goerr.V("run_id", res.Run.ID))
			}
			return nil
		},
	}
}
