package sqlstore

import (
	"context"
	"database/sql"

	"github.com/m-mizutani/goerr/v2"

	domain "github.com/bryanwahyu/cnav/internal/domain/prompts"
)

type PromptRepository struct{ conn }

var _ domain.Repository = (*PromptRepository)(nil)

func NewPromptRepository(db *sql.DB, d Dialect) *PromptRepository {
	return &PromptRepository{conn{db: db, d: d}}
}

const runCols = `id, name, version, status, started_at, completed_at`

func scanRun(sc interface{ Scan(...any) error }) (*domain.Run, error) {
	var run domain.Run
	var status string
	var completed sql.NullTime
	if err := sc.Scan(&run.ID, &run.Name, &run.Version, &status, &run.StartedAt, &completed); err != nil {
		return nil, err
	}
	run.Status = domain.Status(status)
	run.CompletedAt = timePtr(completed)
	return &run, nil
}

// SaveRun inserts or updates a run.
func (r *PromptRepository) SaveRun(ctx context.Context, run *domain.Run) error {
	q := `INSERT INTO prompt_runs (` + runCols + `) VALUES (?, ?, ?, ?, ?, ?) ` +
		r.d.Upsert([]string{"id"}, []string{"status", "completed_at"})
	_, err := r.exec(ctx, q, string(run.ID), run.Name, run.Version, string(run.Status), utc(run.StartedAt), nullTime(run.CompletedAt))
	return r.d.classify(err, "failed to save prompt run", goerr.V("id", run.ID))
}

func (r *PromptRepository) GetRun(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	run, err := scanRun(r.queryRow(ctx, `SELECT `+runCols+` FROM prompt_runs WHERE id=?`, string(id)))
	if err != nil {
		return nil, r.d.classify(err, "failed to get prompt run", goerr.V("id", id))
	}
	return run, nil
}

// ListRuns returns the newest runs first; limit <= 0 means 20.
func (r *PromptRepository) ListRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.query(ctx, `SELECT `+runCols+` FROM prompt_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query prompt runs")
	}
	defer rows.Close()

	var out []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan prompt run")
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

const promptCols = `id, run_id, provision_id, prompt, document_url, created_at`

func (r *PromptRepository) SavePrompt(ctx context.Context, p *domain.ClausePrompt) error {
	_, err := r.exec(ctx, `INSERT INTO clause_prompts (`+promptCols+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, string(p.RunID), p.ProvisionID, p.Prompt, p.DocumentURL, utc(p.CreatedAt))
	return r.d.classify(err, "failed to save clause prompt", goerr.V("run_id", p.RunID), goerr.V("provision_id", p.ProvisionID))
}

func (r *PromptRepository) prompts(ctx context.Context, q string, args ...any) ([]*domain.ClausePrompt, error) {
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query clause prompts")
	}
	defer rows.Close()

	var out []*domain.ClausePrompt
	for rows.Next() {
		var p domain.ClausePrompt
		if err := rows.Scan(&p.ID, &p.RunID, &p.ProvisionID, &p.Prompt, &p.DocumentURL, &p.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan clause prompt")
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *PromptRepository) ListPrompts(ctx context.Context, runID domain.RunID) ([]*domain.ClausePrompt, error) {
	return r.prompts(ctx, `SELECT `+promptCols+` FROM clause_prompts WHERE run_id=? ORDER BY provision_id`, string(runID))
}

func (r *PromptRepository) LatestPrompts(ctx context.Context, provisionIDs []string) ([]*domain.ClausePrompt, error) {
	if len(provisionIDs) == 0 {
		return nil, nil
	}
	all, err := r.prompts(ctx, `SELECT cp.id, cp.run_id, cp.provision_id, cp.prompt, cp.document_url, cp.created_at
 FROM clause_prompts cp JOIN prompt_runs pr ON pr.id = cp.run_id
 WHERE pr.status = ? AND cp.provision_id IN (`+placeholders(len(provisionIDs))+`)
 ORDER BY cp.created_at DESC, cp.id DESC`, append([]any{string(domain.StatusCompleted)}, anys(provisionIDs)...)...)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []*domain.ClausePrompt
	for _, p := range all {
		if seen[p.ProvisionID] {
			continue
		}
		seen[p.ProvisionID] = true
		out = append(out, p)
	}
	return out, nil
}
