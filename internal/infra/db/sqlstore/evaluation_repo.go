package sqlstore

import (
	"context"
	"database/sql"

	"github.com/m-mizutani/goerr/v2"

	domain "github.com/bryanwahyu/cnav/internal/domain/evaluations"
)

type EvaluationRepository struct{ conn }

var _ domain.Repository = (*EvaluationRepository)(nil)

func NewEvaluationRepository(db *sql.DB, d Dialect) *EvaluationRepository {
	return &EvaluationRepository{conn{db: db, d: d}}
}

const evaluationCols = `organization_id, question_id, answer, result, reason, notes, evaluated_by, evaluated_at`

// Upsert replaces the evaluation of (organization, question). The answer row must exist.
func (r *EvaluationRepository) Upsert(ctx context.Context, e *domain.Evaluation) error {
	q := `INSERT INTO evaluations (` + evaluationCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?) ` +
		r.d.Upsert([]string{"organization_id", "question_id"},
			[]string{"answer", "result", "reason", "notes", "evaluated_by", "evaluated_at"})
	_, err := r.exec(ctx, q, e.OrganizationID, e.QuestionID, e.Answer, string(e.Result), e.Reason, e.Notes,
		e.EvaluatedBy, utc(e.EvaluatedAt))
	return r.d.classify(err, "failed to upsert evaluation",
		goerr.V("organization_id", e.OrganizationID), goerr.V("question_id", e.QuestionID))
}

func (r *EvaluationRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*domain.Evaluation, error) {
	rows, err := r.query(ctx, `SELECT `+evaluationCols+` FROM evaluations WHERE organization_id=? ORDER BY question_id`, organizationID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query evaluations", goerr.V("organization_id", organizationID))
	}
	defer rows.Close()

	var out []*domain.Evaluation
	for rows.Next() {
		var e domain.Evaluation
		var result string
		if err := rows.Scan(&e.OrganizationID, &e.QuestionID, &e.Answer, &result, &e.Reason, &e.Notes,
			&e.EvaluatedBy, &e.EvaluatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan evaluation")
		}
		e.Result = domain.Result(result)
		out = append(out, &e)
	}
	return out, rows.Err()
}
