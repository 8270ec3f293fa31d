package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	domain "github.com/bryanwahyu/cnav/internal/domain/answers"
)

type AnswerRepository struct{ conn }

var _ domain.Repository = (*AnswerRepository)(nil)

func NewAnswerRepository(db *sql.DB, d Dialect) *AnswerRepository {
	return &AnswerRepository{conn{db: db, d: d}}
}

const answerCols = `id, organization_id, question_id, answer, evidence_files, submitted_at, updated_at`

func scanAnswer(sc interface{ Scan(...any) error }) (*domain.Answer, error) {
	var a domain.Answer
	var files string
	if err := sc.Scan(&a.ID, &a.OrganizationID, &a.QuestionID, &a.Answer, &files, &a.SubmittedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	f, err := decodeList[domain.EvidenceFile](files)
	if err != nil {
		return nil, err
	}
	a.EvidenceFiles = f
	return &a, nil
}

// Upsert writes the answer for (organization, question). The first id and
// submitted_at are kept on overwrite and copied back into a.
func (r *AnswerRepository) Upsert(ctx context.Context, a *domain.Answer) error {
	if a.ID == "" {
		a.ID = domain.AnswerID(uuid.NewString())
	}
	q := `INSERT INTO answers (` + answerCols + `) VALUES (?, ?, ?, ?, ?, ?, ?) ` +
		r.d.Upsert([]string{"organization_id", "question_id"}, []string{"answer", "evidence_files", "updated_at"})
	_, err := r.exec(ctx, q, string(a.ID), a.OrganizationID, a.QuestionID, a.Answer, encodeList(a.EvidenceFiles),
		utc(a.SubmittedAt), utc(a.UpdatedAt))
	if err != nil {
		return r.d.classify(err, "failed to upsert answer",
			goerr.V("organization_id", a.OrganizationID), goerr.V("question_id", a.QuestionID))
	}
	err = r.queryRow(ctx, `SELECT id, submitted_at FROM answers WHERE organization_id=? AND question_id=?`,
		a.OrganizationID, a.QuestionID).Scan(&a.ID, &a.SubmittedAt)
	return r.d.classify(err, "failed to reload answer",
		goerr.V("organization_id", a.OrganizationID), goerr.V("question_id", a.QuestionID))
}

func (r *AnswerRepository) Get(ctx context.Context, id domain.AnswerID) (*domain.Answer, error) {
	a, err := scanAnswer(r.queryRow(ctx, `SELECT `+answerCols+` FROM answers WHERE id=?`, string(id)))
	if err != nil {
		return nil, r.d.classify(err, "failed to get answer", goerr.V("id", id))
	}
	return a, nil
}

// List applies every non-empty field of f. ProvisionID matches answers to questions mapped to it.
func (r *AnswerRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Answer, error) {
	var where []string
	var args []any
	if f.OrganizationID != "" {
		where = append(where, "organization_id=?")
		args = append(args, f.OrganizationID)
	}
	if f.QuestionID != "" {
		where = append(where, "question_id=?")
		args = append(args, f.QuestionID)
	}
	if f.ProvisionID != "" {
		where = append(where, "question_id IN (SELECT question_id FROM question_provisions WHERE provision_id=?)")
		args = append(args, f.ProvisionID)
	}
	if f.Contains != "" {
		where = append(where, "LOWER(answer) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Contains)+"%")
	}
	q := `SELECT ` + answerCols + ` FROM answers`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY organization_id, question_id`

	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query answers")
	}
	defer rows.Close()

	var out []*domain.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan answer")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AnswerRepository) Delete(ctx context.Context, id domain.AnswerID) error {
	res, err := r.exec(ctx, `DELETE FROM answers WHERE id=?`, string(id))
	if err != nil {
		return r.d.classify(err, "failed to delete answer", goerr.V("id", id))
	}
	return affected(res, "answer not found", goerr.V("id", id))
}
