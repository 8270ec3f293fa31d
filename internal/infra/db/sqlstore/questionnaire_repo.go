package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
	domain "github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

// QuestionnaireRepository stores questions, provisions and the mapping table.
type QuestionnaireRepository struct{ conn }

var _ domain.Repository = (*QuestionnaireRepository)(nil)

func NewQuestionnaireRepository(db *sql.DB, d Dialect) *QuestionnaireRepository {
	return &QuestionnaireRepository{conn{db: db, d: d}}
}

const questionCols = `id, question, audience, cyberessentials_requirement, group_tag, created_at, updated_at`

func scanQuestion(sc interface{ Scan(...any) error }) (*domain.Question, error) {
	var q domain.Question
	var audience string
	if err := sc.Scan(&q.ID, &q.Question, &audience, &q.CyberEssentialsRequirement, &q.GroupTag, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	a, err := decodeList[string](audience)
	if err != nil {
		return nil, err
	}
	q.Audience = a
	q.Provisions = []string{}
	return &q, nil
}

// links returns question id -> provision ids (or the reverse when byProvision is set).
func (r *QuestionnaireRepository) links(ctx context.Context, byProvision bool, id string) (map[string][]string, error) {
	q := `SELECT question_id, provision_id FROM question_provisions`
	var args []any
	if id != "" {
		if byProvision {
			q += ` WHERE provision_id=?`
		} else {
			q += ` WHERE question_id=?`
		}
		args = append(args, id)
	}
	q += ` ORDER BY question_id, provision_id`

	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query mappings")
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var qid, pid string
		if err := rows.Scan(&qid, &pid); err != nil {
			return nil, goerr.Wrap(err, "failed to scan mapping")
		}
		if byProvision {
			out[pid] = append(out[pid], qid)
		} else {
			out[qid] = append(out[qid], pid)
		}
	}
	return out, rows.Err()
}

func (r *QuestionnaireRepository) ListQuestions(ctx context.Context) ([]*domain.Question, error) {
	rows, err := r.query(ctx, `SELECT `+questionCols+` FROM questions ORDER BY id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query questions")
	}
	var out []*domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			rows.Close()
			return nil, goerr.Wrap(err, "failed to scan question")
		}
		out = append(out, q)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to iterate questions")
	}

	links, err := r.links(ctx, false, "")
	if err != nil {
		return nil, err
	}
	for _, q := range out {
		if ps, ok := links[q.ID]; ok {
			q.Provisions = ps
		}
	}
	return out, nil
}

func (r *QuestionnaireRepository) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	q, err := scanQuestion(r.queryRow(ctx, `SELECT `+questionCols+` FROM questions WHERE id=?`, id))
	if err != nil {
		return nil, r.d.classify(err, "failed to get question", goerr.V("id", id))
	}
	links, err := r.links(ctx, false, id)
	if err != nil {
		return nil, err
	}
	if ps, ok := links[id]; ok {
		q.Provisions = ps
	}
	return q, nil
}

// CreateQuestion inserts q together with its provision mappings.
func (r *QuestionnaireRepository) CreateQuestion(ctx context.Context, q *domain.Question) error {
	err := r.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.d.Rebind(`INSERT INTO questions (`+questionCols+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
			q.ID, q.Question, encodeList(q.Audience), q.CyberEssentialsRequirement, q.GroupTag, utc(q.CreatedAt), utc(q.UpdatedAt))
		if err != nil {
			return err
		}
		for _, pid := range q.Provisions {
			if _, err := tx.ExecContext(ctx, r.d.Rebind(`INSERT INTO question_provisions (question_id, provision_id, created_at) VALUES (?, ?, ?)`),
				q.ID, pid, utc(q.CreatedAt)); err != nil {
				return err
			}
		}
		return nil
	})
	return r.d.classify(err, "failed to create question", goerr.V("id", q.ID))
}

// SaveQuestion updates the question's own columns. Mappings are managed separately.
func (r *QuestionnaireRepository) SaveQuestion(ctx context.Context, q *domain.Question) error {
	if err := r.exists(ctx, "questions", q.ID); err != nil {
		return err
	}
	_, err := r.exec(ctx, `UPDATE questions SET question=?, audience=?, cyberessentials_requirement=?, group_tag=?, updated_at=? WHERE id=?`,
		q.Question, encodeList(q.Audience), q.CyberEssentialsRequirement, q.GroupTag, utc(q.UpdatedAt), q.ID)
	return r.d.classify(err, "failed to save question", goerr.V("id", q.ID))
}

func (r *QuestionnaireRepository) DeleteQuestion(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "questions", id)
}

const provisionCols = `id, section, subsection, clause, subclause, provision, keywords, suggested_artefacts, created_at, updated_at`

func scanProvision(sc interface{ Scan(...any) error }) (*domain.Provision, error) {
	var p domain.Provision
	var keywords string
	if err := sc.Scan(&p.ID, &p.Section, &p.Subsection, &p.Clause, &p.Subclause, &p.Provision,
		&keywords, &p.SuggestedArtefacts, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	k, err := decodeList[string](keywords)
	if err != nil {
		return nil, err
	}
	p.Keywords = k
	p.Questions = []string{}
	return &p, nil
}

func (r *QuestionnaireRepository) ListProvisions(ctx context.Context) ([]*domain.Provision, error) {
	rows, err := r.query(ctx, `SELECT `+provisionCols+` FROM provisions ORDER BY id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query provisions")
	}
	var out []*domain.Provision
	for rows.Next() {
		p, err := scanProvision(rows)
		if err != nil {
			rows.Close()
			return nil, goerr.Wrap(err, "failed to scan provision")
		}
		out = append(out, p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to iterate provisions")
	}

	links, err := r.links(ctx, true, "")
	if err != nil {
		return nil, err
	}
	for _, p := range out {
		if qs, ok := links[p.ID]; ok {
			p.Questions = qs
		}
	}
	return out, nil
}

func (r *QuestionnaireRepository) GetProvision(ctx context.Context, id string) (*domain.Provision, error) {
	p, err := scanProvision(r.queryRow(ctx, `SELECT `+provisionCols+` FROM provisions WHERE id=?`, id))
	if err != nil {
		return nil, r.d.classify(err, "failed to get provision", goerr.V("id", id))
	}
	links, err := r.links(ctx, true, id)
	if err != nil {
		return nil, err
	}
	if qs, ok := links[id]; ok {
		p.Questions = qs
	}
	return p, nil
}

// CreateProvision inserts p together with its question mappings.
func (r *QuestionnaireRepository) CreateProvision(ctx context.Context, p *domain.Provision) error {
	err := r.tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.d.Rebind(`INSERT INTO provisions (`+provisionCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			p.ID, p.Section, p.Subsection, p.Clause, p.Subclause, p.Provision,
			encodeList(p.Keywords), p.SuggestedArtefacts, utc(p.CreatedAt), utc(p.UpdatedAt))
		if err != nil {
			return err
		}
		for _, qid := range p.Questions {
			if _, err := tx.ExecContext(ctx, r.d.Rebind(`INSERT INTO question_provisions (question_id, provision_id, created_at) VALUES (?, ?, ?)`),
				qid, p.ID, utc(p.CreatedAt)); err != nil {
				return err
			}
		}
		return nil
	})
	return r.d.classify(err, "failed to create provision", goerr.V("id", p.ID))
}

func (r *QuestionnaireRepository) SaveProvision(ctx context.Context, p *domain.Provision) error {
	if err := r.exists(ctx, "provisions", p.ID); err != nil {
		return err
	}
	_, err := r.exec(ctx, `UPDATE provisions SET section=?, subsection=?, clause=?, subclause=?, provision=?, keywords=?, suggested_artefacts=?, updated_at=? WHERE id=?`,
		p.Section, p.Subsection, p.Clause, p.Subclause, p.Provision, encodeList(p.Keywords), p.SuggestedArtefacts, utc(p.UpdatedAt), p.ID)
	return r.d.classify(err, "failed to save provision", goerr.V("id", p.ID))
}

func (r *QuestionnaireRepository) DeleteProvision(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "provisions", id)
}

func (r *QuestionnaireRepository) CreateMapping(ctx context.Context, questionID, provisionID string) error {
	_, err := r.exec(ctx, `INSERT INTO question_provisions (question_id, provision_id, created_at) VALUES (?, ?, ?)`,
		questionID, provisionID, time.Now().UTC())
	return r.d.classify(err, "failed to create mapping",
		goerr.V("question_id", questionID), goerr.V("provision_id", provisionID))
}

func (r *QuestionnaireRepository) DeleteMapping(ctx context.Context, questionID, provisionID string) error {
	res, err := r.exec(ctx, `DELETE FROM question_provisions WHERE question_id=? AND provision_id=?`, questionID, provisionID)
	if err != nil {
		return r.d.classify(err, "failed to delete mapping")
	}
	return affected(res, "mapping not found", goerr.V("question_id", questionID), goerr.V("provision_id", provisionID))
}

func (r *QuestionnaireRepository) exists(ctx context.Context, table, id string) error {
	var one int
	err := r.queryRow(ctx, `SELECT 1 FROM `+table+` WHERE id=?`, id).Scan(&one)
	return r.d.classify(err, "row not found", goerr.V("table", table), goerr.V("id", id))
}

func (r *QuestionnaireRepository) deleteByID(ctx context.Context, table, id string) error {
	res, err := r.exec(ctx, `DELETE FROM `+table+` WHERE id=?`, id)
	if err != nil {
		return r.d.classify(err, "failed to delete", goerr.V("table", table), goerr.V("id", id))
	}
	return affected(res, "row not found", goerr.V("table", table), goerr.V("id", id))
}

func affected(res sql.Result, msg string, vals ...goerr.Option) error {
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return goerr.Wrap(errs.ErrNotFound, msg, vals...)
	}
	return nil
}
