package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS questions (
  id {key} NOT NULL PRIMARY KEY,
  question {text} NOT NULL,
  audience {text} NOT NULL,
  cyberessentials_requirement {text} NOT NULL,
  group_tag {key} NOT NULL,
  created_at {time} NOT NULL,
  updated_at {time} NOT NULL
);
CREATE TABLE IF NOT EXISTS provisions (
  id {key} NOT NULL PRIMARY KEY,
  section {key} NOT NULL,
  subsection {key} NOT NULL,
  clause {text} NOT NULL,
  subclause {key} NOT NULL,
  provision {text} NOT NULL,
  keywords {text} NOT NULL,
  suggested_artefacts {text} NOT NULL,
  created_at {time} NOT NULL,
  updated_at {time} NOT NULL
);
CREATE TABLE IF NOT EXISTS question_provisions (
  question_id {key} NOT NULL,
  provision_id {key} NOT NULL,
  created_at {time} NOT NULL,
  PRIMARY KEY (question_id, provision_id),
  FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE,
  FOREIGN KEY (provision_id) REFERENCES provisions(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS organizations (
  id {key} NOT NULL PRIMARY KEY,
  organisation_name {key} NOT NULL,
  contact_person {key} NOT NULL,
  contact_email {key} NOT NULL,
  industry {key} NOT NULL,
  size {key} NOT NULL,
  acra_number_uen {key} NOT NULL,
  annual_turnover {float} NULL,
  number_of_employees {int} NULL,
  date_of_self_assessment {time} NULL,
  scope_of_certification {text} NOT NULL,
  created_at {time} NOT NULL,
  updated_at {time} NOT NULL
);
CREATE TABLE IF NOT EXISTS answers (
  id {key} NOT NULL PRIMARY KEY,
  organization_id {key} NOT NULL,
  question_id {key} NOT NULL,
  answer {text} NOT NULL,
  evidence_files {text} NOT NULL,
  submitted_at {time} NOT NULL,
  updated_at {time} NOT NULL,
  UNIQUE (organization_id, question_id),
  FOREIGN KEY (organization_id) REFERENCES organizations(id) ON DELETE CASCADE,
  FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS evaluations (
  organization_id {key} NOT NULL,
  question_id {key} NOT NULL,
  answer {text} NOT NULL,
  result {key} NOT NULL,
  reason {text} NOT NULL,
  notes {text} NOT NULL,
  evaluated_by {key} NOT NULL,
  evaluated_at {time} NOT NULL,
  PRIMARY KEY (organization_id, question_id),
  FOREIGN KEY (organization_id, question_id) REFERENCES answers(organization_id, question_id) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS prompt_runs (
  id {key} NOT NULL PRIMARY KEY,
  name {key} NOT NULL,
  version {key} NOT NULL,
  status {key} NOT NULL,
  started_at {time} NOT NULL,
  completed_at {time} NULL
);
CREATE TABLE IF NOT EXISTS clause_prompts (
  id {key} NOT NULL PRIMARY KEY,
  run_id {key} NOT NULL,
  provision_id {key} NOT NULL,
  prompt {text} NOT NULL,
  document_url {text} NOT NULL,
  created_at {time} NOT NULL,
  FOREIGN KEY (run_id) REFERENCES prompt_runs(id) ON DELETE CASCADE
);
`

// Statements renders the schema for d, one statement per element.
func Statements(d Dialect) []string {
	r := strings.NewReplacer(
		"{key}", d.Types.Key,
		"{text}", d.Types.Text,
		"{time}", d.Types.Time,
		"{float}", d.Types.Float,
		"{int}", d.Types.Int,
	)
	var out []string
	for _, stmt := range strings.Split(r.Replace(schema), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Migrate creates the tables that do not exist yet.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range Statements(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to apply schema", goerr.V("dialect", d.Name), goerr.V("stmt", firstLine(stmt)))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
