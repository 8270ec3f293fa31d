package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	domain "github.com/bryanwahyu/cnav/internal/domain/organizations"
)

type OrganizationRepository struct{ conn }

var _ domain.Repository = (*OrganizationRepository)(nil)

func NewOrganizationRepository(db *sql.DB, d Dialect) *OrganizationRepository {
	return &OrganizationRepository{conn{db: db, d: d}}
}

const orgCols = `id, organisation_name, contact_person, contact_email, industry, size, acra_number_uen,
 annual_turnover, number_of_employees, date_of_self_assessment, scope_of_certification, created_at, updated_at`

func scanOrg(sc interface{ Scan(...any) error }) (*domain.Organization, error) {
	var o domain.Organization
	var turnover sql.NullFloat64
	var employees sql.NullInt64
	var assessed sql.NullTime
	if err := sc.Scan(&o.ID, &o.Name, &o.ContactPerson, &o.ContactEmail, &o.Industry, &o.Size, &o.UEN,
		&turnover, &employees, &assessed, &o.ScopeOfCertification, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if turnover.Valid {
		v := turnover.Float64
		o.AnnualTurnover = &v
	}
	if employees.Valid {
		v := int(employees.Int64)
		o.NumberOfEmployees = &v
	}
	o.DateOfSelfAssessment = timePtr(assessed)
	return &o, nil
}

func (r *OrganizationRepository) many(ctx context.Context, q string, args ...any) ([]*domain.Organization, error) {
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query organizations")
	}
	defer rows.Close()

	var out []*domain.Organization
	for rows.Next() {
		o, err := scanOrg(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan organization")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrganizationRepository) List(ctx context.Context) ([]*domain.Organization, error) {
	return r.many(ctx, `SELECT `+orgCols+` FROM organizations ORDER BY created_at, id`)
}

func (r *OrganizationRepository) Get(ctx context.Context, id string) (*domain.Organization, error) {
	o, err := scanOrg(r.queryRow(ctx, `SELECT `+orgCols+` FROM organizations WHERE id=?`, id))
	if err != nil {
		return nil, r.d.classify(err, "failed to get organization", goerr.V("id", id))
	}
	return o, nil
}

// SearchByName is a case-insensitive substring match on the organisation name.
func (r *OrganizationRepository) SearchByName(ctx context.Context, pattern string) ([]*domain.Organization, error) {
	return r.many(ctx, `SELECT `+orgCols+` FROM organizations WHERE LOWER(organisation_name) LIKE ? ORDER BY organisation_name, id`,
		"%"+strings.ToLower(pattern)+"%")
}

// SearchByEmployeeCount matches min <= number_of_employees <= max; unknown counts never match.
func (r *OrganizationRepository) SearchByEmployeeCount(ctx context.Context, min, max int) ([]*domain.Organization, error) {
	return r.many(ctx, `SELECT `+orgCols+` FROM organizations
 WHERE number_of_employees IS NOT NULL AND number_of_employees >= ? AND number_of_employees <= ?
 ORDER BY number_of_employees, id`, min, max)
}

func orgArgs(o *domain.Organization) []any {
	var turnover sql.NullFloat64
	if o.AnnualTurnover != nil {
		turnover = sql.NullFloat64{Float64: *o.AnnualTurnover, Valid: true}
	}
	var employees sql.NullInt64
	if o.NumberOfEmployees != nil {
		employees = sql.NullInt64{Int64: int64(*o.NumberOfEmployees), Valid: true}
	}
	return []any{o.Name, o.ContactPerson, o.ContactEmail, o.Industry, o.Size, o.UEN,
		turnover, employees, nullTime(o.DateOfSelfAssessment), o.ScopeOfCertification}
}

func (r *OrganizationRepository) Create(ctx context.Context, o *domain.Organization) error {
	args := append([]any{o.ID}, orgArgs(o)...)
	args = append(args, utc(o.CreatedAt), utc(o.UpdatedAt))
	_, err := r.exec(ctx, `INSERT INTO organizations (`+orgCols+`) VALUES (`+placeholders(13)+`)`, args...)
	return r.d.classify(err, "failed to create organization", goerr.V("id", o.ID))
}

func (r *OrganizationRepository) Save(ctx context.Context, o *domain.Organization) error {
	var one int
	if err := r.queryRow(ctx, `SELECT 1 FROM organizations WHERE id=?`, o.ID).Scan(&one); err != nil {
		return r.d.classify(err, "organization not found", goerr.V("id", o.ID))
	}
	args := append(orgArgs(o), utc(o.UpdatedAt), o.ID)
	_, err := r.exec(ctx, `UPDATE organizations SET organisation_name=?, contact_person=?, contact_email=?, industry=?, size=?,
 acra_number_uen=?, annual_turnover=?, number_of_employees=?, date_of_self_assessment=?, scope_of_certification=?, updated_at=?
 WHERE id=?`, args...)
	return r.d.classify(err, "failed to save organization", goerr.V("id", o.ID))
}

func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	res, err := r.exec(ctx, `DELETE FROM organizations WHERE id=?`, id)
	if err != nil {
		return r.d.classify(err, "failed to delete organization", goerr.V("id", id))
	}
	return affected(res, "organization not found", goerr.V("id", id))
}
