package organizations

import "time"

// Organization is a registered company. One registration record per company.
type Organization struct {
	ID                   string     `json:"id" yaml:"id"`
	Name                 string     `json:"organisation_name" yaml:"organisation_name"`
	ContactPerson        string     `json:"contact_person,omitempty" yaml:"contact_person"`
	ContactEmail         string     `json:"contact_email,omitempty" yaml:"contact_email"`
	Industry             string     `json:"industry,omitempty" yaml:"industry"`
	Size                 string     `json:"size,omitempty" yaml:"size"`
	UEN                  string     `json:"acra_number_uen,omitempty" yaml:"acra_number_uen"`
	AnnualTurnover       *float64   `json:"annual_turnover,omitempty" yaml:"annual_turnover"`
	NumberOfEmployees    *int       `json:"number_of_employees,omitempty" yaml:"number_of_employees"`
	DateOfSelfAssessment *time.Time `json:"date_of_self_assessment,omitempty" yaml:"date_of_self_assessment"`
	ScopeOfCertification string     `json:"scope_of_certification,omitempty" yaml:"scope_of_certification"`
	CreatedAt            time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt            time.Time  `json:"updated_at" yaml:"-"`
}

// Patch carries optional fields for a partial update. Nil means "leave as is".
type Patch struct {
	Name                 *string    `json:"organisation_name"`
	ContactPerson        *string    `json:"contact_person"`
	ContactEmail         *string    `json:"contact_email"`
	Industry             *string    `json:"industry"`
	Size                 *string    `json:"size"`
	UEN                  *string    `json:"acra_number_uen"`
	AnnualTurnover       *float64   `json:"annual_turnover"`
	NumberOfEmployees    *int       `json:"number_of_employees"`
	DateOfSelfAssessment *time.Time `json:"date_of_self_assessment"`
	ScopeOfCertification *string    `json:"scope_of_certification"`
}

// Apply copies every non-nil field of p onto o.
func (p Patch) Apply(o *Organization) {
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.ContactPerson != nil {
		o.ContactPerson = *p.ContactPerson
	}
	if p.ContactEmail != nil {
		o.ContactEmail = *p.ContactEmail
	}
	if p.Industry != nil {
		o.Industry = *p.Industry
	}
	if p.Size != nil {
		o.Size = *p.Size
	}
	if p.UEN != nil {
		o.UEN = *p.UEN
	}
	if p.AnnualTurnover != nil {
		o.AnnualTurnover = p.AnnualTurnover
	}
	if p.NumberOfEmployees != nil {
		o.NumberOfEmployees = p.NumberOfEmployees
	}
	if p.DateOfSelfAssessment != nil {
		o.DateOfSelfAssessment = p.DateOfSelfAssessment
	}
	if p.ScopeOfCertification != nil {
		o.ScopeOfCertification = *p.ScopeOfCertification
	}
}
