package middleware

import (
	"net/mail"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/pagination"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

// Input validation and sanitization utilities

// ids: question "Q12", provision "A.1.4", organization uuid
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

func invalid(msg string, opts ...goerr.Option) error {
	return goerr.Wrap(errs.ErrInvalidInput, msg, opts...)
}

// ValidateID checks question, provision and organization ids.
func ValidateID(id string) error {
	if id == "" {
		return invalid("id cannot be empty")
	}
	if !idPattern.MatchString(id) {
		return invalid("invalid id format", goerr.V("id", id))
	}
	return nil
}

// ValidateAudience accepts only the known audience roles. Empty is allowed.
func ValidateAudience(audience []string) error {
	for _, a := range audience {
		if !slices.Contains(questionnaire.Audiences, a) {
			return invalid("invalid audience (allowed: Owner, Purchaser, IT, HR, Employee)", goerr.V("audience", a))
		}
	}
	return nil
}

// ValidateGroupTag accepts an empty tag or one of questionnaire.GroupTags.
func ValidateGroupTag(tag string) error {
	if tag == "" || slices.Contains(questionnaire.GroupTags, tag) {
		return nil
	}
	return invalid("invalid group tag", goerr.V("group_tag", tag))
}

// ValidateEmail validates an optional contact address.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("invalid e-mail address", goerr.V("email", email))
	}
	return nil
}

// ValidateQuestion checks a question payload before it is written.
func ValidateQuestion(q *questionnaire.Question) error {
	if err := ValidateID(q.ID); err != nil {
		return err
	}
	if strings.TrimSpace(q.Question) == "" {
		return invalid("question text cannot be empty", goerr.V("id", q.ID))
	}
	if err := ValidateAudience(q.Audience); err != nil {
		return err
	}
	return ValidateGroupTag(q.GroupTag)
}

// ValidateProvision checks a provision payload before it is written.
func ValidateProvision(p *questionnaire.Provision) error {
	if err := ValidateID(p.ID); err != nil {
		return err
	}
	if strings.TrimSpace(p.Provision) == "" {
		return invalid("provision text cannot be empty", goerr.V("id", p.ID))
	}
	return nil
}

// ValidateOrganization checks a registration payload. The id may be empty (assigned on create).
func ValidateOrganization(o *organizations.Organization) error {
	if o.ID != "" {
		if err := ValidateID(o.ID); err != nil {
			return err
		}
	}
	o.Name = SanitizeString(o.Name)
	if o.Name == "" {
		return invalid("organisation_name cannot be empty")
	}
	if o.NumberOfEmployees != nil && *o.NumberOfEmployees < 0 {
		return invalid("number_of_employees cannot be negative")
	}
	return ValidateEmail(o.ContactEmail)
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ParsePage reads limit and offset from the query string. Missing values mean 0.
func ParsePage(q url.Values) (pagination.Page, error) {
	var p pagination.Page
	for name, dst := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return pagination.Page{}, invalid(name+" must be a non-negative integer", goerr.V(name, raw))
		}
		*dst = n
	}
	return p, nil
}

// ValidateLimit clamps a list limit (prompt runs).
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
