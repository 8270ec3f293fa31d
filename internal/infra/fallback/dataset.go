// Package fallback serves the static sample dataset used when the database is unreachable.
package fallback

import (
	"context"
	_ "embed"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/organizations"
	"github.com/bryanwahyu/cnav/internal/domain/questionnaire"
)

//go:embed sample.yaml
var sampleYAML []byte

// Dataset is read-only; it implements the question, provision and organization readers.
type Dataset struct {
	Organizations []*organizations.Organization `yaml:"organizations"`
	Questions     []*questionnaire.Question     `yaml:"questions"`
	Provisions    []*questionnaire.Provision    `yaml:"provisions"`
}

// Sample decodes the embedded dataset.
func Sample() (*Dataset, error) {
	return Parse(sampleYAML)
}

// Parse decodes a dataset document.
func Parse(b []byte) (*Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, goerr.Wrap(err, "failed to decode sample dataset")
	}
	return &d, nil
}

func (d *Dataset) ListQuestions(context.Context) ([]*questionnaire.Question, error) {
	return d.Questions, nil
}

func (d *Dataset) GetQuestion(_ context.Context, id string) (*questionnaire.Question, error) {
	for _, q := range d.Questions {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, goerr.Wrap(errs.ErrNotFound, "question not found", goerr.V("id", id))
}

func (d *Dataset) ListProvisions(context.Context) ([]*questionnaire.Provision, error) {
	return d.Provisions, nil
}

func (d *Dataset) GetProvision(_ context.Context, id string) (*questionnaire.Provision, error) {
	for _, p := range d.Provisions {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, goerr.Wrap(errs.ErrNotFound, "provision not found", goerr.V("id", id))
}

func (d *Dataset) List(context.Context) ([]*organizations.Organization, error) {
	return d.Organizations, nil
}

func (d *Dataset) Get(_ context.Context, id string) (*organizations.Organization, error) {
	for _, o := range d.Organizations {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, goerr.Wrap(errs.ErrNotFound, "organization not found", goerr.V("id", id))
}

// SearchByName matches case-insensitively on a substring, like the SQL ILIKE lookup.
func (d *Dataset) SearchByName(_ context.Context, pattern string) ([]*organizations.Organization, error) {
	p := strings.ToLower(pattern)
	var out []*organizations.Organization
	for _, o := range d.Organizations {
		if strings.Contains(strings.ToLower(o.Name), p) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (d *Dataset) SearchByEmployeeCount(_ context.Context, min, max int) ([]*organizations.Organization, error) {
	var out []*organizations.Organization
	for _, o := range d.Organizations {
		if o.NumberOfEmployees == nil {
			continue
		}
		if n := *o.NumberOfEmployees; n >= min && n <= max {
			out = append(out, o)
		}
	}
	return out, nil
}
