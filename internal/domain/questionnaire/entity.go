package questionnaire

import "time"

// Audience roles a question can target
const (
	AudienceOwner     = "Owner"
	AudiencePurchaser = "Purchaser"
	AudienceIT        = "IT"
	AudienceHR        = "HR"
	AudienceEmployee  = "Employee"
)

// Audiences lists every accepted audience tag.
var Audiences = []string{AudienceOwner, AudiencePurchaser, AudienceIT, AudienceHR, AudienceEmployee}

// GroupTags lists every accepted question category.
var GroupTags = []string{
	"CONTEXT", "TRAINING", "POLICY", "HW/SW INV", "DISPOSAL", "CHANGE",
	"DATA INV", "NETWORK", "PHYS-ENV", "MALWARE", "BACKUP", "IR/BCP",
	"FIREWALL", "WIFI", "VENDOR", "ACCT MGMT", "BYOD", "PATCH/VULN",
}

// Question is one compliance question. Immutable once loaded.
type Question struct {
	ID                         string    `json:"id" yaml:"id"`
	Question                   string    `json:"question" yaml:"question"`
	Audience                   []string  `json:"audience" yaml:"audience"`
	CyberEssentialsRequirement string    `json:"cyberessentials_requirement,omitempty" yaml:"cyberessentials_requirement"`
	GroupTag                   string    `json:"group_tag,omitempty" yaml:"group_tag"`
	Provisions                 []string  `json:"provisions" yaml:"provisions"`
	CreatedAt                  time.Time `json:"created_at" yaml:"-"`
	UpdatedAt                  time.Time `json:"updated_at" yaml:"-"`
}

// Provision is a clause of the compliance framework. Read-only for the trackers.
type Provision struct {
	ID                 string    `json:"id" yaml:"id"`
	Section            string    `json:"section" yaml:"section"`
	Subsection         string    `json:"subsection" yaml:"subsection"`
	Clause             string    `json:"clause" yaml:"clause"`
	Subclause          string    `json:"subclause" yaml:"subclause"`
	Provision          string    `json:"provision" yaml:"provision"`
	Keywords           []string  `json:"keywords" yaml:"keywords"`
	SuggestedArtefacts string    `json:"suggested_artefacts,omitempty" yaml:"suggested_artefacts"`
	Questions          []string  `json:"questions" yaml:"questions"`
	CreatedAt          time.Time `json:"created_at" yaml:"-"`
	UpdatedAt          time.Time `json:"updated_at" yaml:"-"`
}

// Mapping links a question to a provision
type Mapping struct {
	QuestionID  string    `json:"question_id"`
	ProvisionID string    `json:"provision_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// MappingCoverage counts how many entities of one kind carry at least one mapping.
type MappingCoverage struct {
	Total    int `json:"total"`
	Mapped   int `json:"mapped"`
	Unmapped int `json:"unmapped"`
}

// MappingStats summarises the question/provision junction table.
type MappingStats struct {
	TotalMappings int             `json:"total_mappings"`
	Questions     MappingCoverage `json:"questions"`
	Provisions    MappingCoverage `json:"provisions"`
}

// ComputeMappingStats derives coverage from already-loaded questions and provisions.
func ComputeMappingStats(questions []*Question, provisions []*Provision) MappingStats {
	var st MappingStats
	st.Questions.Total = len(questions)
	for _, q := range questions {
		if len(q.Provisions) > 0 {
			st.Questions.Mapped++
			st.TotalMappings += len(q.Provisions)
		}
	}
	st.Questions.Unmapped = st.Questions.Total - st.Questions.Mapped

	st.Provisions.Total = len(provisions)
	for _, p := range provisions {
		if len(p.Questions) > 0 {
			st.Provisions.Mapped++
		}
	}
	st.Provisions.Unmapped = st.Provisions.Total - st.Provisions.Mapped
	return st
}
