package prompts

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// RunID identifier type
type RunID string

// Status enum
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one prompt-generation pass over the provisions.
type Run struct {
	ID          RunID      `json:"id"`
	Name        string     `json:"name,omitempty"`
	Version     string     `json:"version,omitempty"`
	Status      Status     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ClausePrompt is the evaluation prompt generated for one provision.
type ClausePrompt struct {
	ID          string    `json:"id"`
	RunID       RunID     `json:"run_id"`
	ProvisionID string    `json:"provision_id"`
	Prompt      string    `json:"prompt"`
	DocumentURL string    `json:"document_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	rxNonWord    = regexp.MustCompile(`[^\w\s]`)
	rxSpaces     = regexp.MustCompile(`\s+`)
	rxUnderscore = regexp.MustCompile(`_+`)
)

// SnakeCase turns a provision id into a file-name stem, e.g. "A.1.4 (a)" -> "a_1_4_a".
func SnakeCase(provisionID string) string {
	s := rxNonWord.ReplaceAllString(strings.ToLower(provisionID), "_")
	s = rxSpaces.ReplaceAllString(s, "_")
	s = rxUnderscore.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// Document wraps a generated prompt as the markdown file kept for a run.
func Document(in ClauseInput, generated string) string {
	return fmt.Sprintf("# Evaluation Prompt for %s\n\n## Clause Information\n**Clause ID**: %s\n\n## Provision ID\n%s\n\n## Evaluation Prompt\n\n%s\n",
		in.ProvisionID, in.ClauseID, in.ProvisionID, strings.TrimSpace(generated))
}
