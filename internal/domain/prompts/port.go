package prompts

import (
	"context"
	"io"
)

// QuestionAnswer is one question of a clause with the company's response, if any.
type QuestionAnswer struct {
	QuestionID string
	Question   string
	Answer     string
}

// ClauseInput is everything the generator sees of one provision.
type ClauseInput struct {
	ClauseID           string
	ProvisionID        string
	Provision          string
	Keywords           []string
	SuggestedArtefacts string
	Questions          []QuestionAnswer
}

// Generator port (LLM yang bikin evaluation prompt per provision)
type Generator interface {
	GeneratePrompt(ctx context.Context, in ClauseInput) (string, error)
}

// Repository port for prompt runs and their generated prompts
type Repository interface {
	SaveRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, id RunID) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	SavePrompt(ctx context.Context, p *ClausePrompt) error
	ListPrompts(ctx context.Context, runID RunID) ([]*ClausePrompt, error)
	// LatestPrompts returns the newest prompt of every provision in ids from completed runs.
	LatestPrompts(ctx context.Context, provisionIDs []string) ([]*ClausePrompt, error)
}

// DocumentStore port (penyimpanan dokumen prompt)
type DocumentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}
