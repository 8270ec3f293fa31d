package evaluations

import "context"

// Repository port for persisted evaluations
type Repository interface {
	// Upsert inserts or replaces the evaluation for (OrganizationID, QuestionID).
	Upsert(ctx context.Context, e *Evaluation) error
	ListByOrganization(ctx context.Context, organizationID string) ([]*Evaluation, error)
}

// SuggestInput is the context handed to the suggester for one answer.
type SuggestInput struct {
	QuestionID    string
	Question      string
	Answer        string
	Evidence      []string // file names
	ClausePrompts []string // generated evaluation prompts of the mapped provisions
}

// Suggester port (LLM yang kasih saran pass/fail)
type Suggester interface {
	Suggest(ctx context.Context, in SuggestInput) (*Suggestion, error)
}
