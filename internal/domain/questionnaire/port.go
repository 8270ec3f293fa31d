package questionnaire

import "context"

// QuestionReader is the read side used by the catalog and the trackers.
type QuestionReader interface {
	ListQuestions(ctx context.Context) ([]*Question, error)
	GetQuestion(ctx context.Context, id string) (*Question, error)
}

// ProvisionReader is the read side for provisions.
type ProvisionReader interface {
	ListProvisions(ctx context.Context) ([]*Provision, error)
	GetProvision(ctx context.Context, id string) (*Provision, error)
}

// Repository port for questions, provisions and the mapping table
type Repository interface {
	QuestionReader
	ProvisionReader

	SaveQuestion(ctx context.Context, q *Question) error
	CreateQuestion(ctx context.Context, q *Question) error
	DeleteQuestion(ctx context.Context, id string) error

	SaveProvision(ctx context.Context, p *Provision) error
	CreateProvision(ctx context.Context, p *Provision) error
	DeleteProvision(ctx context.Context, id string) error

	CreateMapping(ctx context.Context, questionID, provisionID string) error
	DeleteMapping(ctx context.Context, questionID, provisionID string) error
}
