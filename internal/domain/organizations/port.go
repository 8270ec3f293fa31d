package organizations

import "context"

// Reader is the read side used by the catalog and the review tracker.
type Reader interface {
	List(ctx context.Context) ([]*Organization, error)
	Get(ctx context.Context, id string) (*Organization, error)
	SearchByName(ctx context.Context, pattern string) ([]*Organization, error)
	SearchByEmployeeCount(ctx context.Context, min, max int) ([]*Organization, error)
}

// Repository port (interface untuk persistence)
type Repository interface {
	Reader
	Create(ctx context.Context, o *Organization) error
	Save(ctx context.Context, o *Organization) error
	Delete(ctx context.Context, id string) error
}
