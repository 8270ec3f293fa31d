package answers

import (
	"context"
	"io"
)

// Repository port for persisting and querying answers
type Repository interface {
	// Upsert inserts or replaces the answer for (OrganizationID, QuestionID).
	Upsert(ctx context.Context, a *Answer) error
	Get(ctx context.Context, id AnswerID) (*Answer, error)
	List(ctx context.Context, f Filter) ([]*Answer, error)
	Delete(ctx context.Context, id AnswerID) error
}

// EvidenceStore port (penyimpanan file bukti)
type EvidenceStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}
