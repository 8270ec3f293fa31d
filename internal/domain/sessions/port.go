package sessions

import "context"

// Store is the local key-value store holding tracker snapshots.
// Get returns errs.ErrNotFound for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// QuestionnaireKey is the snapshot key of one company's questionnaire.
func QuestionnaireKey(organizationID string) string { return "questionnaire:" + organizationID }

// ReviewKey is the snapshot key of one auditor's review.
func ReviewKey(auditor string) string { return "review:" + auditor }
