package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/cnav/internal/infra/storage"
)

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/markdown; charset=utf-8", storage.ContentType("prompts/20250101/a_1_1.md"))
	assert.Equal(t, "application/json", storage.ContentType("x.json"))
	assert.Equal(t, "application/pdf", storage.ContentType("evidence/org-1/Q1/abc-policy.pdf"))
	assert.Equal(t, "application/octet-stream", storage.ContentType("noext"))
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "http://minio:9000/cnav/evidence/a.pdf", storage.ObjectURL("", "minio:9000", "cnav", "evidence/a.pdf"))
	assert.Equal(t, "https://s3.local/b/k", storage.ObjectURL("https", "s3.local", "b", "k"))
}
