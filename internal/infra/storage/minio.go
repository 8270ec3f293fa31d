package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/cnav/internal/domain/answers"
	"github.com/bryanwahyu/cnav/internal/domain/errs"
	"github.com/bryanwahyu/cnav/internal/domain/prompts"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

var (
	_ answers.EvidenceStore = (*Store)(nil)
	_ prompts.DocumentStore = (*Store)(nil)
)

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create minio client", goerr.V("endpoint", endpoint))
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, goerr.Wrap(errs.ErrBackendUnavailable, err.Error(), goerr.V("bucket", bucket))
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, goerr.Wrap(err, "failed to create bucket", goerr.V("bucket", bucket))
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// Put streams r to key. size -1 means unknown (multipart upload).
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = ContentType(key)
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", goerr.Wrap(errs.ErrBackendUnavailable, err.Error(), goerr.V("bucket", s.bucketName), goerr.V("key", key))
	}

	// URL publik (jika bucket public), kalau private harus generate presigned URL
	return ObjectURL(s.client.EndpointURL().Scheme, s.client.EndpointURL().Host, s.bucketName, key), nil
}

func ObjectURL(scheme, host, bucket, key string) string {
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, host, bucket, key)
}

// ContentType guesses from the extension; markdown and unknown types get explicit defaults.
func ContentType(key string) string {
	ext := filepath.Ext(key)
	switch ext {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".json", ".sarif":
		return "application/json"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
