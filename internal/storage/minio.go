package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"reqapi/internal/config"
)

var (
	ErrEndpointRequired    = errors.New("minio endpoint is required")
	ErrCredentialsRequired = errors.New("minio credentials are required")
	ErrBucketRequired      = errors.New("minio bucket is required")
)

// MinIOStore writes uploads to one bucket of an S3-compatible backend.
// It is safe for concurrent use.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

var _ Storage = (*MinIOStore)(nil)

// NewMinIO connects to the backend and creates the bucket when it is missing.
// ctx bounds the bucket check only.
func NewMinIO(ctx context.Context, cfg config.MinIOConfig) (*MinIOStore, error) {
	switch {
	case cfg.Endpoint == "":
		return nil, ErrEndpointRequired
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return nil, ErrCredentialsRequired
	case cfg.Bucket == "":
		return nil, ErrBucketRequired
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &MinIOStore{client: cli, bucket: cfg.Bucket}, nil
}

// Put streams r to key.
func (m *MinIOStore) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	info, err := m.client.PutObject(ctx, m.bucket, key, r, opt.Size, minio.PutObjectOptions{
		ContentType:  opt.ContentType,
		UserMetadata: opt.Metadata,
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("put object %s/%s: %w", m.bucket, key, err)
	}
	return ObjectInfo{
		Bucket: m.bucket,
		Key:    key,
		Size:   info.Size,
		ETag:   info.ETag,
	}, nil
}
