// Package storage keeps uploaded requirement files in an S3-compatible object store.
// Uploads are streamed; nothing touches local disk and the bytes are never inspected.
package storage

import (
	"context"
	"io"
)

// PutObjectOptions describe an upload. Size is the exact byte count, or -1
// when unknown (the backend then uploads in parts).
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo identifies a stored upload.
type ObjectInfo struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string
}

// Storage is the write side of the upload store.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
}
