package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ErrEmptyObjectKey is returned when an operation is called without a key.
var ErrEmptyObjectKey = errors.New("object key is required")

// FileStorage defines the interface for object storage operations.
type FileStorage interface {
	// UploadObject stores body under objectKey and returns its public URL.
	UploadObject(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) (string, error)

	// PublicURL builds the public URL of an already stored object.
	PublicURL(objectKey string) string

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object from the storage provider.
	DeleteObject(ctx context.Context, objectKey string) error
}
