package drive

import (
	"context"
	"io"
	"time"
)

// BlobStore provides an interface for object storage backends.
// Paths are opaque keys; the store applies no business logic to them.
type BlobStore interface {
	// Put stores size bytes read from r at path, replacing any existing blob.
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error

	// Get writes the blob stored at path to w. Returns ErrBlobNotFound if absent.
	Get(ctx context.Context, path string, w io.Writer) error

	// Delete removes the blob at path. Returns ErrBlobNotFound if absent.
	Delete(ctx context.Context, path string) error

	// PresignGet returns a URL that grants read access to the blob for ttl.
	PresignGet(ctx context.Context, path string, ttl time.Duration) (string, error)

	// ValidateSetup verifies that the store is reachable and properly configured.
	ValidateSetup(ctx context.Context) error
}
