package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when the requested object does not exist.
// Callers branch on this to distinguish a missing object from a transport
// failure.
var ErrNotFound = errors.New("object not found")

// ObjectStorage is the object-store collaborator consumed by the archive,
// the media pipeline, and the duration-extraction handler. No
// transactionality is assumed across calls.
type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, contentLength int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)

	// URL renders the canonical s3://bucket/key locator for a stored object.
	URL(key string) string
	// KeyFromURL extracts the object key from an s3:// or https:// locator.
	KeyFromURL(url string) string
}
