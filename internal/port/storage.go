package port

import (
	"context"
	"io"
)

// UploadInput is one document payload bound for the object store.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
}

// ObjectStorage stores and serves uploaded document payloads. Download link
// expiry is owned by the implementation's configuration, so callers only name
// the object.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) error
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
	GetPresignedURL(ctx context.Context, bucket, key string) (string, error)
}
