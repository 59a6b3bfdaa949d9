package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// PutOptions describes how an object is written.
type PutOptions struct {
	ContentType  string
	CacheControl string
	Public       bool
}

// Object is an open handle on a stored object. Callers must close Body.
type Object struct {
	Body         io.ReadCloser
	ContentType  string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the narrow surface the asset broker needs from a storage backend.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) error
	Get(ctx context.Context, bucket, key string) (*Object, error)
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	PublicURL(bucket, key string) string
}
