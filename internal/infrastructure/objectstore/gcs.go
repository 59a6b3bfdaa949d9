package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// NewGCSClient creates a Google Cloud Storage client. If credsPath is empty, ADC is used.
func NewGCSClient(ctx context.Context, credsPath string) (*storage.Client, error) {
	if credsPath == "" {
		return storage.NewClient(ctx)
	}
	return storage.NewClient(ctx, option.WithCredentialsFile(credsPath))
}

type GCSStore struct {
	client *storage.Client
	// uniform bucket-level access rejects per-object ACLs
	uniform bool
}

func NewGCSStore(client *storage.Client, uniformAccess bool) *GCSStore {
	return &GCSStore{client: client, uniform: uniformAccess}
}

func (s *GCSStore) Put(ctx context.Context, bucket, key string, r io.Reader, _ int64, opts PutOptions) error {
	wc := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	wc.ContentType = opts.ContentType
	wc.CacheControl = opts.CacheControl
	wc.ChunkSize = 0 // disable chunking for small files
	if opts.Public && !s.uniform {
		wc.PredefinedACL = "publicRead"
	}
	if _, err := io.Copy(wc, r); err != nil {
		_ = wc.Close()
		return fmt.Errorf("gcs put %s/%s: %w", bucket, key, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("gcs put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *GCSStore) Get(ctx context.Context, bucket, key string) (*Object, error) {
	rc, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("gcs get %s/%s: %w", bucket, key, err)
	}
	return &Object{
		Body:         rc,
		ContentType:  rc.Attrs.ContentType,
		Size:         rc.Attrs.Size,
		LastModified: rc.Attrs.LastModified,
	}, nil
}

func (s *GCSStore) SignedURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := s.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("gcs sign %s/%s: %w", bucket, key, err)
	}
	return u, nil
}

// PublicURL builds a public URL for an object (assuming public read access)
func (s *GCSStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

var _ ObjectStore = (*GCSStore)(nil)
