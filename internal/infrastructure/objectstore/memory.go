package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

type memObject struct {
	data         []byte
	contentType  string
	cacheControl string
	public       bool
	modified     time.Time
}

// MemoryStore keeps objects in process memory. Used for local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	baseURL string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject), baseURL: baseURL}
}

func (s *MemoryStore) Put(_ context.Context, bucket, key string, r io.Reader, _ int64, opts PutOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = memObject{
		data:         data,
		contentType:  opts.ContentType,
		cacheControl: opts.CacheControl,
		public:       opts.Public,
		modified:     time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, bucket, key string) (*Object, error) {
	s.mu.RLock()
	o, ok := s.objects[bucket+"/"+key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return &Object{
		Body:         io.NopCloser(bytes.NewReader(o.data)),
		ContentType:  o.contentType,
		Size:         int64(len(o.data)),
		LastModified: o.modified,
	}, nil
}

func (s *MemoryStore) SignedURL(_ context.Context, bucket, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("%s/%s/%s?expires=%d", s.baseURL, bucket, key, time.Now().Add(ttl).Unix()), nil
}

func (s *MemoryStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, bucket, key)
}

// Has reports whether an object exists, and whether it was written public.
func (s *MemoryStore) Has(bucket, key string) (exists, public bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[bucket+"/"+key]
	return ok, o.public
}

var _ ObjectStore = (*MemoryStore)(nil)
