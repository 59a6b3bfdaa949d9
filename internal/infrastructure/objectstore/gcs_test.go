package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeGCS records the predefinedAcl of every upload and 404s every read.
type fakeGCS struct {
	mu   sync.Mutex
	acls []string
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/upload/") {
		_, _ = io.Copy(io.Discard, r.Body)
		f.mu.Lock()
		f.acls = append(f.acls, r.URL.Query().Get("predefinedAcl"))
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"bucket":"shop","name":"products/p1.png","contentType":"image/png","size":"3"}`)
		return
	}
	http.NotFound(w, r)
}

func (f *fakeGCS) uploads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acls...)
}

func newFakeGCSClient(t *testing.T) (*storage.Client, *fakeGCS) {
	t.Helper()
	fake := &fakeGCS{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, fake
}

func TestGCSStore_PredefinedACL(t *testing.T) {
	tests := []struct {
		name    string
		uniform bool
		public  bool
		want    string
	}{
		{name: "fine-grained public", public: true, want: "publicRead"},
		{name: "fine-grained private", public: false, want: ""},
		{name: "uniform public", uniform: true, public: true, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, fake := newFakeGCSClient(t)
			s := NewGCSStore(client, tt.uniform)

			err := s.Put(context.Background(), "shop", "products/p1.png", strings.NewReader("png"), 3, PutOptions{
				ContentType: "image/png",
				Public:      tt.public,
			})
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, fake.uploads())
		})
	}
}

func TestGCSStore_GetMissingObject(t *testing.T) {
	client, _ := newFakeGCSClient(t)
	s := NewGCSStore(client, false)

	obj, err := s.Get(context.Background(), "shop", "avatars/missing.png")
	assert.Nil(t, obj)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
