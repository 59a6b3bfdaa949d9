package objectstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Store_PublicURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want string
		edge bool
	}{
		{
			name: "aws",
			cfg:  S3Config{Region: "eu-west-1", AccessKeyID: "k", SecretAccessKey: "s"},
			want: "https://shop-public.s3.eu-west-1.amazonaws.com/products/p1.png",
		},
		{
			name: "r2 with public domain",
			cfg: S3Config{
				Endpoint:     "https://acc123.r2.cloudflarestorage.com",
				PublicDomain: "https://cdn.example.com/",
			},
			want: "https://cdn.example.com/products/p1.png",
			edge: true,
		},
		{
			name: "r2 fallback domain",
			cfg:  S3Config{Endpoint: "https://acc123.r2.cloudflarestorage.com"},
			want: "https://shop-public.r2.dev/products/p1.png",
			edge: true,
		},
		{
			name: "forced edge",
			cfg:  S3Config{Endpoint: "http://localhost:9000", ForceEdge: true, PublicDomain: "http://localhost:9000/shop-public"},
			want: "http://localhost:9000/shop-public/products/p1.png",
			edge: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewS3Store(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.edge, s.Edge())
			assert.Equal(t, tt.want, s.PublicURL("shop-public", "products/p1.png"))
		})
	}
}

func TestS3Host(t *testing.T) {
	host, secure, err := s3Host("http://minio:9000", "")
	require.NoError(t, err)
	assert.Equal(t, "minio:9000", host)
	assert.False(t, secure)

	host, secure, err = s3Host("", "")
	require.NoError(t, err)
	assert.Equal(t, "s3.us-east-1.amazonaws.com", host)
	assert.True(t, secure)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore("http://local")
	ctx := context.Background()

	err := s.Put(ctx, "private", "avatars/user-1-1.png", strings.NewReader("png"), 3,
		PutOptions{ContentType: "image/png", CacheControl: "private, max-age=3600"})
	require.NoError(t, err)

	obj, err := s.Get(ctx, "private", "avatars/user-1-1.png")
	require.NoError(t, err)
	defer obj.Body.Close()
	body, _ := io.ReadAll(obj.Body)
	assert.Equal(t, "png", string(body))
	assert.Equal(t, int64(3), obj.Size)
	assert.Equal(t, "image/png", obj.ContentType)

	_, err = s.Get(ctx, "private", "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
