package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const r2Host = "r2.cloudflarestorage.com"

type S3Config struct {
	Endpoint        string // empty means AWS for Region
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicDomain    string
	// ForceEdge treats the endpoint as an edge store (Cloudflare R2) even when
	// the host does not say so.
	ForceEdge bool
}

// S3Store talks to AWS S3 or an S3-compatible edge store such as R2.
type S3Store struct {
	client       *minio.Client
	region       string
	publicDomain string
	edge         bool
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	host, secure, err := s3Host(cfg.Endpoint, cfg.Region)
	if err != nil {
		return nil, err
	}
	edge := cfg.ForceEdge || strings.Contains(host, r2Host)
	region := cfg.Region
	if edge && region == "" {
		region = "auto"
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &S3Store{
		client:       client,
		region:       region,
		publicDomain: strings.TrimRight(cfg.PublicDomain, "/"),
		edge:         edge,
	}, nil
}

func s3Host(endpoint, region string) (string, bool, error) {
	if endpoint == "" {
		if region == "" {
			region = "us-east-1"
		}
		return "s3." + region + ".amazonaws.com", true, nil
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid s3 endpoint %q: %w", endpoint, err)
	}
	return u.Host, u.Scheme != "http", nil
}

// Edge reports whether the store runs in edge (no ACL) mode.
func (s *S3Store) Edge() bool { return s.edge }

func (s *S3Store) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) error {
	po := minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: opts.CacheControl,
	}
	// edge stores reject ACL headers; visibility comes from the bucket
	if opts.Public && !s.edge {
		po.UserMetadata = map[string]string{"x-amz-acl": "public-read"}
	}
	if _, err := s.client.PutObject(ctx, bucket, key, r, size, po); err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(err, bucket, key)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, s.mapErr(err, bucket, key)
	}
	return &Object{
		Body:         obj,
		ContentType:  info.ContentType,
		Size:         info.Size,
		LastModified: info.LastModified,
	}, nil
}

func (s *S3Store) mapErr(err error, bucket, key string) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return ErrObjectNotFound
	}
	return fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
}

func (s *S3Store) SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("s3 sign %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

func (s *S3Store) PublicURL(bucket, key string) string {
	if s.edge {
		if s.publicDomain != "" {
			return s.publicDomain + "/" + key
		}
		return fmt.Sprintf("https://%s.r2.dev/%s", bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, s.region, key)
}

var _ ObjectStore = (*S3Store)(nil)
