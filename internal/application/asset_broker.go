package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/objectstore"
)

const avatarPrefix = "avatars/"

var avatarOwnerRe = regexp.MustCompile(`^user-(\d+)-`)

// AssetStream is an open private object. Callers must close Body.
type AssetStream struct {
	Body         io.ReadCloser
	ContentType  string
	Size         int64
	LastModified time.Time
}

// AssetBroker routes uploads to the public or private bucket according to
// the category policy and hands out access to private objects. It performs
// no authorization; callers decide who may reach it.
type AssetBroker struct {
	store         objectstore.ObjectStore
	publicBucket  string
	privateBucket string
}

func NewAssetBroker(store objectstore.ObjectStore, publicBucket, privateBucket string, log *logrus.Logger) *AssetBroker {
	if publicBucket == privateBucket && log != nil {
		log.WithField("bucket", publicBucket).
			Warn("public and private buckets are the same, private assets may be exposed")
	}
	return &AssetBroker{store: store, publicBucket: publicBucket, privateBucket: privateBucket}
}

func (b *AssetBroker) bucketFor(p entity.AccessPolicy) string {
	if p.Public {
		return b.publicBucket
	}
	return b.privateBucket
}

// Upload stores r under key. Public assets return their public URL, private
// ones return the key itself.
func (b *AssetBroker) Upload(ctx context.Context, category entity.AssetCategory, key string, r io.Reader, size int64, contentType string) (string, error) {
	p := entity.PolicyFor(category)
	bucket := b.bucketFor(p)
	err := b.store.Put(ctx, bucket, key, r, size, objectstore.PutOptions{
		ContentType:  contentType,
		CacheControl: p.CacheControl,
		Public:       p.Public,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if p.Public {
		return b.store.PublicURL(bucket, key), nil
	}
	return key, nil
}

// GrantAccess returns a URL a client can fetch the asset from directly.
func (b *AssetBroker) GrantAccess(ctx context.Context, key string, category entity.AssetCategory) (string, error) {
	p := entity.PolicyFor(category)
	if p.Public {
		return b.store.PublicURL(b.publicBucket, key), nil
	}
	u, err := b.store.SignedURL(ctx, b.privateBucket, key, p.GrantTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return u, nil
}

// Stream opens a private object for proxying.
func (b *AssetBroker) Stream(ctx context.Context, key string) (*AssetStream, error) {
	obj, err := b.store.Get(ctx, b.privateBucket, key)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &AssetStream{
		Body:         obj.Body,
		ContentType:  ct,
		Size:         obj.Size,
		LastModified: obj.LastModified,
	}, nil
}

// AvatarOwner extracts the user id from an avatar file name such as
// "user-12-1700000000000.png".
func AvatarOwner(filename string) (int64, bool) {
	m := avatarOwnerRe.FindStringSubmatch(filename)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// AvatarKey is the storage key for an avatar file name.
func AvatarKey(filename string) string { return avatarPrefix + filename }
