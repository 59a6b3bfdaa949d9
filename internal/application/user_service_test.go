package application

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/objectstore"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/search"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
)

func newUserService(env *testEnv, store objectstore.ObjectStore) *UserService {
	broker := NewAssetBroker(store, "public", "private", helpers.NopLogger())
	return NewUserService(env.repo, broker, env.dir, helpers.NopLogger())
}

func TestCreateUser_RoleRules(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env, objectstore.NewMemoryStore("http://local"))
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, entity.RoleAdmin, CreateUserInput{Email: "a@example.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, u.Role)

	admin, err := svc.CreateUser(ctx, entity.RoleAdmin, CreateUserInput{Email: "b@example.com", Password: "Secret123!", Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, admin.Role)

	_, err = svc.CreateUser(ctx, entity.RoleUser, CreateUserInput{Email: "c@example.com", Password: "Secret123!", Role: "ADMIN"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreateUser(ctx, entity.RoleAdmin, CreateUserInput{Email: "d@example.com", Password: "Secret123!", Role: "ROOT"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.CreateUser(ctx, entity.RoleAdmin, CreateUserInput{Email: "A@example.com", Password: "Secret123!"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
	assert.Len(t, env.dir.indexed, 2)
}

func TestUploadAvatar(t *testing.T) {
	env := newTestEnv(t)
	store := objectstore.NewMemoryStore("http://local")
	svc := newUserService(env, store)
	ctx := context.Background()
	u := env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)

	got, err := svc.UploadAvatar(ctx, Principal{UserID: u.ID, Role: entity.RoleUser}, u.ID,
		strings.NewReader("png-bytes"), 9, "Me.PNG", "image/png")
	require.NoError(t, err)
	require.NotNil(t, got.AvatarKey)
	assert.Regexp(t, regexp.MustCompile(`^avatars/user-\d+-\d+\.png$`), *got.AvatarKey)

	exists, public := store.Has("private", *got.AvatarKey)
	assert.True(t, exists)
	assert.False(t, public)

	stored, _ := env.repo.GetByID(ctx, u.ID)
	assert.Equal(t, *got.AvatarKey, *stored.AvatarKey)
}

func TestUploadAvatar_Authorization(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env, objectstore.NewMemoryStore("http://local"))
	ctx := context.Background()
	owner := env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)
	other := env.seedUser(t, "bo@example.com", "Secret123!", entity.RoleUser)

	_, err := svc.UploadAvatar(ctx, Principal{UserID: other.ID, Role: entity.RoleUser}, owner.ID,
		strings.NewReader("x"), 1, "a.png", "image/png")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.UploadAvatar(ctx, Principal{UserID: other.ID, Role: entity.RoleAdmin}, owner.ID,
		strings.NewReader("x"), 1, "a.png", "image/png")
	assert.NoError(t, err)

	_, err = svc.UploadAvatar(ctx, Principal{UserID: owner.ID, Role: entity.RoleUser}, owner.ID,
		strings.NewReader("x"), 1, "a.exe", "application/octet-stream")
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = svc.UploadAvatar(ctx, Principal{UserID: 1, Role: entity.RoleAdmin}, 999,
		strings.NewReader("x"), 1, "a.png", "image/png")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUploadAvatar_StorageFailure(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env, failingStore{err: errBackend})
	u := env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)

	_, err := svc.UploadAvatar(context.Background(), Principal{UserID: u.ID, Role: entity.RoleUser}, u.ID,
		strings.NewReader("x"), 1, "a.png", "image/png")
	assert.ErrorIs(t, err, ErrStorageUnavailable)

	stored, _ := env.repo.GetByID(context.Background(), u.ID)
	assert.Nil(t, stored.AvatarKey)
}

func TestAvatarOwnerRecord(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env, objectstore.NewMemoryStore("http://local"))
	ctx := context.Background()
	u := env.seedUser(t, "ana@example.com", "Secret123!", entity.RoleUser)
	require.NoError(t, env.repo.UpdateAvatarKey(ctx, u.ID, "avatars/user-1-100.png"))

	_, err := svc.AvatarOwnerRecord(ctx, u.ID, "user-1-100.png")
	assert.NoError(t, err)
	_, err = svc.AvatarOwnerRecord(ctx, u.ID, "user-1-99.png")
	assert.ErrorIs(t, err, ErrAssetNotFound)
	_, err = svc.AvatarOwnerRecord(ctx, 404, "user-404-1.png")
	assert.ErrorIs(t, err, ErrAssetNotFound)
}

func TestSearchUsers(t *testing.T) {
	env := newTestEnv(t)
	env.dir.results = []search.UserDocument{{ID: 1, Email: "ana@example.com"}}
	svc := newUserService(env, objectstore.NewMemoryStore("http://local"))

	docs, err := svc.SearchUsers(context.Background(), "ana", 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	svc.Directory = nil
	docs, err = svc.SearchUsers(context.Background(), "ana", 10)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
