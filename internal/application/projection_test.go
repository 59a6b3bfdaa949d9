package application

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
)

func TestToUserResponse_HidesSecrets(t *testing.T) {
	key := "avatars/user-3-1700000000000.png"
	hash := "$argon2id$secret"
	u := &entity.User{
		ID: 3, Email: "ana@example.com", Password: "$2a$10$bcrypt", Role: entity.RoleUser,
		AvatarKey: &key, HashedRefreshToken: &hash,
	}

	resp := ToUserResponse(u)
	require.NotNil(t, resp.Avatar)
	assert.Equal(t, "/api/images/private/avatars/user-3-1700000000000.png", *resp.Avatar)

	b, err := json.Marshal(resp)
	require.NoError(t, err)
	out := string(b)
	assert.NotContains(t, out, "bcrypt")
	assert.NotContains(t, out, "argon2id")
	assert.NotContains(t, out, `"avatars/user-3`)
}

func TestToUserResponse_NoAvatar(t *testing.T) {
	resp := ToUserResponse(&entity.User{ID: 1})
	assert.Nil(t, resp.Avatar)
}
