package application

import (
	"path"
	"strings"
	"time"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
)

// AvatarRoute is the proxy path under which private avatars are served.
const AvatarRoute = "/api/images/private/avatars/"

// UserResponse is the only shape in which a user leaves the service.
type UserResponse struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	Avatar      *string   `json:"avatar"`
	IsOAuthUser bool      `json:"is_oauth_user"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		Avatar:      avatarPath(u.AvatarKey),
		IsOAuthUser: u.IsOAuthUser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func avatarPath(key *string) *string {
	if key == nil || !strings.HasPrefix(*key, avatarPrefix) {
		return nil
	}
	p := AvatarRoute + path.Base(*key)
	return &p
}
