package entity

import (
	"strings"
	"time"
)

// User is the aggregate root for the identity domain.
// Password holds a bcrypt hash. HashedRefreshToken is nil exactly when the
// user has no active session.
type User struct {
	ID                 int64
	FirstName          string
	LastName           string
	Email              string
	Password           string
	Role               Role
	IsActive           bool
	AvatarKey          *string
	HashedRefreshToken *string
	IsOAuthUser        bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Clone returns a deep copy so callers never share pointer fields.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.AvatarKey != nil {
		k := *u.AvatarKey
		cp.AvatarKey = &k
	}
	if u.HashedRefreshToken != nil {
		h := *u.HashedRefreshToken
		cp.HashedRefreshToken = &h
	}
	return &cp
}

func (u *User) HasSession() bool { return u.HashedRefreshToken != nil }
