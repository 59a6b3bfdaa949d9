package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository is the credential store contract the core depends on.
// Implementations must enforce email uniqueness (case-insensitive) and
// report the losing writer of a duplicate insert as ErrUserAlreadyExists.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)

	// SetRefreshTokenHash overwrites the stored hash; nil clears the session.
	SetRefreshTokenHash(ctx context.Context, id int64, hash *string) error
	// SwapRefreshTokenHash replaces oldHash with newHash only if oldHash is
	// still the stored value. It reports whether the swap happened.
	SwapRefreshTokenHash(ctx context.Context, id int64, oldHash, newHash string) (bool, error)

	UpdatePassword(ctx context.Context, id int64, hash string) error
	UpdateAvatarKey(ctx context.Context, id int64, key string) error

	// WithinTx runs fn against a repository bound to a single transaction.
	WithinTx(ctx context.Context, fn func(UserRepository) error) error
}
