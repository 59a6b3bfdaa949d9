package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/internal/domain/repository"
)

// UserRepository keeps users in process memory. It is used with
// STORE_DRIVER=memory for local development and by tests. Every read returns
// a copy, so callers never alias stored records.
type UserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*entity.User
	byEmail map[string]int64
	now     func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[int64]*entity.User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	email := entity.NormalizeEmail(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[email]; taken {
		return repository.ErrUserAlreadyExists
	}
	r.nextID++
	now := r.now()
	u.ID = r.nextID
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now
	r.byID[u.ID] = u.Clone()
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[entity.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *UserRepository) SetRefreshTokenHash(_ context.Context, id int64, hash *string) error {
	return r.mutate(id, func(u *entity.User) {
		if hash == nil {
			u.HashedRefreshToken = nil
			return
		}
		h := *hash
		u.HashedRefreshToken = &h
	})
}

func (r *UserRepository) SwapRefreshTokenHash(_ context.Context, id int64, oldHash, newHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if u.HashedRefreshToken == nil || *u.HashedRefreshToken != oldHash {
		return false, nil
	}
	h := newHash
	u.HashedRefreshToken = &h
	u.UpdatedAt = r.now()
	return true, nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id int64, hash string) error {
	return r.mutate(id, func(u *entity.User) { u.Password = hash })
}

func (r *UserRepository) UpdateAvatarKey(_ context.Context, id int64, key string) error {
	return r.mutate(id, func(u *entity.User) {
		k := key
		u.AvatarKey = &k
	})
}

// WithinTx runs fn directly: every single write is already atomic and no
// operation spans more than one record.
func (r *UserRepository) WithinTx(_ context.Context, fn func(repository.UserRepository) error) error {
	return fn(r)
}

func (r *UserRepository) mutate(id int64, fn func(*entity.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = r.now()
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
