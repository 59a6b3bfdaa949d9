package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	repo "github.com/oksasatya/go-storefront-auth/internal/domain/repository"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/search"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
)

var avatarExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
}

// UserService covers administration and profile assets.
type UserService struct {
	Repo      repo.UserRepository
	Assets    *AssetBroker
	Directory UserDirectory
	Logger    *logrus.Logger
	now       func() time.Time
}

func NewUserService(r repo.UserRepository, assets *AssetBroker, dir UserDirectory, logger *logrus.Logger) *UserService {
	return &UserService{Repo: r, Assets: assets, Directory: dir, Logger: logger, now: time.Now}
}

// CreateUser provisions an account on behalf of creator. Only an ADMIN may
// hand out the ADMIN role.
func (s *UserService) CreateUser(ctx context.Context, creator entity.Role, in CreateUserInput) (*entity.User, error) {
	role := entity.RoleUser
	if in.Role != "" {
		r, err := entity.ParseRole(in.Role)
		if err != nil {
			return nil, ErrInvalidRole
		}
		role = r
	}
	if role.IsElevated() && creator != entity.RoleAdmin {
		return nil, ErrForbidden
	}
	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     in.Email,
		Password:  hash,
		Role:      role,
		IsActive:  true,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, err
	}
	indexUser(ctx, s.Directory, s.Logger, u)
	return u, nil
}

// UploadAvatar stores a new private avatar for targetID. The actor must be
// the target or an ADMIN. The previous object is left in place.
func (s *UserService) UploadAvatar(ctx context.Context, actor Principal, targetID int64, r io.Reader, size int64, filename, contentType string) (*entity.User, error) {
	if actor.UserID != targetID && actor.Role != entity.RoleAdmin {
		return nil, ErrForbidden
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !avatarExts[ext] || !strings.HasPrefix(contentType, "image/") {
		return nil, ErrInvalidFile
	}
	u, err := s.Repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	key := fmt.Sprintf("%suser-%d-%d%s", avatarPrefix, u.ID, s.now().UnixMilli(), ext)
	if _, err := s.Assets.Upload(ctx, entity.AssetAvatar, key, r, size, contentType); err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).WithField("key", key).Error("avatar upload failed")
		}
		return nil, err
	}
	if err := s.Repo.UpdateAvatarKey(ctx, u.ID, key); err != nil {
		return nil, err
	}
	u.AvatarKey = &key
	indexUser(ctx, s.Directory, s.Logger, u)
	return u, nil
}

func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]search.UserDocument, error) {
	if s.Directory == nil {
		return []search.UserDocument{}, nil
	}
	return s.Directory.Search(ctx, q, size)
}

// AvatarOwnerRecord loads the user an avatar file name claims to belong to
// and confirms the file is that user's current avatar.
func (s *UserService) AvatarOwnerRecord(ctx context.Context, ownerID int64, filename string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	if u.AvatarKey == nil || *u.AvatarKey != AvatarKey(filename) {
		return nil, ErrAssetNotFound
	}
	return u, nil
}
