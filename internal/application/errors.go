package application

import (
	"errors"

	repo "github.com/oksasatya/go-storefront-auth/internal/domain/repository"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrForbidden           = errors.New("forbidden")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRole         = errors.New("invalid role")
	ErrInvalidFile         = errors.New("invalid file")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrStorageUnavailable  = errors.New("storage unavailable")

	ErrUserAlreadyExists = repo.ErrUserAlreadyExists
	ErrInvalidToken      = helpers.ErrInvalidToken
	ErrTokenExpired      = helpers.ErrTokenExpired
)
