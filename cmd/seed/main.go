package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-storefront-auth/config"
	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/internal/domain/repository"
	pginfra "github.com/oksasatya/go-storefront-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Seeds the first ADMIN account. Re-running is a no-op once the email exists.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	email := getenv("SEED_ADMIN_EMAIL", "admin@example.com")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		var err error
		if password, err = helpers.RandomSecret(12); err != nil {
			logger.Fatalf("failed to generate password: %v", err)
		}
	}

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	db := pginfra.OpenDB(pool)
	defer func() { _ = db.Close() }()
	repo := pginfra.NewUserRepository(db)

	hash, err := helpers.HashPassword(password)
	if err != nil {
		logger.Fatalf("failed to hash password: %v", err)
	}
	u := &entity.User{
		FirstName: getenv("SEED_ADMIN_NAME", "Admin"),
		Email:     email,
		Password:  hash,
		Role:      entity.RoleAdmin,
		IsActive:  true,
	}
	if err := repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			logger.WithField("email", entity.NormalizeEmail(email)).Info("admin already seeded")
			return
		}
		logger.Fatalf("failed to seed admin: %v", err)
	}
	logger.WithField("id", u.ID).WithField("email", u.Email).Info("seeded admin")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" {
		logger.Warnf("generated password: %s (change it after first login)", password)
	}
}
