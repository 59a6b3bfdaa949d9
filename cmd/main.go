package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/oksasatya/go-storefront-auth/config"
	"github.com/oksasatya/go-storefront-auth/internal/container"
	"github.com/oksasatya/go-storefront-auth/internal/domain/repository"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/memory"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/oauth"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/objectstore"
	pginfra "github.com/oksasatya/go-storefront-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/ratelimit"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/search"
	"github.com/oksasatya/go-storefront-auth/internal/interface/middleware"
	"github.com/oksasatya/go-storefront-auth/internal/router"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
	"github.com/oksasatya/go-storefront-auth/pkg/mailer"
	"github.com/oksasatya/go-storefront-auth/pkg/validation"
)

// closers run in reverse order on shutdown
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()
	var cleanup closers
	defer cleanup.run()

	repo, err := openUserRepo(ctx, cfg, logger, &cleanup)
	if err != nil {
		logger.Fatalf("credential store: %v", err)
	}

	limiter, err := newLoginLimiter(ctx, cfg, logger, &cleanup)
	if err != nil {
		logger.Fatalf("rate limiter: %v", err)
	}

	store, err := newObjectStore(ctx, cfg, logger, &cleanup)
	if err != nil {
		logger.Fatalf("object store: %v", err)
	}

	jwtManager := helpers.NewJWTManager(
		helpers.TokenSettings{Secret: cfg.JWTAccessSecret, TTL: cfg.AccessTTL},
		helpers.TokenSettings{Secret: cfg.JWTRefreshSecret, TTL: cfg.RefreshTTL},
		helpers.TokenSettings{Secret: cfg.JWTResetSecret, TTL: cfg.ResetTTL},
	)

	// Provide infra singletons to container for registry auto-wiring
	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetUserRepo(repo)
	container.SetLoginLimiter(limiter)
	container.SetObjectStore(store)
	container.SetJWT(jwtManager)
	wireNotifier(cfg, logger, &cleanup)
	wireSearch(cfg, logger)
	if cfg.GoogleEnabled() {
		container.SetIdentityProvider(oauth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL))
	} else {
		logger.Info("google sign-in disabled")
	}

	// Gin engine and global middleware
	r := gin.New()
	// forwarded headers are honoured only from configured proxies
	r.RemoteIPHeaders = middleware.ProxyIPHeaders
	if err := r.SetTrustedProxies(cfg.TrustedProxyCIDRs()); err != nil {
		logger.Fatalf("trusted proxies: %v", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func openUserRepo(ctx context.Context, cfg *config.Config, logger *logrus.Logger, cleanup *closers) (repository.UserRepository, error) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory credential store; data is lost on restart")
		return memory.NewUserRepository(), nil
	case "postgres":
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	cleanup.add(pool.Close)
	container.SetPGPool(pool)

	db := pginfra.OpenDB(pool)
	cleanup.add(func() { _ = db.Close() })
	if err := runMigrations(db, cfg.MigrationsDir, logger); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pginfra.NewUserRepository(db), nil
}

func runMigrations(db *sql.DB, migrationsDir string, logger *logrus.Logger) error {
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}

func newLoginLimiter(ctx context.Context, cfg *config.Config, logger *logrus.Logger, cleanup *closers) (ratelimit.Limiter, error) {
	switch cfg.RateLimitBackend {
	case "memory":
		return ratelimit.NewMemoryLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow), nil
	case "redis":
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cleanup.add(func() { _ = rdb.Close() })
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			// the limiter fails open, so keep serving
			logger.WithError(err).Warn("redis not reachable at startup")
		}
		container.SetRedis(rdb)
		return ratelimit.NewRedisLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow), nil
	default:
		return nil, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", cfg.RateLimitBackend)
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger, cleanup *closers) (objectstore.ObjectStore, error) {
	if cfg.StoragePublicBucket == "" || cfg.StoragePrivateBucket == "" {
		if cfg.StorageDriver != "memory" {
			return nil, errors.New("STORAGE_PUBLIC_BUCKET and STORAGE_PRIVATE_BUCKET are required")
		}
	}
	switch cfg.StorageDriver {
	case "gcs":
		client, err := objectstore.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { _ = client.Close() })
		return objectstore.NewGCSStore(client, cfg.GCSUniformAccess), nil
	case "s3":
		s, err := objectstore.NewS3Store(objectstore.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicDomain:    cfg.S3PublicDomain,
			ForceEdge:       cfg.S3Edge,
		})
		if err != nil {
			return nil, err
		}
		logger.WithField("edge", s.Edge()).Info("s3 object store ready")
		return s, nil
	case "memory":
		logger.Warn("using in-memory object store; uploads are lost on restart")
		return objectstore.NewMemoryStore("http://localhost:" + cfg.Port + "/_objects"), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

// wireNotifier publishes email jobs to RabbitMQ through a non-blocking
// dispatcher. Without a broker, mail is dropped and the API keeps working.
func wireNotifier(cfg *config.Config, logger *logrus.Logger, cleanup *closers) {
	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; emails are discarded")
		container.SetNotifier(mailer.Discard{})
		return
	}
	pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		logger.WithError(err).Error("rabbitmq unavailable; emails are discarded")
		container.SetNotifier(mailer.Discard{})
		return
	}
	cleanup.add(pub.Close)
	d := mailer.NewDispatcher(pub, logger, 256)
	// drain before the publisher closes
	cleanup.add(d.Close)
	container.SetNotifier(d)
}

func wireSearch(cfg *config.Config, logger *logrus.Logger) {
	if !cfg.ESEnabled {
		return
	}
	es, err := search.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.WithError(err).Error("elasticsearch unavailable; user search disabled")
		return
	}
	container.SetES(es)
	container.SetDirectory(search.NewUserIndex(es, cfg.ESUsersIndex))
}
