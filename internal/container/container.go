package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/config"
	"github.com/oksasatya/go-storefront-auth/internal/application"
	"github.com/oksasatya/go-storefront-auth/internal/domain/repository"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/oauth"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/objectstore"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/ratelimit"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
	"github.com/oksasatya/go-storefront-auth/pkg/mailer"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	esClient    *elasticsearch.Client

	userRepo     repository.UserRepository
	jwtManager   *helpers.JWTManager
	loginLimiter ratelimit.Limiter
	objectStore  objectstore.ObjectStore
	notifier     application.Notifier
	directory    application.UserDirectory
	identity     oauth.IdentityProvider
)

func SetConfig(c *config.Config)    { cfg = c }
func GetConfig() *config.Config     { return cfg }
func SetLogger(l *logrus.Logger)    { logger = l }
func GetLogger() *logrus.Logger     { return logger }
func SetPGPool(p *pgxpool.Pool)     { pgPool = p }
func GetPGPool() *pgxpool.Pool      { return pgPool }
func SetRedis(r *redis.Client)      { redisClient = r }
func GetRedis() *redis.Client       { return redisClient }
func SetES(c *elasticsearch.Client) { esClient = c }
func GetES() *elasticsearch.Client  { return esClient }

func SetUserRepo(r repository.UserRepository) { userRepo = r }
func GetUserRepo() repository.UserRepository  { return userRepo }
func SetJWT(m *helpers.JWTManager)            { jwtManager = m }
func GetJWT() *helpers.JWTManager             { return jwtManager }

// SetLoginLimiter stores the limiter guarding POST /auth/login.
func SetLoginLimiter(l ratelimit.Limiter) { loginLimiter = l }
func GetLoginLimiter() ratelimit.Limiter  { return loginLimiter }

func SetObjectStore(s objectstore.ObjectStore) { objectStore = s }
func GetObjectStore() objectstore.ObjectStore  { return objectStore }

// Notifier defaults to mailer.Discard when nothing was set.
func SetNotifier(n application.Notifier) { notifier = n }
func GetNotifier() application.Notifier {
	if notifier == nil {
		return mailer.Discard{}
	}
	return notifier
}

func SetDirectory(d application.UserDirectory) { directory = d }
func GetDirectory() application.UserDirectory  { return directory }

// Identity provider stays nil when Google sign-in is not configured.
func SetIdentityProvider(p oauth.IdentityProvider) { identity = p }
func GetIdentityProvider() oauth.IdentityProvider  { return identity }
