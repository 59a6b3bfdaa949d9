package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-storefront-auth/internal/application"
	"github.com/oksasatya/go-storefront-auth/internal/container"
	handlers "github.com/oksasatya/go-storefront-auth/internal/interface/http"
	pginfra "github.com/oksasatya/go-storefront-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/go-storefront-auth/internal/router/modules"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
	"github.com/oksasatya/go-storefront-auth/pkg/response"
)

// Deps are the services shared by the HTTP modules.
type Deps struct {
	Sessions *application.SessionService
	Users    *application.UserService
	Assets   *application.AssetBroker
}

func buildDeps() Deps {
	cfg := container.GetConfig()
	log := container.GetLogger()
	repo := container.GetUserRepo()

	sessions := application.NewSessionService(
		repo,
		container.GetJWT(),
		container.GetNotifier(),
		container.GetDirectory(),
		log,
		application.MailSettings{Brand: cfg.Brand(), ResetPasswordURL: cfg.ResetPasswordURL},
	)
	assets := application.NewAssetBroker(container.GetObjectStore(), cfg.StoragePublicBucket, cfg.StoragePrivateBucket, log)
	users := application.NewUserService(repo, assets, container.GetDirectory(), log)

	return Deps{Sessions: sessions, Users: users, Assets: assets}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	log := container.GetLogger()
	d := buildDeps()

	cookies := helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)
	authH := handlers.NewAuthHandler(d.Sessions, container.GetIdentityProvider(), cookies, log, cfg.FrontendURL)
	userH := handlers.NewUserHandler(d.Users, log)
	assetH := handlers.NewAssetHandler(d.Users, d.Assets, log)
	emailH := handlers.NewEmailHandler(container.GetNotifier(), cfg.MailSendEnabled)

	r.Add(ModuleFunc(health))
	r.Add(modules.NewAuthModule(authH, d.Sessions, container.GetLoginLimiter(), cfg.TrustProxyHeaders, log))
	r.Add(modules.NewUserModule(userH, assetH, d.Sessions))
	r.Add(modules.NewEmailModule(emailH, d.Sessions, log))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(cfg.TrustProxyHeaders, log))
	}
}

// health GET /api/healthz. Postgres is required; Redis only backs the login
// limiter, which fails open, so an outage there is reported but not fatal.
func health(rg *gin.RouterGroup) {
	rg.GET("/healthz", func(c *gin.Context) {
		ctx := c.Request.Context()
		status := http.StatusOK
		checks := gin.H{"postgres": "disabled", "redis": "disabled"}
		if pool := container.GetPGPool(); pool != nil {
			checks["postgres"] = "ok"
			if err := pginfra.Ping(ctx, pool); err != nil {
				checks["postgres"] = "down"
				status = http.StatusServiceUnavailable
			}
		}
		if rdb := container.GetRedis(); rdb != nil {
			checks["redis"] = "ok"
			if err := helpers.PingRedis(ctx, rdb); err != nil {
				checks["redis"] = "degraded"
			}
		}
		if status != http.StatusOK {
			response.Fail(c, status, "unhealthy", checks)
			return
		}
		response.OK(c, status, checks, "ok", nil)
	})
}
