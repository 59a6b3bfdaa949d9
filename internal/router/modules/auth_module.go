package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/ratelimit"
	handlers "github.com/oksasatya/go-storefront-auth/internal/interface/http"
	"github.com/oksasatya/go-storefront-auth/internal/interface/middleware"
)

// AuthModule wires session routes.
// Public: login (rate limited per IP), register, refresh, forgot/reset password, Google sign-in
// Protected: logout, profile
type AuthModule struct {
	Handler      *handlers.AuthHandler
	Auth         middleware.Authenticator
	LoginLimiter ratelimit.Limiter
	TrustProxy   bool
	Log          *logrus.Logger
}

func NewAuthModule(h *handlers.AuthHandler, auth middleware.Authenticator, limiter ratelimit.Limiter, trustProxy bool, log *logrus.Logger) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth, LoginLimiter: limiter, TrustProxy: trustProxy, Log: log}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/auth")

	loginLimiter := middleware.RateLimit(m.LoginLimiter, middleware.KeyByIP("login"), nil, m.Log)
	g.POST("/login", middleware.RealIP(m.TrustProxy), loginLimiter, m.Handler.Login)
	g.POST("/register", m.Handler.Register)
	g.POST("/refresh", m.Handler.Refresh)
	g.POST("/forgot-password", middleware.RealIP(m.TrustProxy), m.Handler.ForgotPassword)
	g.POST("/reset-password", m.Handler.ResetPassword)
	g.GET("/google", m.Handler.GoogleLogin)
	g.GET("/google/callback", m.Handler.GoogleCallback)

	auth := g.Group("")
	auth.Use(middleware.Authenticate(m.Auth))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/profile", m.Handler.Profile)
	}
}
