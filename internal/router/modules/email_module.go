package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/ratelimit"
	handlers "github.com/oksasatya/go-storefront-auth/internal/interface/http"
	"github.com/oksasatya/go-storefront-auth/internal/interface/middleware"
)

type EmailModule struct {
	Handler *handlers.EmailHandler
	Auth    middleware.Authenticator
	Log     *logrus.Logger
}

func NewEmailModule(h *handlers.EmailHandler, auth middleware.Authenticator, log *logrus.Logger) *EmailModule {
	return &EmailModule{Handler: h, Auth: auth, Log: log}
}

func (m *EmailModule) Register(rg *gin.RouterGroup) {
	// ADMIN-only manual send, 60/min per caller
	limiter := ratelimit.NewMemoryLimiter(60, time.Minute)
	auth := rg.Group("")
	auth.Use(
		middleware.Authenticate(m.Auth),
		middleware.RequireRole(entity.RoleAdmin),
		middleware.RateLimit(limiter, middleware.KeyByUserID("email"), nil, m.Log),
	)
	{
		auth.POST("/email/send", m.Handler.Send)
	}
}
