package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/ratelimit"
	"github.com/oksasatya/go-storefront-auth/internal/interface/middleware"
)

type DebugModule struct {
	TrustProxy bool
	Log        *logrus.Logger
}

func NewDebugModule(trustProxy bool, log *logrus.Logger) *DebugModule {
	return &DebugModule{TrustProxy: trustProxy, Log: log}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// expvar metrics, rate-limited per IP; in-cluster scrapers bypass
	rl := middleware.RateLimit(ratelimit.NewMemoryLimiter(120, time.Minute), middleware.KeyByIP("debug"), middleware.AllowPrivateIP(), m.Log)
	rg.GET("/debug/vars", middleware.RealIP(m.TrustProxy), rl, gin.WrapH(expvar.Handler()))
}
