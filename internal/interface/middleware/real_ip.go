package middleware

import (
	"github.com/gin-gonic/gin"
)

// ProxyIPHeaders is the header order the engine should read client IPs from
// when it sits behind trusted proxies, Cloudflare first.
var ProxyIPHeaders = []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}

// RealIP sets the real client IP into Gin context (key: "real_ip").
// With trustProxy it defers to c.ClientIP(), which honours forwarded headers
// only when the peer is in the engine's trusted proxies.
// Without it the headers are ignored and only the socket address counts.
func RealIP(trustProxy bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", realIP(c, trustProxy))
		c.Next()
	}
}

func realIP(c *gin.Context, trustProxy bool) string {
	if trustProxy {
		return c.ClientIP()
	}
	return c.RemoteIP()
}
