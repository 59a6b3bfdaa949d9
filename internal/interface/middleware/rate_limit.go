package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/ratelimit"
	"github.com/oksasatya/go-storefront-auth/pkg/response"
)

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.RemoteIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

// KeyByIP limits by client IP within a named scope, e.g. "login".
func KeyByIP(scope string) KeyFunc {
	return func(c *gin.Context) string {
		return "rl:" + scope + ":ip:" + ipFromCtx(c)
	}
}

// KeyByUserID limits by authenticated user, falling back to IP. Use after Authenticate.
func KeyByUserID(scope string) KeyFunc {
	return func(c *gin.Context) string {
		if id := c.GetInt64(CtxUserIDKey); id > 0 {
			return "rl:" + scope + ":user:" + strconv.FormatInt(id, 10)
		}
		return "rl:" + scope + ":ip:" + ipFromCtx(c)
	}
}

type AllowFunc func(*gin.Context) bool // return true to bypass the limit

// RateLimit enforces l per key with standard headers. Limiter errors fail open.
func RateLimit(l ratelimit.Limiter, keyFn KeyFunc, allow AllowFunc, log *logrus.Logger) gin.HandlerFunc {
	if l == nil || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		key := keyFn(c)
		d, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			if log != nil {
				log.WithError(err).WithField("key", key).Warn("rate limiter unavailable, allowing request")
			}
			c.Next()
			return
		}

		resetSec := d.RetryAfterSeconds()
		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(resetSec))
			lerr := &ratelimit.LimitError{RetryAfter: d.RetryAfter}
			response.Fail(c, http.StatusTooManyRequests, lerr.Error(), gin.H{"retry_after": resetSec})
			return
		}
		c.Next()
	}
}
