package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/application"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/ratelimit"
	"github.com/oksasatya/go-storefront-auth/internal/interface/middleware"
	"github.com/oksasatya/go-storefront-auth/pkg/response"
	"github.com/oksasatya/go-storefront-auth/pkg/validation"
)

// statusFor maps domain errors to a stable HTTP status and public message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, application.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, "invalid refresh token"
	case errors.Is(err, application.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, application.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, application.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, application.ErrAssetNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, application.ErrUserAlreadyExists):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, application.ErrInvalidRole):
		return http.StatusBadRequest, "invalid role"
	case errors.Is(err, application.ErrInvalidFile):
		return http.StatusBadRequest, "invalid file"
	case errors.Is(err, application.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(c *gin.Context, log *logrus.Logger, err error) {
	var lerr *ratelimit.LimitError
	if errors.As(err, &lerr) {
		secs := lerr.RetryAfterSeconds()
		c.Header("Retry-After", strconv.Itoa(secs))
		response.Fail(c, http.StatusTooManyRequests, lerr.Error(), gin.H{"retry_after": secs})
		return
	}
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.WithError(err).WithField("request_id", c.GetString("request_id")).
			WithField("path", c.FullPath()).Error("request failed")
	}
	response.Fail(c, status, msg, nil)
}

func writeBindError(c *gin.Context, err error) {
	response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}

func principal(c *gin.Context) (application.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "unauthorized", nil)
	}
	return p, ok
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.RemoteIP()
}
