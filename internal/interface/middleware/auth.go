package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-storefront-auth/internal/application"
	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
	"github.com/oksasatya/go-storefront-auth/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxRoleKey      = "role"
	ctxPrincipalKey = "principal"
)

// Authenticator resolves an access token to the caller.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (application.Principal, error)
}

// Authenticate reads the access_token cookie (or a bearer header), resolves
// the caller and stores userID and role in the Gin context.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := helpers.TokenFromRequest(c, helpers.AccessCookie)
		if token == "" {
			response.Fail(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		p, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		c.Set(ctxPrincipalKey, p)
		c.Set(CtxUserIDKey, p.UserID)
		c.Set(CtxRoleKey, string(p.Role))
		c.Next()
	}
}

// RequireRole admits only callers holding one of roles. It must run after
// Authenticate.
func RequireRole(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			response.Fail(c, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		response.Fail(c, http.StatusForbidden, "forbidden", nil)
	}
}

// PrincipalFrom returns the caller attached by Authenticate.
func PrincipalFrom(c *gin.Context) (application.Principal, bool) {
	v, ok := c.Get(ctxPrincipalKey)
	if !ok {
		return application.Principal{}, false
	}
	p, ok := v.(application.Principal)
	return p, ok
}
