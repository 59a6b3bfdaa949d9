package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	handlers "github.com/oksasatya/go-storefront-auth/internal/interface/http"
	"github.com/oksasatya/go-storefront-auth/internal/interface/middleware"
)

// UserModule wires user administration and avatar routes. Every route
// requires a session; create and search are ADMIN only.
type UserModule struct {
	Users  *handlers.UserHandler
	Assets *handlers.AssetHandler
	Auth   middleware.Authenticator
}

func NewUserModule(users *handlers.UserHandler, assets *handlers.AssetHandler, auth middleware.Authenticator) *UserModule {
	return &UserModule{Users: users, Assets: assets, Auth: auth}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("")
	auth.Use(middleware.Authenticate(m.Auth))

	admin := auth.Group("")
	admin.Use(middleware.RequireRole(entity.RoleAdmin))
	{
		admin.POST("/users", m.Users.CreateUser)
		admin.GET("/users/search", m.Users.Search)
	}

	auth.PATCH("/users/:id/avatar", m.Users.UploadAvatar)
	auth.GET("/images/private/avatars/:filename", m.Assets.StreamAvatar)
}
