package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/application"
	"github.com/oksasatya/go-storefront-auth/internal/domain/entity"
	"github.com/oksasatya/go-storefront-auth/pkg/response"
)

const streamBufferSize = 32 << 10

type AssetHandler struct {
	Users  *application.UserService
	Assets *application.AssetBroker
	Logger *logrus.Logger
}

func NewAssetHandler(users *application.UserService, assets *application.AssetBroker, logger *logrus.Logger) *AssetHandler {
	return &AssetHandler{Users: users, Assets: assets, Logger: logger}
}

// StreamAvatar GET /api/images/private/avatars/:filename
// Proxies a private avatar to its owner or an ADMIN.
func (h *AssetHandler) StreamAvatar(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	filename := c.Param("filename")
	ownerID, ok := application.AvatarOwner(filename)
	if !ok {
		response.Fail(c, http.StatusNotFound, "not found", nil)
		return
	}
	if p.UserID != ownerID && p.Role != entity.RoleAdmin {
		response.Fail(c, http.StatusForbidden, "forbidden", nil)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.Users.AvatarOwnerRecord(ctx, ownerID, filename); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	s, err := h.Assets.Stream(ctx, application.AvatarKey(filename))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	defer func() { _ = s.Body.Close() }()

	policy := entity.PolicyFor(entity.AssetAvatar)
	c.Header("Content-Type", s.ContentType)
	if s.Size >= 0 {
		c.Header("Content-Length", strconv.FormatInt(s.Size, 10))
	}
	c.Header("Cache-Control", policy.CacheControl)
	if !s.LastModified.IsZero() {
		c.Header("Last-Modified", s.LastModified.UTC().Format(http.TimeFormat))
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	c.Status(http.StatusOK)

	buf := make([]byte, streamBufferSize)
	if _, err := io.CopyBuffer(c.Writer, s.Body, buf); err != nil && h.Logger != nil {
		// usually the client went away; headers are already sent
		h.Logger.WithError(err).WithField("key", application.AvatarKey(filename)).Debug("avatar stream interrupted")
	}
}
