package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-storefront-auth/internal/application"
	"github.com/oksasatya/go-storefront-auth/internal/infrastructure/oauth"
	"github.com/oksasatya/go-storefront-auth/pkg/helpers"
	"github.com/oksasatya/go-storefront-auth/pkg/response"
)

const oauthStateTTL = 10 * time.Minute

type AuthHandler struct {
	Sessions    *application.SessionService
	Provider    oauth.IdentityProvider
	Cookies     *helpers.Manager
	Logger      *logrus.Logger
	FrontendURL string
}

func NewAuthHandler(sessions *application.SessionService, provider oauth.IdentityProvider, cookies *helpers.Manager, logger *logrus.Logger, frontendURL string) *AuthHandler {
	return &AuthHandler{
		Sessions:    sessions,
		Provider:    provider,
		Cookies:     cookies,
		Logger:      logger,
		FrontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type registerRequest struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,strongpwd"`
	Role      string `json:"role"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,strongpwd"`
}

func (h *AuthHandler) writeSession(c *gin.Context, status int, res *application.LoginResult, msg string) {
	t := res.Tokens
	h.Cookies.SetPair(c, t.AccessToken, t.AccessTokenExpiry, t.RefreshToken, t.RefreshTokenExpiry)
	response.OK(c, status, gin.H{"user": application.ToUserResponse(res.User)}, msg, gin.H{
		"access_expires_at":  t.AccessTokenExpiry,
		"refresh_expires_at": t.RefreshTokenExpiry,
	})
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.Sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.writeSession(c, http.StatusOK, res, "login successful")
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	res, err := h.Sessions.Register(c.Request.Context(), application.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.writeSession(c, http.StatusCreated, res, "registration successful")
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := helpers.TokenFromRequest(c, helpers.RefreshCookie)
	if token == "" {
		response.Fail(c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, err := h.Sessions.Refresh(c.Request.Context(), token)
	if err != nil {
		h.Cookies.Clear(c)
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.OK(c, http.StatusOK, gin.H{"refreshed": true}, "token refreshed", gin.H{
		"access_expires_at":  pair.AccessTokenExpiry,
		"refresh_expires_at": pair.RefreshTokenExpiry,
	})
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.Sessions.Logout(c.Request.Context(), p.UserID); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.OK(c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}

// Profile GET /api/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	u, err := h.Sessions.Profile(c.Request.Context(), p.UserID)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, application.ToUserResponse(u), "profile", nil)
}

// ForgotPassword POST /api/auth/forgot-password. The reply never reveals
// whether the email is registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	meta := application.RequestMeta{IP: clientIP(c), UserAgent: c.GetHeader("User-Agent")}
	if err := h.Sessions.RequestPasswordReset(c.Request.Context(), req.Email, meta); err != nil && h.Logger != nil {
		h.Logger.WithError(err).Error("password reset request failed")
	}
	response.OK(c, http.StatusOK, gin.H{"sent": true},
		"if an account exists for this email, a reset link has been sent", nil)
}

// ResetPassword POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	if err := h.Sessions.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"reset": true}, "password has been reset", nil)
}

// GoogleLogin GET /api/auth/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.Provider == nil {
		response.Fail(c, http.StatusNotFound, "google sign-in is not configured", nil)
		return
	}
	state := uuid.NewString()
	h.Cookies.SetState(c, state, oauthStateTTL)
	c.Redirect(http.StatusFound, h.Provider.AuthCodeURL(state))
}

// GoogleCallback GET /api/auth/google/callback
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.Provider == nil {
		response.Fail(c, http.StatusNotFound, "google sign-in is not configured", nil)
		return
	}
	want, _ := c.Cookie(helpers.StateCookie)
	h.Cookies.ClearState(c)
	if want == "" || c.Query("state") != want {
		h.failOAuth(c, "state_mismatch", nil)
		return
	}
	code := c.Query("code")
	if code == "" {
		h.failOAuth(c, "missing_code", nil)
		return
	}
	id, err := h.Provider.Exchange(c.Request.Context(), code)
	if err != nil {
		h.failOAuth(c, "exchange_failed", err)
		return
	}
	res, err := h.Sessions.LoginWithIdentity(c.Request.Context(), application.ExternalIdentity{
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	})
	if err != nil {
		h.failOAuth(c, "login_failed", err)
		return
	}
	t := res.Tokens
	h.Cookies.SetPair(c, t.AccessToken, t.AccessTokenExpiry, t.RefreshToken, t.RefreshTokenExpiry)
	c.Redirect(http.StatusFound, h.FrontendURL+"/auth/google/success")
}

func (h *AuthHandler) failOAuth(c *gin.Context, reason string, err error) {
	if err != nil && h.Logger != nil {
		h.Logger.WithError(err).WithField("reason", reason).Warn("google sign-in failed")
	}
	c.Redirect(http.StatusFound, h.FrontendURL+"/auth/google/error?reason="+reason)
}
