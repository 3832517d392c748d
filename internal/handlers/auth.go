package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/auth"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/services"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/pkg/utils"
)

// CookieConfig controls the attributes of the refresh token cookie.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	authService services.AuthService
	cookie      CookieConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService services.AuthService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
	}
}

// setRefreshCookie writes the HttpOnly, SameSite=Strict refresh token cookie.
func setRefreshCookie(c *gin.Context, cfg CookieConfig, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.RefreshCookieName, token, maxAge, "/", "", cfg.Secure, true)
}

func clearRefreshCookie(c *gin.Context, cfg CookieConfig) {
	setRefreshCookie(c, cfg, "", -1)
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, utils.BadRequest("Invalid request payload"))
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		utils.SendError(c, utils.BadRequest("Email and password are required"))
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.SendError(c, err)
		return
	}

	setRefreshCookie(c, h.cookie, res.RefreshToken, int(h.cookie.MaxAge.Seconds()))
	utils.SendSuccessResponse(c, http.StatusOK, "Login successful", auth.LoginResponse{
		UserID:      res.UserID,
		AccessToken: res.AccessToken,
	})
}

// Refresh issues a new access token for the refresh cookie checked by
// auth.RefreshTokenMiddleware.
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := c.GetString(auth.RefreshTokenKey)
	userID := c.GetInt64(auth.UserIDKey)
	if refreshToken == "" || userID <= 0 {
		logrus.Error("AuthHandler.Refresh: refresh token middleware did not run")
		utils.SendError(c, utils.Unauthorized(auth.MsgReLogin))
		return
	}

	accessToken, err := h.authService.Refresh(c.Request.Context(), refreshToken, userID)
	if err != nil {
		utils.SendError(c, err)
		return
	}

	utils.SendSuccessResponse(c, http.StatusOK, "Token refreshed successfully", auth.TokenResponse{
		AccessToken: accessToken,
	})
}

// Logout revokes the refresh cookie, if any, and clears it.
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(auth.RefreshCookieName)

	if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil {
		utils.SendError(c, err)
		return
	}

	clearRefreshCookie(c, h.cookie)
	utils.SendSuccessResponse(c, http.StatusOK, "Logged out successfully", nil)
}

// LogoutAll revokes every refresh token of the caller.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		utils.SendError(c, utils.Unauthorized(auth.MsgAuthRequired))
		return
	}

	if err := h.authService.LogoutAll(c.Request.Context(), id.UserID); err != nil {
		utils.SendError(c, err)
		return
	}

	clearRefreshCookie(c, h.cookie)
	utils.SendSuccessResponse(c, http.StatusOK, "Logged out from all sessions", nil)
}
