package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/auth"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/models"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/services"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/pkg/utils"
)

// UserHandler handles user-related HTTP requests.
type UserHandler struct {
	userService services.UserService
	cookie      CookieConfig
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserService, cookie CookieConfig) *UserHandler {
	return &UserHandler{
		userService: userService,
		cookie:      cookie,
	}
}

// availability is the body of the email and nickname checks.
type availability struct {
	Available bool `json:"available"`
}

// Signup handles the creation of a new user.
func (h *UserHandler) Signup(c *gin.Context) {
	var req models.UserSignup
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, utils.BadRequest("Email, password and nickname are required"))
		return
	}

	user, err := h.userService.Signup(c.Request.Context(), services.SignupInput{
		Email:        req.Email,
		Password:     req.Password,
		Nickname:     req.Nickname,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		utils.SendError(c, err)
		return
	}

	utils.SendSuccessResponse(c, http.StatusCreated, "User created successfully", user)
}

// CheckEmail reports whether an email is still free.
func (h *UserHandler) CheckEmail(c *gin.Context) {
	available, err := h.userService.IsEmailAvailable(c.Request.Context(), c.Param("email"))
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, "Email checked", availability{Available: available})
}

// CheckNickname reports whether a nickname is still free. An authenticated
// caller's own nickname counts as free when ?user_id names the caller.
func (h *UserHandler) CheckNickname(c *gin.Context) {
	var exclude int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			utils.SendError(c, utils.BadRequest("Invalid user id"))
			return
		}
		exclude = id
	}

	available, err := h.userService.IsNicknameAvailable(c.Request.Context(), c.Param("nickname"), exclude)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, "Nickname checked", availability{Available: available})
}

// GetUser returns the caller's profile.
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, "User retrieved successfully", user)
}

// UpdateProfile changes the caller's nickname and profile image.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	var req models.UserProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, utils.BadRequest("Nickname is required"))
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), id, req)
	if err != nil {
		utils.SendError(c, err)
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, "Profile updated successfully", user)
}

// ChangePassword replaces the caller's password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	var req models.PasswordChange
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, utils.BadRequest("Current and new password are required"))
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		utils.SendError(c, err)
		return
	}
	utils.SendSuccessResponse(c, http.StatusOK, "Password changed successfully", nil)
}

// DeleteAccount soft-deletes the caller and clears the refresh cookie.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteAccount(c.Request.Context(), id); err != nil {
		utils.SendError(c, err)
		return
	}

	clearRefreshCookie(c, h.cookie)
	utils.SendSuccessResponse(c, http.StatusOK, "User deleted successfully", nil)
}

// caller returns the authenticated user id. Routes using it sit behind
// RequireOwner, so it equals the :user_id path parameter.
func (h *UserHandler) caller(c *gin.Context) (int64, bool) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		utils.SendError(c, utils.Unauthorized(auth.MsgAuthRequired))
		return 0, false
	}
	return id.UserID, true
}
