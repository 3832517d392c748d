package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/models"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/repositories"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/pkg/utils"
)

// Validation messages shared by signup and profile edits.
const (
	msgInvalidEmail    = "Invalid email format"
	msgWeakPassword    = "Password must be 8 to 20 characters and include uppercase, lowercase, digit and special characters"
	msgInvalidNickname = "Nickname must be 1 to 10 characters without spaces"
	msgEmailTaken      = "Email already exists"
	msgNicknameTaken   = "Nickname already exists"
	msgUserNotFound    = "User not found"
)

// SignupInput is the data needed to open an account.
type SignupInput struct {
	Email        string
	Password     string
	Nickname     string
	ProfileImage string
}

// UserService provides business logic for user management.
type UserService interface {
	Signup(ctx context.Context, in SignupInput) (*models.UserResponse, error)
	GetUser(ctx context.Context, id int64) (*models.UserResponse, error)
	UpdateProfile(ctx context.Context, id int64, update models.UserProfileUpdate) (*models.UserResponse, error)
	ChangePassword(ctx context.Context, id int64, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, id int64) error
	IsEmailAvailable(ctx context.Context, email string) (bool, error)
	IsNicknameAvailable(ctx context.Context, nickname string, excludeUserID int64) (bool, error)
}

type userService struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.RefreshTokenRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository, tokenRepo repositories.RefreshTokenRepository) UserService {
	return &userService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
	}
}

// Signup validates the input, hashes the password and creates the user.
func (s *userService) Signup(ctx context.Context, in SignupInput) (*models.UserResponse, error) {
	in.Email = strings.TrimSpace(in.Email)
	if !utils.IsValidEmail(in.Email) {
		return nil, utils.BadRequest(msgInvalidEmail)
	}
	if !utils.IsStrongPassword(in.Password) {
		return nil, utils.BadRequest(msgWeakPassword)
	}
	if !utils.IsValidNickname(in.Nickname) {
		return nil, utils.BadRequest(msgInvalidNickname)
	}

	emailExists, err := s.userRepo.CheckEmailExists(ctx, in.Email)
	if err != nil {
		return nil, utils.Internal(err)
	}
	if emailExists {
		return nil, utils.BadRequest(msgEmailTaken)
	}
	nicknameExists, err := s.userRepo.CheckNicknameExists(ctx, in.Nickname, 0)
	if err != nil {
		return nil, utils.Internal(err)
	}
	if nicknameExists {
		return nil, utils.BadRequest(msgNicknameTaken)
	}

	hashedPassword, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.Internal(err)
	}

	user, err := s.userRepo.Create(ctx, models.User{
		Email:        in.Email,
		PasswordHash: hashedPassword,
		Nickname:     in.Nickname,
		ProfileImage: in.ProfileImage,
	})
	// Lost a race against a concurrent signup.
	if errors.Is(err, repositories.ErrDuplicateNickname) {
		return nil, utils.BadRequest(msgNicknameTaken)
	}
	if errors.Is(err, repositories.ErrDuplicateUser) {
		return nil, utils.BadRequest(msgEmailTaken)
	}
	if err != nil {
		return nil, utils.Internal(err)
	}

	logrus.Infof("UserService.Signup: created user %d", user.ID)
	return user.Response(), nil
}

// GetUser retrieves a live user by id.
func (s *userService) GetUser(ctx context.Context, id int64) (*models.UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, utils.Internal(err)
	}
	if user == nil {
		return nil, utils.BadRequest(msgUserNotFound)
	}
	return user.Response(), nil
}

// UpdateProfile changes nickname and profile image.
func (s *userService) UpdateProfile(ctx context.Context, id int64, update models.UserProfileUpdate) (*models.UserResponse, error) {
	if !utils.IsValidNickname(update.Nickname) {
		return nil, utils.BadRequest(msgInvalidNickname)
	}

	exists, err := s.userRepo.CheckNicknameExists(ctx, update.Nickname, id)
	if err != nil {
		return nil, utils.Internal(err)
	}
	if exists {
		return nil, utils.BadRequest(msgNicknameTaken)
	}

	user, err := s.userRepo.UpdateProfile(ctx, id, update.Nickname, update.ProfileImage)
	switch {
	case errors.Is(err, repositories.ErrUserNotFound):
		return nil, utils.BadRequest(msgUserNotFound)
	case errors.Is(err, repositories.ErrDuplicateUser):
		return nil, utils.BadRequest(msgNicknameTaken)
	case err != nil:
		return nil, utils.Internal(err)
	}
	return user.Response(), nil
}

// ChangePassword verifies the current password before storing the new one.
func (s *userService) ChangePassword(ctx context.Context, id int64, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return utils.Internal(err)
	}
	if user == nil {
		return utils.BadRequest(msgUserNotFound)
	}
	if !utils.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return utils.BadRequest("Current password is incorrect")
	}
	if !utils.IsStrongPassword(newPassword) {
		return utils.BadRequest(msgWeakPassword)
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return utils.Internal(err)
	}
	if err := s.userRepo.UpdatePassword(ctx, id, hashedPassword); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return utils.BadRequest(msgUserNotFound)
		}
		return utils.Internal(err)
	}
	return nil
}

// DeleteAccount soft-deletes the user and revokes all of their refresh tokens.
// The user is hidden first, so no renewal can succeed even if revocation fails.
func (s *userService) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.userRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return utils.BadRequest(msgUserNotFound)
		}
		return utils.Internal(err)
	}

	revoked, err := s.tokenRepo.RevokeAllForUser(ctx, id)
	if err != nil {
		logrus.Errorf("UserService.DeleteAccount: user %d deleted but token revocation failed: %v", id, err)
		return utils.Internal(err)
	}
	logrus.Infof("UserService.DeleteAccount: deleted user %d, revoked %d refresh tokens", id, revoked)
	return nil
}

// IsEmailAvailable reports whether the email can be used for a new account.
func (s *userService) IsEmailAvailable(ctx context.Context, email string) (bool, error) {
	if !utils.IsValidEmail(email) {
		return false, utils.BadRequest(msgInvalidEmail)
	}
	exists, err := s.userRepo.CheckEmailExists(ctx, email)
	if err != nil {
		return false, utils.Internal(err)
	}
	return !exists, nil
}

// IsNicknameAvailable reports whether the nickname is free, ignoring excludeUserID.
func (s *userService) IsNicknameAvailable(ctx context.Context, nickname string, excludeUserID int64) (bool, error) {
	if !utils.IsValidNickname(nickname) {
		return false, utils.BadRequest(msgInvalidNickname)
	}
	exists, err := s.userRepo.CheckNicknameExists(ctx, nickname, excludeUserID)
	if err != nil {
		return false, utils.Internal(err)
	}
	return !exists, nil
}
