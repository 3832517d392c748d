package models

import "time"

// User is a board member account. Soft-deleted rows stay in storage with
// IsDeleted set and are invisible to authentication lookups.
type User struct {
	ID           int64     `json:"user_id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Nickname     string    `json:"nickname" db:"nickname"`
	ProfileImage string    `json:"profile_image" db:"profile_image"`
	IsDeleted    bool      `json:"-" db:"is_deleted"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserProfileUpdate carries the editable profile fields.
type UserProfileUpdate struct {
	Nickname     string `json:"nickname" binding:"required"`
	ProfileImage string `json:"profile_image"`
}

// UserResponse is a simplified struct for API responses, omitting sensitive fields
type UserResponse struct {
	ID           int64     `json:"user_id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	ProfileImage string    `json:"profile_image"`
	CreatedAt    time.Time `json:"created_at"`
}

// Response converts the stored user into its public representation.
func (u *User) Response() *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Nickname:     u.Nickname,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
	}
}

// UserSignup is the body of an account creation request.
type UserSignup struct {
	Email        string `json:"email" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Nickname     string `json:"nickname" binding:"required"`
	ProfileImage string `json:"profile_image"`
}

// PasswordChange is the body of a password change request.
type PasswordChange struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}
