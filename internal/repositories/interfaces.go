package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/models"
)

var (
	// ErrUserNotFound is returned by mutations that target a missing or deleted user.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned when an email or live nickname is already taken.
	ErrDuplicateUser = errors.New("user with this email or nickname already exists")
	// ErrDuplicateEmail and ErrDuplicateNickname name the taken field; both match ErrDuplicateUser.
	ErrDuplicateEmail    = fmt.Errorf("%w: email", ErrDuplicateUser)
	ErrDuplicateNickname = fmt.Errorf("%w: nickname", ErrDuplicateUser)
)

// UserRepository defines the interface for user data operations.
// Lookups return (nil, nil) when no live user matches.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user models.User) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, nickname, profileImage string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SoftDelete(ctx context.Context, id int64) error
	CheckEmailExists(ctx context.Context, email string) (bool, error)
	// CheckNicknameExists ignores the user with excludeUserID (0 excludes nobody).
	CheckNicknameExists(ctx context.Context, nickname string, excludeUserID int64) (bool, error)
}

// RefreshTokenRepository is the ledger of issued refresh tokens.
// Lookups only ever return active (non-revoked, unexpired) records and
// return (nil, nil) when none match.
type RefreshTokenRepository interface {
	Save(ctx context.Context, userID int64, token string, expiredAt time.Time) (int64, error)
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	// FindByUserID returns the most recently created active token of the user.
	FindByUserID(ctx context.Context, userID int64) (*models.RefreshToken, error)
	// Revoke is idempotent: unknown or already revoked tokens are not an error.
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
