package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/database"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/models"
)

const userColumns = `user_id, email, password_hash, nickname, profile_image, is_deleted, created_at, updated_at`

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository creates a new instance of PostgresUserRepository
func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// FindByEmail retrieves a live user by email (used for login)
func (repo *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return repo.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND is_deleted = FALSE`, email)
}

// FindByID retrieves a live user by id. Soft-deleted users are never returned.
func (repo *PostgresUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return repo.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1 AND is_deleted = FALSE`, id)
}

func (repo *PostgresUserRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	found := true
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &u, query, arg)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	if !found {
		return nil, nil // User not found
	}
	return &u, nil
}

// Create inserts a new user and returns the stored row.
func (repo *PostgresUserRepository) Create(ctx context.Context, user models.User) (*models.User, error) {
	var created models.User
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &created, `
        INSERT INTO users (email, password_hash, nickname, profile_image)
        VALUES ($1, $2, $3, $4)
        RETURNING `+userColumns,
			user.Email, user.PasswordHash, user.Nickname, user.ProfileImage)
	})
	if err != nil {
		if dup := duplicateField(err); dup != nil {
			return nil, fmt.Errorf("error creating user: %w", dup)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return &created, nil
}

// UpdateProfile changes the nickname and profile image of a live user.
func (repo *PostgresUserRepository) UpdateProfile(ctx context.Context, id int64, nickname, profileImage string) (*models.User, error) {
	var updated models.User
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &updated, `
        UPDATE users SET nickname = $1, profile_image = $2, updated_at = NOW()
        WHERE user_id = $3 AND is_deleted = FALSE
        RETURNING `+userColumns,
			nickname, profileImage, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		if dup := duplicateField(err); dup != nil {
			return nil, fmt.Errorf("error updating user: %w", dup)
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return &updated, nil
}

// UpdatePassword replaces the stored password hash.
func (repo *PostgresUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return repo.execOnLiveUser(ctx, `
        UPDATE users SET password_hash = $1, updated_at = NOW()
        WHERE user_id = $2 AND is_deleted = FALSE`, passwordHash, id)
}

// SoftDelete flags the user as deleted. The row is kept.
func (repo *PostgresUserRepository) SoftDelete(ctx context.Context, id int64) error {
	return repo.execOnLiveUser(ctx, `
        UPDATE users SET is_deleted = TRUE, updated_at = NOW()
        WHERE user_id = $1 AND is_deleted = FALSE`, id)
}

func (repo *PostgresUserRepository) execOnLiveUser(ctx context.Context, query string, args ...any) error {
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("error checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("error updating user: %w", err)
	}
	return nil
}

// CheckEmailExists checks whether any account, deleted or not, holds the email.
func (repo *PostgresUserRepository) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	return repo.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

// CheckNicknameExists checks for a duplicate live nickname, excluding a specific user
func (repo *PostgresUserRepository) CheckNicknameExists(ctx context.Context, nickname string, excludeUserID int64) (bool, error) {
	return repo.exists(ctx, `
        SELECT EXISTS (SELECT 1 FROM users WHERE nickname = $1 AND is_deleted = FALSE AND user_id <> $2)`,
		nickname, excludeUserID)
}

func (repo *PostgresUserRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return tx.GetContext(ctx, &exists, query, args...)
	})
	if err != nil {
		return false, fmt.Errorf("error checking user existence: %w", err)
	}
	return exists, nil
}

// nicknameLiveIndex is the partial unique index over live nicknames.
const nicknameLiveIndex = "users_nickname_live_idx"

// duplicateField maps a unique violation to the sentinel of the taken column,
// or returns nil for any other error.
func duplicateField(err error) error {
	var pgErr *pq.Error
	if !errors.As(err, &pgErr) || pgErr.Code.Name() != "unique_violation" {
		return nil
	}
	if pgErr.Constraint == nicknameLiveIndex {
		return ErrDuplicateNickname
	}
	return ErrDuplicateEmail
}
