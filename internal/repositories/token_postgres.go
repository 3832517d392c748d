package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/database"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/models"
)

const refreshTokenColumns = `token_id, token, user_id, expired_at, is_revoked, created_at`

// PostgresRefreshTokenRepository implements RefreshTokenRepository for PostgreSQL.
// Every method runs in its own transaction.
type PostgresRefreshTokenRepository struct {
	db *sqlx.DB
}

// NewPostgresRefreshTokenRepository creates a new instance of PostgresRefreshTokenRepository
func NewPostgresRefreshTokenRepository(db *sqlx.DB) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{db: db}
}

// Save inserts a new refresh token and returns its id.
func (repo *PostgresRefreshTokenRepository) Save(ctx context.Context, userID int64, token string, expiredAt time.Time) (int64, error) {
	var id int64
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		return tx.QueryRowxContext(ctx, `
        INSERT INTO refresh_tokens (user_id, token, expired_at) VALUES ($1, $2, $3)
        RETURNING token_id`, userID, token, expiredAt).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("error saving refresh token: %w", err)
	}
	return id, nil
}

// FindByToken retrieves an active refresh token by its value.
func (repo *PostgresRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	return repo.findOne(ctx, `
        SELECT `+refreshTokenColumns+` FROM refresh_tokens
        WHERE token = $1 AND is_revoked = FALSE AND expired_at > NOW()`, token)
}

// FindByUserID retrieves the newest active refresh token of a user.
func (repo *PostgresRefreshTokenRepository) FindByUserID(ctx context.Context, userID int64) (*models.RefreshToken, error) {
	return repo.findOne(ctx, `
        SELECT `+refreshTokenColumns+` FROM refresh_tokens
        WHERE user_id = $1 AND is_revoked = FALSE AND expired_at > NOW()
        ORDER BY created_at DESC, token_id DESC LIMIT 1`, userID)
}

func (repo *PostgresRefreshTokenRepository) findOne(ctx context.Context, query string, arg any) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	found := true
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &rt, query, arg)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error querying refresh token: %w", err)
	}
	if !found {
		return nil, nil // Token not found
	}
	return &rt, nil
}

// Revoke marks a refresh token as revoked. Missing tokens are not an error.
func (repo *PostgresRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE refresh_tokens SET is_revoked = TRUE WHERE token = $1`, token)
		return err
	})
	if err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes all live tokens of a user and returns how many were revoked.
func (repo *PostgresRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	var revoked int64
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE refresh_tokens SET is_revoked = TRUE WHERE user_id = $1 AND is_revoked = FALSE`, userID)
		if err != nil {
			return err
		}
		revoked, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("error revoking all user refresh tokens: %w", err)
	}
	return revoked, nil
}

// DeleteExpired hard-deletes every token past its expiry, revoked or not.
func (repo *PostgresRefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var deleted int64
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expired_at <= NOW()`)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("error deleting expired refresh tokens: %w", err)
	}
	return deleted, nil
}
