package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

var tokenRowColumns = []string{"token_id", "token", "user_id", "expired_at", "is_revoked", "created_at"}

func TestPostgresRefreshTokenRepository_Save(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresRefreshTokenRepository(db)
	expiredAt := time.Now().Add(14 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+refresh_tokens\s+\(user_id,\s*token,\s*expired_at\).*RETURNING\s+token_id`).
		WithArgs(int64(42), "tok-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"token_id"}).AddRow(int64(9)))
	mock.ExpectCommit()

	id, err := repo.Save(context.Background(), 42, "tok-1", expiredAt)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

func TestPostgresRefreshTokenRepository_SaveRollsBack(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresRefreshTokenRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT\s+INTO\s+refresh_tokens`).
		WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	_, err := repo.Save(context.Background(), 42, "tok-1", time.Now())
	assert.ErrorContains(t, err, "error saving refresh token")
	assert.ErrorContains(t, err, "db down")
}

func TestPostgresRefreshTokenRepository_FindByToken(t *testing.T) {
	t.Run("Active", func(t *testing.T) {
		db, mock := newSQLMock(t)
		repo := NewPostgresRefreshTokenRepository(db)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`(?s)SELECT .* FROM refresh_tokens\s+WHERE token = \$1 AND is_revoked = FALSE AND expired_at > NOW\(\)`).
			WithArgs("tok-1").
			WillReturnRows(sqlmock.NewRows(tokenRowColumns).
				AddRow(int64(1), "tok-1", int64(42), now.Add(time.Hour), false, now))
		mock.ExpectCommit()

		rt, err := repo.FindByToken(context.Background(), "tok-1")
		require.NoError(t, err)
		require.NotNil(t, rt)
		assert.Equal(t, int64(42), rt.UserID)
		assert.Equal(t, "tok-1", rt.Token)
		assert.False(t, rt.IsRevoked)
	})

	t.Run("RevokedOrMissing", func(t *testing.T) {
		db, mock := newSQLMock(t)
		repo := NewPostgresRefreshTokenRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM refresh_tokens`).
			WithArgs("tok-revoked").
			WillReturnRows(sqlmock.NewRows(tokenRowColumns))
		mock.ExpectCommit()

		rt, err := repo.FindByToken(context.Background(), "tok-revoked")
		require.NoError(t, err)
		assert.Nil(t, rt)
	})

	t.Run("StorageFault", func(t *testing.T) {
		db, mock := newSQLMock(t)
		repo := NewPostgresRefreshTokenRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM refresh_tokens`).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		rt, err := repo.FindByToken(context.Background(), "tok-1")
		assert.Error(t, err)
		assert.Nil(t, rt)
	})
}

func TestPostgresRefreshTokenRepository_FindByUserID(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresRefreshTokenRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)WHERE user_id = \$1 AND is_revoked = FALSE AND expired_at > NOW\(\)\s+ORDER BY created_at DESC, token_id DESC LIMIT 1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(tokenRowColumns).
			AddRow(int64(3), "tok-newest", int64(42), now.Add(time.Hour), false, now))
	mock.ExpectCommit()

	rt, err := repo.FindByUserID(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.Equal(t, "tok-newest", rt.Token)
}

func TestPostgresRefreshTokenRepository_Revoke(t *testing.T) {
	t.Run("NoMatchingRowIsNotAnError", func(t *testing.T) {
		db, mock := newSQLMock(t)
		repo := NewPostgresRefreshTokenRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE refresh_tokens SET is_revoked = TRUE WHERE token = \$1`).
			WithArgs("unknown").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		assert.NoError(t, repo.Revoke(context.Background(), "unknown"))
	})

	t.Run("StorageFault", func(t *testing.T) {
		db, mock := newSQLMock(t)
		repo := NewPostgresRefreshTokenRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE refresh_tokens`).WillReturnError(errors.New("db down"))
		mock.ExpectRollback()

		assert.ErrorContains(t, repo.Revoke(context.Background(), "tok"), "error revoking refresh token")
	})
}

func TestPostgresRefreshTokenRepository_RevokeAllForUser(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresRefreshTokenRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET is_revoked = TRUE WHERE user_id = \$1 AND is_revoked = FALSE`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.RevokeAllForUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPostgresRefreshTokenRepository_DeleteExpired(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewPostgresRefreshTokenRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE expired_at <= NOW\(\)`).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	n, err := repo.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
