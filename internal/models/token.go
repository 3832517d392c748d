package models

import "time"

// RefreshToken represents a refresh token stored in the database
type RefreshToken struct {
	ID        int64     `db:"token_id"`
	Token     string    `db:"token"`
	UserID    int64     `db:"user_id"`
	ExpiredAt time.Time `db:"expired_at"`
	IsRevoked bool      `db:"is_revoked"`
	CreatedAt time.Time `db:"created_at"`
}

// Active reports whether the token is neither revoked nor past its expiry at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiredAt)
}
