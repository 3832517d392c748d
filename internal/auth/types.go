package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	UserID      int64  `json:"user_id"`
	AccessToken string `json:"accessToken"`
}

// TokenResponse is the body of a successful refresh.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID       int64
	Email        string
	Nickname     string
	ProfileImage string
}

func identityFromClaims(c *Claims) Identity {
	return Identity{
		UserID:       c.UserID,
		Email:        c.Email,
		Nickname:     c.Nickname,
		ProfileImage: c.ProfileImage,
	}
}

// Context keys set by the middlewares.
const (
	IdentityKey     = "identity"
	UserIDKey       = "userID"
	RefreshTokenKey = "refreshToken"
	TokenRenewedKey = "tokenRenewed"
)

type identityCtxKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// IdentityFrom returns the identity resolved by the session middleware.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}
