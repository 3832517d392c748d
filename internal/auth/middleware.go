package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/repositories"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/pkg/utils"
)

// RefreshCookieName is the cookie holding the refresh token.
const RefreshCookieName = "refreshToken"

// Client-facing rejection messages. The cause only goes to the logs.
const (
	MsgAuthRequired = "Authentication required"
	MsgReLogin      = "Re-login required"
)

// Resolution is a successfully resolved request identity. RenewedAccessToken
// is set when the access token had to be re-minted from the refresh token.
type Resolution struct {
	Identity           Identity
	RenewedAccessToken string
}

// SessionResolver turns the credentials of a request into an identity,
// renewing an unusable access token from a still-active refresh token.
type SessionResolver struct {
	codec  *Codec
	tokens repositories.RefreshTokenRepository
	users  repositories.UserRepository
}

// NewSessionResolver creates a SessionResolver.
func NewSessionResolver(codec *Codec, tokens repositories.RefreshTokenRepository, users repositories.UserRepository) *SessionResolver {
	return &SessionResolver{codec: codec, tokens: tokens, users: users}
}

func rejected(message, format string, args ...any) error {
	return &utils.AppError{Kind: utils.KindUnauthorized, Message: message, Err: fmt.Errorf(format, args...)}
}

// Resolve evaluates one request. Every failure, storage faults included, is an
// Unauthorized AppError.
func (r *SessionResolver) Resolve(ctx context.Context, authorization, refreshCookie string) (res *Resolution, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, rejected(MsgReLogin, "panic during session resolution: %v", p)
		}
	}()

	accessToken, ok := bearerToken(authorization)
	if !ok {
		return nil, rejected(MsgAuthRequired, "missing bearer token")
	}

	// Fast path, no storage access.
	verified := r.codec.VerifyAccessToken(accessToken)
	if verified.Valid {
		return &Resolution{Identity: identityFromClaims(verified.Claims)}, nil
	}

	if refreshCookie == "" {
		return nil, rejected(MsgReLogin, "access token %s and no refresh cookie", verified.Reason)
	}

	refresh := r.codec.VerifyRefreshToken(refreshCookie)
	if !refresh.Valid {
		return nil, rejected(MsgReLogin, "refresh token %s", refresh.Reason)
	}
	userID := refresh.Claims.UserID

	stored, err := r.tokens.FindByUserID(ctx, userID)
	if err != nil {
		return nil, rejected(MsgReLogin, "ledger lookup for user %d: %v", userID, err)
	}
	// A superseded or revoked token can still be well-signed.
	if stored == nil || stored.Token != refreshCookie {
		return nil, rejected(MsgReLogin, "refresh token of user %d is not the active one", userID)
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return nil, rejected(MsgReLogin, "user lookup for %d: %v", userID, err)
	}
	if user == nil {
		return nil, rejected(MsgReLogin, "user %d missing or deleted", userID)
	}

	renewed, err := r.codec.IssueAccessToken(user)
	if err != nil {
		return nil, rejected(MsgReLogin, "re-issuing access token for %d: %v", userID, err)
	}

	return &Resolution{
		Identity: Identity{
			UserID:       user.ID,
			Email:        user.Email,
			Nickname:     user.Nickname,
			ProfileImage: user.ProfileImage,
		},
		RenewedAccessToken: renewed,
	}, nil
}

func bearerToken(header string) (string, bool) {
	token, found := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// Middleware requires an authenticated caller. On silent renewal the new
// access token is returned in the Authorization response header.
func (r *SessionResolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, _ := c.Cookie(RefreshCookieName)

		res, err := r.Resolve(c.Request.Context(), c.GetHeader("Authorization"), cookie)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"client": c.ClientIP(),
			}).Infof("SessionMiddleware: rejected: %v", err)
			utils.AbortWithError(c, err)
			return
		}

		if res.RenewedAccessToken != "" {
			c.Header("Authorization", "Bearer "+res.RenewedAccessToken)
			c.Set(TokenRenewedKey, true)
			logrus.Debugf("SessionMiddleware: renewed access token for user %d", res.Identity.UserID)
		}

		c.Set(IdentityKey, res.Identity)
		c.Set(UserIDKey, res.Identity.UserID)
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), res.Identity))
		c.Next()
	}
}

// RefreshTokenMiddleware only checks the refresh cookie cryptographically and
// exposes the token and its user id to the handler.
func RefreshTokenMiddleware(codec *Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(RefreshCookieName)
		if err != nil || cookie == "" {
			utils.AbortWithError(c, rejected(MsgReLogin, "missing refresh cookie"))
			return
		}

		verified := codec.VerifyRefreshToken(cookie)
		if !verified.Valid {
			logrus.Infof("RefreshTokenMiddleware: refresh token %s", verified.Reason)
			utils.AbortWithError(c, rejected(MsgReLogin, "refresh token %s", verified.Reason))
			return
		}

		c.Set(RefreshTokenKey, cookie)
		c.Set(UserIDKey, verified.Claims.UserID)
		c.Next()
	}
}

// RequireOwner rejects requests whose :param user id is not the caller's.
// It must run after the session middleware.
func RequireOwner(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			logrus.Error("RequireOwner: identity not found in context")
			utils.AbortWithError(c, utils.Unauthorized(MsgAuthRequired))
			return
		}

		target, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil || target <= 0 {
			utils.AbortWithError(c, utils.BadRequest("Invalid user id"))
			return
		}

		if target != id.UserID {
			logrus.Warnf("RequireOwner: user %d tried to access user %d", id.UserID, target)
			utils.AbortWithError(c, utils.Forbidden("You do not have permission to access this resource"))
			return
		}

		c.Next()
	}
}
