package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/models"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/repositories"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/pkg/utils"
)

type sessionFixture struct {
	codec    *Codec
	users    *repositories.MemoryUserRepository
	tokens   *repositories.MemoryRefreshTokenRepository
	resolver *SessionResolver
	router   *gin.Engine
	user     *models.User
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &sessionFixture{
		codec:  newTestCodec(t),
		users:  repositories.NewMemoryUserRepository(),
		tokens: repositories.NewMemoryRefreshTokenRepository(),
	}
	user, err := f.users.Create(context.Background(), models.User{
		Email:        "teddy@example.com",
		PasswordHash: "unused",
		Nickname:     "teddy",
	})
	require.NoError(t, err)
	f.user = user
	f.resolver = NewSessionResolver(f.codec, f.tokens, f.users)

	f.router = gin.New()
	f.router.GET("/me", f.resolver.Middleware(), func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		require.True(t, ok)
		ctxID, ok := IdentityFromContext(c.Request.Context())
		require.True(t, ok)
		assert.Equal(t, id, ctxID)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "renewed": c.GetBool(TokenRenewedKey)})
	})
	f.router.GET("/users/:user_id", f.resolver.Middleware(), RequireOwner("user_id"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	f.router.POST("/auth/refresh", RefreshTokenMiddleware(f.codec), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64(UserIDKey), "token": c.GetString(RefreshTokenKey)})
	})
	return f
}

func (f *sessionFixture) expiredAccessToken(t *testing.T) string {
	t.Helper()
	f.codec.now = func() time.Time { return time.Now().Add(-time.Hour) }
	defer func() { f.codec.now = time.Now }()
	token, err := f.codec.IssueAccessToken(f.user)
	require.NoError(t, err)
	return token
}

func (f *sessionFixture) activeRefreshToken(t *testing.T) string {
	t.Helper()
	token, exp, err := f.codec.IssueRefreshToken(f.user.ID)
	require.NoError(t, err)
	_, err = f.tokens.Save(context.Background(), f.user.ID, token, exp)
	require.NoError(t, err)
	return token
}

func (f *sessionFixture) do(method, path, bearer, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) utils.JSONResponse {
	t.Helper()
	var body utils.JSONResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSessionMiddleware(t *testing.T) {
	t.Run("ValidAccessTokenFastPath", func(t *testing.T) {
		f := newSessionFixture(t)
		access, err := f.codec.IssueAccessToken(f.user)
		require.NoError(t, err)

		w := f.do(http.MethodGet, "/me", access, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Authorization"))
		assert.Contains(t, w.Body.String(), `"renewed":false`)
	})

	t.Run("MissingHeader", func(t *testing.T) {
		f := newSessionFixture(t)
		refresh := f.activeRefreshToken(t)

		w := f.do(http.MethodGet, "/me", "", refresh)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "refresh cookie alone is not enough")
		assert.Equal(t, MsgAuthRequired, decodeResponse(t, w).Message)
	})

	t.Run("NonBearerHeader", func(t *testing.T) {
		f := newSessionFixture(t)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Basic dGVkZHk6cHc=")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("TamperedAccessTokenWithoutCookie", func(t *testing.T) {
		f := newSessionFixture(t)
		access, err := f.codec.IssueAccessToken(f.user)
		require.NoError(t, err)

		w := f.do(http.MethodGet, "/me", access+"x", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, MsgReLogin, decodeResponse(t, w).Message)
	})

	t.Run("ExpiredAccessTokenRenewsSilently", func(t *testing.T) {
		f := newSessionFixture(t)
		refresh := f.activeRefreshToken(t)

		w := f.do(http.MethodGet, "/me", f.expiredAccessToken(t), refresh)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"renewed":true`)

		header := w.Header().Get("Authorization")
		require.True(t, strings.HasPrefix(header, "Bearer "))
		res := f.codec.VerifyAccessToken(strings.TrimPrefix(header, "Bearer "))
		require.True(t, res.Valid)
		assert.Equal(t, f.user.ID, res.Claims.UserID)
	})

	t.Run("SupersededRefreshTokenRejected", func(t *testing.T) {
		f := newSessionFixture(t)
		old := f.activeRefreshToken(t)
		f.activeRefreshToken(t)

		w := f.do(http.MethodGet, "/me", f.expiredAccessToken(t), old)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("RevokedRefreshTokenRejected", func(t *testing.T) {
		f := newSessionFixture(t)
		refresh := f.activeRefreshToken(t)
		require.NoError(t, f.tokens.Revoke(context.Background(), refresh))

		w := f.do(http.MethodGet, "/me", f.expiredAccessToken(t), refresh)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("UnknownButWellSignedRefreshTokenRejected", func(t *testing.T) {
		f := newSessionFixture(t)
		unsaved, _, err := f.codec.IssueRefreshToken(f.user.ID)
		require.NoError(t, err)

		w := f.do(http.MethodGet, "/me", f.expiredAccessToken(t), unsaved)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("DeletedUserRejected", func(t *testing.T) {
		f := newSessionFixture(t)
		refresh := f.activeRefreshToken(t)
		require.NoError(t, f.users.SoftDelete(context.Background(), f.user.ID))

		w := f.do(http.MethodGet, "/me", f.expiredAccessToken(t), refresh)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("AccessTokenAsRefreshCookieRejected", func(t *testing.T) {
		f := newSessionFixture(t)
		access, err := f.codec.IssueAccessToken(f.user)
		require.NoError(t, err)

		w := f.do(http.MethodGet, "/me", "garbage", access)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

type brokenLedger struct {
	repositories.RefreshTokenRepository
}

func (brokenLedger) FindByUserID(context.Context, int64) (*models.RefreshToken, error) {
	return nil, errors.New("connection refused")
}

type panickingUsers struct {
	repositories.UserRepository
}

func (panickingUsers) FindByID(context.Context, int64) (*models.User, error) {
	panic("nil map")
}

func TestResolveStorageFaultsAreUnauthorized(t *testing.T) {
	codec := newTestCodec(t)
	refresh, _, err := codec.IssueRefreshToken(42)
	require.NoError(t, err)

	t.Run("LedgerError", func(t *testing.T) {
		resolver := NewSessionResolver(codec, brokenLedger{}, repositories.NewMemoryUserRepository())
		res, err := resolver.Resolve(context.Background(), "Bearer bad", refresh)
		assert.Nil(t, res)

		var appErr *utils.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, utils.KindUnauthorized, appErr.Kind)
	})

	t.Run("Panic", func(t *testing.T) {
		tokens := repositories.NewMemoryRefreshTokenRepository()
		_, err := tokens.Save(context.Background(), 42, refresh, time.Now().Add(time.Hour))
		require.NoError(t, err)

		resolver := NewSessionResolver(codec, tokens, panickingUsers{})
		res, err := resolver.Resolve(context.Background(), "Bearer bad", refresh)
		assert.Nil(t, res)

		var appErr *utils.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusUnauthorized, appErr.StatusCode())
	})
}

func TestRefreshTokenMiddleware(t *testing.T) {
	f := newSessionFixture(t)

	t.Run("MissingCookie", func(t *testing.T) {
		w := f.do(http.MethodPost, "/auth/refresh", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("InvalidCookie", func(t *testing.T) {
		w := f.do(http.MethodPost, "/auth/refresh", "", "not-a-token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("ValidCookie", func(t *testing.T) {
		refresh, _, err := f.codec.IssueRefreshToken(f.user.ID)
		require.NoError(t, err)

		w := f.do(http.MethodPost, "/auth/refresh", "", refresh)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":1`)
		assert.Contains(t, w.Body.String(), refresh)
	})
}

func TestRequireOwner(t *testing.T) {
	f := newSessionFixture(t)
	access, err := f.codec.IssueAccessToken(f.user)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/users/1", access, "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/users/2", access, "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/users/abc", access, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/users/1", "", "").Code)
}
