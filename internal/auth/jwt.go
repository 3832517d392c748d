package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/models"
)

// TokenKind selects the secret a token is signed and verified with.
type TokenKind int

const (
	AccessToken TokenKind = iota
	RefreshToken
)

func (k TokenKind) String() string {
	if k == RefreshToken {
		return "refresh"
	}
	return "access"
}

// Reasons reported by a failed verification. They are meant for logs.
const (
	ReasonExpired          = "expired"
	ReasonMalformed        = "malformed"
	ReasonSignatureInvalid = "signature invalid"
	ReasonInvalid          = "invalid"
)

// Claims defines the JWT claims structure. Refresh tokens only carry UserID
// and the registered claims.
type Claims struct {
	UserID       int64  `json:"id"`
	Email        string `json:"email,omitempty"`
	Nickname     string `json:"nickname,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
	jwt.RegisteredClaims
}

// VerifyResult is the outcome of a verification. Claims is set only when Valid.
type VerifyResult struct {
	Valid  bool
	Claims *Claims
	Reason string
}

// CodecConfig configures a Codec.
type CodecConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Codec creates and verifies signed, time-limited access and refresh tokens.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewCodec validates cfg and returns a Codec. The two secrets must differ so a
// token of one kind never verifies as the other.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Codec{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		now:           time.Now,
	}, nil
}

// RefreshTTL is the lifetime of issued refresh tokens.
func (c *Codec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

// IssueAccessToken generates a new JWT access token carrying the user's identity.
func (c *Codec) IssueAccessToken(user *models.User) (string, error) {
	now := c.now()
	claims := &Claims{
		UserID:       user.ID,
		Email:        user.Email,
		Nickname:     user.Nickname,
		ProfileImage: user.ProfileImage,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken generates a refresh token for userID and returns it with
// its absolute expiry. A random jti keeps tokens minted in the same second distinct.
func (c *Codec) IssueRefreshToken(userID int64) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.refreshTTL)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.refreshSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	// NumericDate drops sub-second precision; keep the ledger expiry identical to exp.
	return signed, claims.ExpiresAt.Time, nil
}

// VerifyAccessToken checks an access token.
func (c *Codec) VerifyAccessToken(token string) VerifyResult {
	return c.Verify(token, AccessToken)
}

// VerifyRefreshToken checks a refresh token.
func (c *Codec) VerifyRefreshToken(token string) VerifyResult {
	return c.Verify(token, RefreshToken)
}

// Verify parses token with the secret of kind. It never panics and reports
// every failure as an invalid result.
func (c *Codec) Verify(token string, kind TokenKind) (result VerifyResult) {
	defer func() {
		if r := recover(); r != nil {
			result = VerifyResult{Reason: ReasonInvalid}
		}
	}()

	secret := c.accessSecret
	if kind == RefreshToken {
		secret = c.refreshSecret
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return VerifyResult{Reason: reasonFor(err)}
	}
	if !parsed.Valid || claims.UserID <= 0 {
		return VerifyResult{Reason: ReasonInvalid}
	}
	return VerifyResult{Valid: true, Claims: claims}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonSignatureInvalid
	default:
		return ReasonInvalid
	}
}
