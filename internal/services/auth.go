package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/auth"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/repositories"
	"github.com/100-hours-a-week/2-teddy-hwang-community-be/pkg/utils"
)

// MsgInvalidCredentials is returned for both unknown emails and wrong passwords.
const MsgInvalidCredentials = "Invalid email or password"

// LoginResult carries the tokens handed out by a successful login.
type LoginResult struct {
	UserID       int64
	AccessToken  string
	RefreshToken string
	// Reused is true when the user's existing refresh token was handed back.
	Reused bool
}

// AuthService provides authentication-related business logic.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string, userID int64) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID int64) error
}

type authService struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.RefreshTokenRepository
	codec     *auth.Codec
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, tokenRepo repositories.RefreshTokenRepository, codec *auth.Codec) AuthService {
	return &authService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		codec:     codec,
	}
}

// Login authenticates a user and returns an access token plus a refresh token.
//
// A still-valid refresh token already in the ledger is handed back unchanged
// instead of minting a new one, so repeated logins within its lifetime see the
// same cookie value. This trades per-login rotation for one session token per user.
//
// Two concurrent first logins of the same user can both miss the lookup and
// each save a token. Both stay valid; FindByUserID returns the newest, so the
// session middleware only renews from that one and the next login reuses it.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	log := logrus.WithField("email", email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, utils.Internal(err)
	}
	if user == nil {
		log.Debug("AuthService.Login: user not found")
		return nil, utils.Unauthorized(MsgInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			log.Errorf("AuthService.Login: unexpected bcrypt comparison error for user %d: %v", user.ID, err)
		} else {
			log.Debugf("AuthService.Login: password mismatch for user %d", user.ID)
		}
		return nil, utils.Unauthorized(MsgInvalidCredentials)
	}

	accessToken, err := s.codec.IssueAccessToken(user)
	if err != nil {
		return nil, utils.Internal(err)
	}

	result := &LoginResult{UserID: user.ID, AccessToken: accessToken}

	existing, err := s.tokenRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, utils.Internal(err)
	}
	if existing != nil {
		if s.codec.VerifyRefreshToken(existing.Token).Valid {
			log.Debugf("AuthService.Login: reusing refresh token %d for user %d", existing.ID, user.ID)
			result.RefreshToken = existing.Token
			result.Reused = true
			return result, nil
		}
		// Stored but no longer verifiable, e.g. after a secret rotation.
		if err := s.tokenRepo.Revoke(ctx, existing.Token); err != nil {
			return nil, utils.Internal(err)
		}
	}

	refreshToken, expiresAt, err := s.codec.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, utils.Internal(err)
	}
	tokenID, err := s.tokenRepo.Save(ctx, user.ID, refreshToken, expiresAt)
	if err != nil {
		return nil, utils.Internal(err)
	}
	log.Infof("AuthService.Login: issued refresh token %d for user %d", tokenID, user.ID)

	result.RefreshToken = refreshToken
	return result, nil
}

// Refresh re-checks the ledger for a cryptographically valid refresh token and
// issues a new access token. The refresh token itself is not rotated.
func (s *authService) Refresh(ctx context.Context, refreshToken string, userID int64) (string, error) {
	stored, err := s.tokenRepo.FindByToken(ctx, refreshToken)
	if err != nil {
		return "", utils.Internal(err)
	}
	if stored == nil || stored.UserID != userID {
		logrus.Infof("AuthService.Refresh: refresh token of user %d is revoked, expired or unknown", userID)
		return "", utils.Unauthorized(auth.MsgReLogin)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", utils.Internal(err)
	}
	if user == nil {
		logrus.Infof("AuthService.Refresh: user %d missing or deleted", userID)
		return "", utils.Unauthorized(auth.MsgReLogin)
	}

	accessToken, err := s.codec.IssueAccessToken(user)
	if err != nil {
		return "", utils.Internal(err)
	}
	return accessToken, nil
}

// Logout revokes a refresh token. An empty, unknown or already revoked token is not an error.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokenRepo.Revoke(ctx, refreshToken); err != nil {
		logrus.Errorf("AuthService.Logout: failed to revoke refresh token: %v", err)
		return utils.Internal(err)
	}
	return nil
}

// LogoutAll revokes every refresh token of the user.
func (s *authService) LogoutAll(ctx context.Context, userID int64) error {
	revoked, err := s.tokenRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		logrus.Errorf("AuthService.LogoutAll: failed to revoke tokens of user %d: %v", userID, err)
		return utils.Internal(err)
	}
	logrus.Infof("AuthService.LogoutAll: revoked %d refresh tokens of user %d", revoked, userID)
	return nil
}
