package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/models"
)

// ErrDuplicateToken is returned by the memory ledger when a token value is reused.
var ErrDuplicateToken = errors.New("refresh token already stored")

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]models.User
	now    func() time.Time
}

// NewMemoryUserRepository creates an empty in-memory user store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[int64]models.User), now: time.Now}
}

// FindByEmail retrieves a live user by email.
func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && !u.IsDeleted {
			return &u, nil
		}
	}
	return nil, nil
}

// FindByID retrieves a live user by id.
func (r *MemoryUserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.IsDeleted {
		return nil, nil
	}
	return &u, nil
}

// Create stores a new user with the next free id.
func (r *MemoryUserRepository) Create(ctx context.Context, user models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, ErrDuplicateEmail
		}
		if u.Nickname == user.Nickname && !u.IsDeleted {
			return nil, ErrDuplicateNickname
		}
	}
	r.nextID++
	now := r.now()
	user.ID = r.nextID
	user.IsDeleted = false
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return &user, nil
}

// UpdateProfile changes nickname and profile image of a live user.
func (r *MemoryUserRepository) UpdateProfile(ctx context.Context, id int64, nickname, profileImage string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.IsDeleted {
		return nil, ErrUserNotFound
	}
	for otherID, other := range r.users {
		if otherID != id && other.Nickname == nickname && !other.IsDeleted {
			return nil, ErrDuplicateNickname
		}
	}
	u.Nickname = nickname
	u.ProfileImage = profileImage
	u.UpdatedAt = r.now()
	r.users[id] = u
	return &u, nil
}

// UpdatePassword replaces the password hash of a live user.
func (r *MemoryUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.mutate(ctx, id, func(u *models.User) { u.PasswordHash = passwordHash })
}

// SoftDelete flags a live user as deleted.
func (r *MemoryUserRepository) SoftDelete(ctx context.Context, id int64) error {
	return r.mutate(ctx, id, func(u *models.User) { u.IsDeleted = true })
}

func (r *MemoryUserRepository) mutate(ctx context.Context, id int64, fn func(u *models.User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.IsDeleted {
		return ErrUserNotFound
	}
	fn(&u)
	u.UpdatedAt = r.now()
	r.users[id] = u
	return nil
}

// CheckEmailExists reports whether any account holds the email.
func (r *MemoryUserRepository) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// CheckNicknameExists reports whether another live user holds the nickname.
func (r *MemoryUserRepository) CheckNicknameExists(ctx context.Context, nickname string, excludeUserID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.users {
		if id != excludeUserID && u.Nickname == nickname && !u.IsDeleted {
			return true, nil
		}
	}
	return false, nil
}

// MemoryRefreshTokenRepository is a process-local ledger.
type MemoryRefreshTokenRepository struct {
	mu     sync.Mutex
	nextID int64
	tokens map[string]models.RefreshToken
	now    func() time.Time
}

// NewMemoryRefreshTokenRepository creates an empty in-memory ledger.
func NewMemoryRefreshTokenRepository() *MemoryRefreshTokenRepository {
	return &MemoryRefreshTokenRepository{tokens: make(map[string]models.RefreshToken), now: time.Now}
}

// SetClock replaces the time source used for expiry decisions.
func (r *MemoryRefreshTokenRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Save stores a new token and returns its id.
func (r *MemoryRefreshTokenRepository) Save(ctx context.Context, userID int64, token string, expiredAt time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token]; ok {
		return 0, ErrDuplicateToken
	}
	r.nextID++
	r.tokens[token] = models.RefreshToken{
		ID:        r.nextID,
		Token:     token,
		UserID:    userID,
		ExpiredAt: expiredAt,
		CreatedAt: r.now(),
	}
	return r.nextID, nil
}

// FindByToken returns the token when it is still active.
func (r *MemoryRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[token]
	if !ok || !rt.Active(r.now()) {
		return nil, nil
	}
	return &rt, nil
}

// FindByUserID returns the newest active token of the user.
func (r *MemoryRefreshTokenRepository) FindByUserID(ctx context.Context, userID int64) (*models.RefreshToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var newest *models.RefreshToken
	for _, rt := range r.tokens {
		if rt.UserID != userID || !rt.Active(now) {
			continue
		}
		if newest == nil || rt.ID > newest.ID {
			candidate := rt
			newest = &candidate
		}
	}
	return newest, nil
}

// Revoke marks the token revoked if it exists.
func (r *MemoryRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rt, ok := r.tokens[token]; ok {
		rt.IsRevoked = true
		r.tokens[token] = rt
	}
	return nil
}

// RevokeAllForUser revokes every live token of the user.
func (r *MemoryRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var revoked int64
	for key, rt := range r.tokens {
		if rt.UserID == userID && !rt.IsRevoked {
			rt.IsRevoked = true
			r.tokens[key] = rt
			revoked++
		}
	}
	return revoked, nil
}

// DeleteExpired drops every token past its expiry.
func (r *MemoryRefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var deleted int64
	for key, rt := range r.tokens {
		if !now.Before(rt.ExpiredAt) {
			delete(r.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored rows, revoked ones included.
func (r *MemoryRefreshTokenRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
