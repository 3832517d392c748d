package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/repositories"
)

// TokenSweeper periodically hard-deletes expired refresh tokens.
type TokenSweeper struct {
	tokens   repositories.RefreshTokenRepository
	interval time.Duration
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewTokenSweeper creates a sweeper running every interval.
func NewTokenSweeper(tokens repositories.RefreshTokenRepository, interval time.Duration) *TokenSweeper {
	return &TokenSweeper{tokens: tokens, interval: interval, timeout: time.Minute}
}

// Start runs the sweep on a ticker until ctx is cancelled. It returns immediately.
func (s *TokenSweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		logrus.Warn("TokenSweeper: non-positive interval, expired token sweeping disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		logrus.Infof("TokenSweeper: sweeping expired refresh tokens every %s", s.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// Wait blocks until the sweeper goroutine has exited.
func (s *TokenSweeper) Wait() {
	s.wg.Wait()
}

// RunOnce deletes expired tokens. Failures and panics are logged, never propagated.
func (s *TokenSweeper) RunOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("TokenSweeper: sweep panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	deleted, err := s.tokens.DeleteExpired(ctx)
	if err != nil {
		logrus.Errorf("TokenSweeper: failed to delete expired refresh tokens: %v", err)
		return
	}
	logrus.Infof("TokenSweeper: deleted %d expired refresh tokens", deleted)
}
