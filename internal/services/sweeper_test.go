package services

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/100-hours-a-week/2-teddy-hwang-community-be/internal/repositories"
)

type panickingLedger struct {
	failingLedger
}

func (panickingLedger) DeleteExpired(context.Context) (int64, error) {
	panic("driver bug")
}

func TestTokenSweeperRunOnce(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	t.Run("DeletesExpired", func(t *testing.T) {
		repo := repositories.NewMemoryRefreshTokenRepository()
		_, err := repo.Save(context.Background(), 1, "expired", time.Now().Add(-time.Minute))
		require.NoError(t, err)
		_, err = repo.Save(context.Background(), 1, "live", time.Now().Add(time.Hour))
		require.NoError(t, err)

		NewTokenSweeper(repo, time.Hour).RunOnce(context.Background())
		assert.Equal(t, 1, repo.Len())
	})

	t.Run("FailureIsLogged", func(t *testing.T) {
		hook.Reset()
		assert.NotPanics(t, func() {
			NewTokenSweeper(failingLedger{}, time.Hour).RunOnce(context.Background())
		})
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
		assert.Contains(t, hook.LastEntry().Message, "ledger down")
	})

	t.Run("PanicIsRecovered", func(t *testing.T) {
		hook.Reset()
		assert.NotPanics(t, func() {
			NewTokenSweeper(panickingLedger{}, time.Hour).RunOnce(context.Background())
		})
		require.NotNil(t, hook.LastEntry())
		assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	})
}

func TestTokenSweeperStart(t *testing.T) {
	repo := repositories.NewMemoryRefreshTokenRepository()
	_, err := repo.Save(context.Background(), 1, "expired", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper := NewTokenSweeper(repo, 10*time.Millisecond)
	sweeper.Start(ctx)

	assert.Eventually(t, func() bool { return repo.Len() == 0 }, time.Second, 10*time.Millisecond)

	cancel()
	sweeper.Wait()
}

var _ repositories.RefreshTokenRepository = failingLedger{}
