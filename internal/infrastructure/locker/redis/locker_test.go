package redislocker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ark-network/wager/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestNewLockerInvalidUrl(t *testing.T) {
	_, err := NewLocker("http://localhost:6379")
	require.Error(t, err)
}

func TestLocker(t *testing.T) {
	redisUrl := os.Getenv("WAGER_TEST_REDIS_URL")
	if redisUrl == "" {
		t.Skip("WAGER_TEST_REDIS_URL not set")
	}

	l, err := NewLocker(redisUrl)
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	key := "test:" + time.Now().Format(time.RFC3339Nano)

	release, err := l.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, key, time.Minute)
	require.ErrorIs(t, err, domain.ErrLockHeld)

	release()

	release, err = l.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	release()
}
