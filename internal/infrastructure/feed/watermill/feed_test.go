package watermillfeed_test

import (
	"context"
	"testing"
	"time"

	"github.com/ark-network/wager/internal/core/ports"
	watermillfeed "github.com/ark-network/wager/internal/infrastructure/feed/watermill"
	"github.com/stretchr/testify/require"
)

func TestFeed(t *testing.T) {
	feed := watermillfeed.NewFeed()
	defer feed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	second, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	event := ports.CreationEvent{PoolId: 7, Deadline: 1_700_003_600}
	require.NoError(t, feed.PublishCreation(ctx, event))

	for _, ch := range []<-chan ports.CreationEvent{first, second} {
		select {
		case got := <-ch:
			require.Equal(t, event, got)
		case <-time.After(2 * time.Second):
			t.Fatal("creation event not received")
		}
	}
}

func TestFeedClose(t *testing.T) {
	feed := watermillfeed.NewFeed()

	events, err := feed.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, feed.Close())
	require.NoError(t, feed.Close())

	select {
	case _, ok := <-events:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}

	_, err = feed.Subscribe(context.Background())
	require.Error(t, err)
}
