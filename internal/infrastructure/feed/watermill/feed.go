package watermillfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ark-network/wager/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	CreationTopic = "pool.created"
	outputBuffer  = 64
)

type creationMessage struct {
	PoolId   uint64 `json:"pool_id"`
	Deadline int64  `json:"deadline"`
}

// Feed is an in-process creation feed. The embedded ledger publishes to it
// and any number of subscribers receive every announcement.
type Feed struct {
	pubsub *gochannel.GoChannel

	lock   sync.Mutex
	closed bool
}

func NewFeed() *Feed {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: outputBuffer},
		newLogger(),
	)
	return &Feed{pubsub: pubsub}
}

func (f *Feed) PublishCreation(_ context.Context, event ports.CreationEvent) error {
	payload, err := json.Marshal(creationMessage{event.PoolId, event.Deadline})
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := f.pubsub.Publish(CreationTopic, msg); err != nil {
		return fmt.Errorf("failed to publish creation of pool %d: %w", event.PoolId, err)
	}
	return nil
}

func (f *Feed) Subscribe(ctx context.Context) (<-chan ports.CreationEvent, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return nil, fmt.Errorf("feed closed")
	}

	messages, err := f.pubsub.Subscribe(ctx, CreationTopic)
	if err != nil {
		return nil, err
	}

	events := make(chan ports.CreationEvent)
	go func() {
		defer close(events)
		for msg := range messages {
			var m creationMessage
			if err := json.Unmarshal(msg.Payload, &m); err != nil {
				log.WithError(err).Warnf("dropping malformed creation message %s", msg.UUID)
				msg.Ack()
				continue
			}
			select {
			case events <- ports.CreationEvent{PoolId: m.PoolId, Deadline: m.Deadline}:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return events, nil
}

func (f *Feed) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.pubsub.Close()
}
