package ports

import "context"

// CreationEvent announces a new pool and when it first needs attention.
type CreationEvent struct {
	PoolId   uint64
	Deadline int64
}

type CreationFeed interface {
	// Subscribe yields creation events until ctx is done or the feed is
	// closed, at which point the channel is closed.
	Subscribe(ctx context.Context) (<-chan CreationEvent, error)
	Close() error
}

// CreationPublisher is implemented by ledgers that can announce the pools
// they create.
type CreationPublisher interface {
	PublishCreation(ctx context.Context, event CreationEvent) error
}
