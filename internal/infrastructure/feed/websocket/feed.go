package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ark-network/wager/internal/core/ports"
	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	handshakeTimeout  = 15 * time.Second
	pongWait          = 60 * time.Second
	maxReconnectDelay = time.Minute
)

// Message is the wire format of a creation announcement.
type Message struct {
	PoolId   uint64 `json:"pool_id"`
	Deadline int64  `json:"deadline"`
}

// feed follows a remote creation stream and reconnects with exponential
// backoff whenever the connection drops.
type feed struct {
	url    string
	dialer websocket.Dialer

	lock   sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

func NewFeed(url string) (ports.CreationFeed, error) {
	if url == "" {
		return nil, fmt.Errorf("missing feed url")
	}
	return &feed{
		url:    url,
		dialer: websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		done:   make(chan struct{}),
	}, nil
}

func (f *feed) Subscribe(ctx context.Context) (<-chan ports.CreationEvent, error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return nil, err
	}

	events := make(chan ports.CreationEvent)
	go f.listen(ctx, conn, events)
	return events, nil
}

func (f *feed) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)

	if f.conn != nil {
		_ = f.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return f.conn.Close()
	}
	return nil
}

func (f *feed) connect(ctx context.Context) (*websocket.Conn, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.closed {
		return nil, fmt.Errorf("feed closed")
	}

	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to creation feed: %w", err)
	}
	//nolint:errcheck
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		//nolint:errcheck
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	f.conn = conn
	return conn, nil
}

func (f *feed) listen(
	ctx context.Context, conn *websocket.Conn, events chan<- ports.CreationEvent,
) {
	defer close(events)

	for {
		f.read(ctx, conn, events)

		if f.isDone(ctx) {
			return
		}
		log.Warn("creation feed disconnected, reconnecting")

		var err error
		conn, err = f.reconnect(ctx)
		if err != nil {
			log.WithError(err).Warn("giving up on creation feed")
			return
		}
		log.Info("creation feed reconnected")
	}
}

func (f *feed) read(
	ctx context.Context, conn *websocket.Conn, events chan<- ports.CreationEvent,
) {
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !f.isDone(ctx) {
				log.WithError(err).Debug("creation feed read failed")
			}
			return
		}
		//nolint:errcheck
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Warn("dropping malformed creation message")
			continue
		}

		select {
		case events <- ports.CreationEvent{PoolId: msg.PoolId, Deadline: msg.Deadline}:
		case <-ctx.Done():
			return
		case <-f.done:
			return
		}
	}
}

func (f *feed) reconnect(ctx context.Context) (*websocket.Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = maxReconnectDelay
	bo.MaxElapsedTime = 0

	retryCtx, cancel := doneContext(ctx, f.done)
	defer cancel()

	var conn *websocket.Conn
	err := backoff.Retry(func() error {
		if f.isDone(ctx) {
			return backoff.Permanent(fmt.Errorf("feed closed"))
		}
		c, err := f.connect(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(bo, retryCtx))
	return conn, err
}

func (f *feed) isDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-f.done:
		return true
	default:
		return false
	}
}

// doneContext is ctx also cancelled when done is closed.
func doneContext(
	ctx context.Context, done <-chan struct{},
) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			cancel()
		}
	}()
	return ctx, cancel
}
