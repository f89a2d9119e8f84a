package httpservice

import (
	"net/http"
	"time"

	"github.com/ark-network/wager/internal/core/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type creationMessage struct {
	PoolId   uint64 `json:"pool_id"`
	Deadline int64  `json:"deadline"`
}

// feedHandler streams pool creations to websocket clients, so that other
// instances can follow this one's ledger.
type feedHandler struct {
	feed     ports.CreationFeed
	upgrader websocket.Upgrader
}

func (h *feedHandler) streamCreations(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Debug("failed to upgrade feed connection")
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	events, err := h.feed.Subscribe(ctx)
	if err != nil {
		//nolint:errcheck
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()),
			time.Now().Add(writeWait),
		)
		return
	}

	// drain client frames to notice when it goes away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case event, ok := <-events:
			if !ok {
				return
			}
			//nolint:errcheck
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(creationMessage{event.PoolId, event.Deadline}); err != nil {
				return
			}
		}
	}
}

func newFeedHandler(feed ports.CreationFeed) *feedHandler {
	return &feedHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}
