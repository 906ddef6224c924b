package hub

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chatrelay/internal/constants"
)

const writeTimeout = 10 * time.Second

// Client is one live websocket connection bound to a user. A user has at
// most one client in the registry; a fresh connection supersedes the old
// one. ResourceID distinguishes connection instances of the same user so
// a stale connection's teardown cannot evict its replacement.
type Client struct {
	ResourceID string
	UserID     int64

	conn   *websocket.Conn
	send   chan interface{}
	done   chan struct{}
	logger *logrus.Logger

	closeOnce sync.Once
}

// NewClient wraps an accepted websocket connection. A bufferSize of zero
// or less falls back to the default.
func NewClient(userID int64, conn *websocket.Conn, bufferSize int, logger *logrus.Logger) *Client {
	if bufferSize <= 0 {
		bufferSize = constants.DefaultPushBufferSize
	}
	return &Client{
		ResourceID: uuid.New().String(),
		UserID:     userID,
		conn:       conn,
		send:       make(chan interface{}, bufferSize),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Push enqueues a frame for delivery. It never blocks: when the buffer is
// full the frame is dropped and false is returned. Dropped pushes are safe
// because every push-delivered fact is reconstructable from the store.
func (c *Client) Push(frame interface{}) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.WithFields(logrus.Fields{
			"user_id":     c.UserID,
			"resource_id": c.ResourceID,
		}).Warn("Push buffer full, dropping frame")
		return false
	}
}

// WritePump drains the send buffer onto the wire. It runs on its own
// goroutine per connection and returns when the client closes or a write
// fails.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case frame := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, frame)
			cancel()
			if err != nil {
				c.logger.WithFields(logrus.Fields{
					"user_id":     c.UserID,
					"resource_id": c.ResourceID,
					"error":       err,
				}).Debug("Websocket write failed, stopping write pump")
				c.Close()
				return
			}
		}
	}
}

// Close tears down the connection. Safe to call from any goroutine and
// more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close(websocket.StatusNormalClosure, "closing")
	})
}

// Done is closed when the client has been torn down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Conn exposes the underlying connection for the session read loop. Only
// the owning session goroutine may read from it.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}
