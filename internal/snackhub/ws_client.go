package snackhub

import (
	"sync"
	"time"

	"snackbox/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second
	// Send pings with this period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum inbound frame size.
	maxMessageSize = 4096
	// Outbound buffer per connection.
	sendBufferSize = 64
)

// WSClient is a websocket-backed Client. Identity starts unbound; the read
// pump binds it when the authenticate event arrives.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn

	connID string
	send   chan models.Event
	done   chan struct{}

	mu       sync.RWMutex
	userID   uint
	username string

	closeOnce sync.Once
}

// NewWSClient wraps an upgraded connection. The caller registers it with the
// hub and then calls Run.
func NewWSClient(hub *Hub, conn *websocket.Conn) *WSClient {
	return &WSClient{
		hub:    hub,
		conn:   conn,
		connID: uuid.New().String(),
		send:   make(chan models.Event, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *WSClient) ConnID() string { return c.connID }

func (c *WSClient) UserID() uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *WSClient) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *WSClient) Bind(userID uint, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.username = username
}

func (c *WSClient) SendChannel() chan<- models.Event { return c.send }

// Run starts both pumps; the write pump runs on its own goroutine and the
// read pump takes over the caller's.
func (c *WSClient) Run() {
	go c.writePump()
	c.readPump()
}

// Close is idempotent; the hub and both pumps may all race to call it. The
// send channel is never closed: event handlers running on other read pumps
// may still be queueing into it, and a send into the buffer of a closed
// client is harmless where a send on a closed channel would panic.
func (c *WSClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// readPump decodes inbound envelopes and hands them to the hub's dispatch.
// On any read error the connection unregisters itself.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.UnregisterCh <- c
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev models.Event
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("websocket read error",
					zap.String("connId", c.connID), zap.Error(err))
			}
			return
		}
		c.hub.HandleEvent(c, ev)
	}
}

// writePump drains the send channel to the socket and keeps the connection
// alive with pings. A closed done channel means the hub dropped us; send the
// close frame and stop.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case ev := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
