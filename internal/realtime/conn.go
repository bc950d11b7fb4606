package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/lobbyhub/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Conn is a websocket connection to one client
type Conn struct {
	id          model.ConnectionID
	ws          *websocket.Conn
	connectedAt time.Time
	logger      *slog.Logger

	mu     sync.Mutex // guards send and closed
	send   chan []byte
	closed bool
}

func newConn(id model.ConnectionID, ws *websocket.Conn, logger *slog.Logger) *Conn {
	return &Conn{
		id:          id,
		ws:          ws,
		connectedAt: time.Now(),
		logger:      logger.With(slog.String("connection_id", string(id))),
		send:        make(chan []byte, sendBufferSize),
	}
}

// ID returns the connection id
func (c *Conn) ID() model.ConnectionID {
	return c.id
}

// Send queues an event for the client without blocking.
// It reports false if the connection is closed or its buffer is full.
func (c *Conn) Send(event model.OutboundEvent) bool {
	data, err := EncodeEvent(event)
	if err != nil {
		c.logger.Error("failed to encode event",
			slog.String("event", string(event.Name)),
			slog.String("error", err.Error()))
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn("message dropped - client buffer full",
			slog.String("event", string(event.Name)))
		return false
	}
}

// Close sends a close frame to the peer once queued events are written
func (c *Conn) Close() {
	c.closeSend()
}

// closeSend stops the write pump. Safe to call more than once.
func (c *Conn) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump handles inbound frames one at a time until the peer goes away,
// then disconnects from the router. Running Disconnect on this goroutine
// orders it after every request the connection sent.
func (c *Conn) readPump(router *Router) {
	defer func() {
		router.Disconnect(c)
		c.closeSend()
		_ = c.ws.Close()
		c.logger.Info("websocket closed",
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
		router.HandleFrame(c, message)
	}
}

// writePump forwards queued messages to the peer and keeps it alive with pings
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
