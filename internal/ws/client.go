package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readDeadline  = 60 * time.Second
	pingInterval  = 30 * time.Second
	sendBufferLen = 16
)

// Client is one connected watcher. It only receives; inbound frames are
// drained to keep pong handling alive and to notice the close.
type Client struct {
	hub          *Hub
	ws           *websocket.Conn
	send         chan []byte
	sessionID    string
	watchZones   bool
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewClient wraps an upgraded connection. sessionID may be empty for pure
// zone watchers; watchZones may be false for pure session watchers.
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string, watchZones bool, writeTimeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		hub:          hub,
		ws:           conn,
		send:         make(chan []byte, sendBufferLen),
		sessionID:    sessionID,
		watchZones:   watchZones,
		writeTimeout: writeTimeout,
		logger:       logger,
	}
}

// Start registers the client and runs both pumps until the peer goes away
// or ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	c.hub.add(c)
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer c.cleanup()
	c.ws.SetReadLimit(4096)
	c.ws.SetReadDeadline(time.Now().Add(readDeadline))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.logger.Debug("watch connection closed", zap.String("session_id", c.sessionID), zap.Error(err))
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// Send enqueues a message, dropping it when the client cannot keep up.
func (c *Client) Send(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("attempted to send on closed channel", zap.String("session_id", c.sessionID))
		}
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("dropping watch update, buffer full", zap.String("session_id", c.sessionID))
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

func (c *Client) cleanup() {
	c.hub.remove(c)
	close(c.send)
	_ = c.ws.Close()
}
