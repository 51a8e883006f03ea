// Package ws provides the WebSocket frontend: an acceptor that upgrades
// HTTP requests and a connection wrapper that speaks the JSON envelope
// protocol expected by the game session layer.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/EvilX/reversi/internal/config"
	"github.com/EvilX/reversi/internal/protocol"
)

// Conn wraps a WebSocket connection with envelope encoding, write
// serialization and keep-alive pings. It implements session.Channel.
type Conn struct {
	raw *websocket.Conn
	mu  sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewConn wraps an upgraded WebSocket connection.
//
// Precondition: raw must be a freshly upgraded, open connection.
// Postcondition: Read limits and the keep-alive pinger are in place;
// the caller owns the connection and must Close it.
func NewConn(raw *websocket.Conn, cfg config.WebsocketConfig) *Conn {
	c := &Conn{
		raw:          raw,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		done:         make(chan struct{}),
	}

	raw.SetReadLimit(cfg.MaxMessageBytes)
	if c.readTimeout > 0 {
		_ = raw.SetReadDeadline(time.Now().Add(c.readTimeout))
		raw.SetPongHandler(func(string) error {
			return raw.SetReadDeadline(time.Now().Add(c.readTimeout))
		})
	}
	if cfg.PingInterval > 0 {
		go c.ping(cfg.PingInterval)
	}

	return c
}

// ping keeps the connection alive until it is closed.
func (c *Conn) ping(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.writeTimeout > 0 {
				_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			err := c.raw.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Receive blocks until the next data frame arrives and returns its
// contents.
//
// Postcondition: Returns the frame bytes, or an error once the peer is
// gone (including normal closure).
func (c *Conn) Receive() ([]byte, error) {
	_, data, err := c.raw.ReadMessage()
	return data, err
}

// Send encodes message and payload as an outbound envelope and writes
// it as a single text frame.
func (c *Conn) Send(message string, payload any) error {
	data, err := protocol.Encode(message, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.raw.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame carrying code and reason, then tears down
// the underlying connection. Safe to call more than once.
//
// Postcondition: The pinger is stopped and the connection is closed.
func (c *Conn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		if c.writeTimeout > 0 {
			_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		}
		_ = c.raw.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason))
		c.mu.Unlock()

		err = c.raw.Close()
	})
	return err
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() string {
	return c.raw.RemoteAddr().String()
}
