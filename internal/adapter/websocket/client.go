// Package websocket consumes the live NEO feed over a WebSocket, one JSON
// record per text frame.
package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/backoff"
	"github.com/gorilla/websocket"
)

const handshakeTimeout = 10 * time.Second

// Client implements stream.Feed against a WebSocket endpoint.
type Client struct {
	url     string
	dialer  *websocket.Dialer
	backoff *backoff.Backoff
	logger  *slog.Logger
}

// NewClient creates a WebSocket feed client for url (ws:// or wss://).
func NewClient(url string, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		backoff: backoff.New(),
		logger:  logger,
	}
}

// Subscribe dials the endpoint. A failed first dial is returned to the
// caller; later disconnects are redialled with backoff until ctx ends.
func (c *Client) Subscribe(ctx context.Context) (<-chan []byte, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte, 64)
	go c.run(ctx, conn, out)
	return out, nil
}

func (c *Client) run(ctx context.Context, conn *websocket.Conn, out chan<- []byte) {
	defer close(out)

	for {
		err := c.consume(ctx, conn, out)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("websocket read failed, reconnecting", "url", c.url, "error", err)

		for {
			if !c.backoff.Wait(ctx) {
				return
			}
			conn, err = c.dial(ctx)
			if err == nil {
				c.backoff.Reset()
				c.logger.Info("websocket reconnected", "url", c.url)
				break
			}
			c.logger.Warn("websocket redial failed", "url", c.url, "error", err)
		}
	}
}

// consume reads frames until the connection fails or ctx is cancelled. It
// always closes conn.
func (c *Client) consume(ctx context.Context, conn *websocket.Conn, out chan<- []byte) error {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer func() {
		if stop() {
			_ = conn.Close()
		}
	}()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		select {
		case out <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}
