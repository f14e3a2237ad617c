// Package sse consumes the live NEO feed over Server-Sent Events.
package sse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/backoff"
)

// responseHeaderTimeout bounds each connect. The stream body itself has no
// deadline.
const responseHeaderTimeout = 10 * time.Second

// Client implements stream.Feed against an SSE endpoint such as
// GET /stream/neos. It reconnects with backoff whenever the stream drops.
type Client struct {
	url        string
	httpClient *http.Client
	backoff    *backoff.Backoff
	logger     *slog.Logger

	lastEventID string
}

// NewClient creates an SSE feed client for url.
func NewClient(url string, logger *slog.Logger) *Client {
	return &Client{
		url:        url,
		httpClient: newHTTPClient(responseHeaderTimeout),
		backoff:    backoff.New(),
		logger:     logger,
	}
}

// Subscribe opens the stream. The first connection is made synchronously so
// an unreachable feed is reported to the caller; later drops are retried
// until ctx is cancelled, at which point the channel is closed.
func (c *Client) Subscribe(ctx context.Context) (<-chan []byte, error) {
	body, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte, 64)
	go c.run(ctx, body, out)
	return out, nil
}

func newHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

func (c *Client) run(ctx context.Context, body io.ReadCloser, out chan<- []byte) {
	defer close(out)

	for {
		err := c.consume(ctx, body, out)
		_ = body.Close()
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("sse stream ended, reconnecting", "url", c.url, "error", err)

		for {
			if !c.backoff.Wait(ctx) {
				return
			}
			body, err = c.connect(ctx)
			if err == nil {
				c.backoff.Reset()
				c.logger.Info("sse stream reconnected", "url", c.url)
				break
			}
			c.logger.Warn("sse reconnect failed", "url", c.url, "error", err)
		}
	}
}

func (c *Client) consume(ctx context.Context, body io.Reader, out chan<- []byte) error {
	err := readEvents(body, func(e event) bool {
		c.lastEventID = e.ID
		if !e.isRecord() {
			return true
		}
		select {
		case out <- e.Data:
			return true
		case <-ctx.Done():
			return false
		}
	})
	if err == nil {
		err = io.EOF
	}
	return err
}

func (c *Client) connect(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.lastEventID != "" {
		req.Header.Set("Last-Event-ID", c.lastEventID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sse connect: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("sse connect: status %d: %s", resp.StatusCode, body)
	}
	return resp.Body, nil
}
