package sse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url string) *Client {
	c := NewClient(url, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.backoff = &backoff.Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond}
	return c
}

func writeEvent(w http.ResponseWriter, name, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	w.(http.Flusher).Flush()
}

func receive(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func TestClient_DeliversMessagesSkipsHeartbeats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		writeEvent(w, "heartbeat", "ping")
		writeEvent(w, "message", `{"id":1}`)
		writeEvent(w, "heartbeat", "ping")
		writeEvent(w, "message", `{"id":2}`)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := testClient(srv.URL).Subscribe(ctx)
	require.NoError(t, err)

	assert.Equal(t, `{"id":1}`, receive(t, ch))
	assert.Equal(t, `{"id":2}`, receive(t, ch))
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			_, _ = fmt.Fprint(w, "id: 41\n")
			writeEvent(w, "message", `{"id":"first"}`)
			return
		}
		assert.Equal(t, "41", r.Header.Get("Last-Event-ID"))
		writeEvent(w, "message", `{"id":"second"}`)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := testClient(srv.URL).Subscribe(ctx)
	require.NoError(t, err)

	assert.Equal(t, `{"id":"first"}`, receive(t, ch))
	assert.Equal(t, `{"id":"second"}`, receive(t, ch))
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}

func TestClient_InitialConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Subscribe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestClient_ClosesChannelOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := testClient(srv.URL).Subscribe(ctx)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestClient_InitialConnectTimesOutWithoutHeaders(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := testClient(srv.URL)
	c.httpClient = newHTTPClient(50 * time.Millisecond)

	start := time.Now()
	_, err := c.Subscribe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sse connect")
	assert.Less(t, time.Since(start), 2*time.Second)
}
