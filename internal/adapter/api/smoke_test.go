//go:build smoke

package api

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit a running NEO API and require NEO_API_URL.
// Run with: go test -tags=smoke ./internal/adapter/api/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	baseURL := os.Getenv("NEO_API_URL")
	if baseURL == "" {
		t.Fatal("NEO_API_URL must be set to run smoke tests")
	}
	return NewClient(baseURL, 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_FetchAll(t *testing.T) {
	c := smokeClient(t)

	records, err := c.FetchRecords(context.Background(), domain.Query{})
	require.NoError(t, err)

	for _, r := range records {
		assert.NotEmpty(t, r.CloseApproachDate)
		assert.GreaterOrEqual(t, r.MissDistanceAu, 0.0)
	}
	t.Logf("fetched %d records", len(records))
}

func TestSmoke_FetchToday(t *testing.T) {
	c := smokeClient(t)
	today := domain.Today()

	records, err := c.FetchRecords(context.Background(), domain.Day(today))
	require.NoError(t, err)

	for _, r := range records {
		assert.Equal(t, today, r.CloseApproachDate)
	}
	t.Logf("fetched %d records for %s", len(records), today)
}
