// Package api reads bulk snapshots from the NEO REST endpoint.
package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/domain"
)

// maxBody bounds how much of a snapshot response is read into memory.
const maxBody = 64 << 20

// Client implements stream.SnapshotSource against GET {baseURL}/neos.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a snapshot client. baseURL is the API root, without the
// /neos path.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// FetchRecords returns every stored record matching q. Entries that fail
// validation are skipped and logged rather than failing the whole read.
func (c *Client) FetchRecords(ctx context.Context, q domain.Query) ([]domain.NeoRecord, error) {
	u := c.baseURL + "/neos"
	if params := queryParams(q); len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("snapshot API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	records, skipped, err := domain.ParseRecords(body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if skipped > 0 {
		c.logger.Warn("snapshot contained invalid records", "skipped", skipped, "kept", len(records))
	}
	return records, nil
}

func queryParams(q domain.Query) url.Values {
	params := url.Values{}
	if q.StartDate != "" {
		params.Set("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("end_date", q.EndDate)
	}
	if q.Hazardous != nil {
		params.Set("hazardous", strconv.FormatBool(*q.Hazardous))
	}
	return params
}
