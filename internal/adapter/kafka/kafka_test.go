package kafka

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/chart"
	"github.com/couchcryptid/neo-stream-service/internal/domain"
	"github.com/couchcryptid/neo-stream-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedPayload(t *testing.T) {
	msg := kafkago.Message{
		Key:       []byte("42"),
		Value:     []byte(`{"id":42}`),
		Topic:     "neo-approaches",
		Partition: 2,
		Offset:    42,
	}

	payload, ok := feedPayload(msg)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":42}`, string(payload))

	_, ok = feedPayload(kafkago.Message{Key: []byte("42")})
	assert.False(t, ok, "tombstone should be skipped")
}

func TestSerializeRecord(t *testing.T) {
	rec := domain.NeoRecord{
		ID:                "42",
		NeoID:             "3542519",
		Name:              "(2010 PK9)",
		CloseApproachDate: "2024-04-26",
		DiameterKm:        0.3,
		MissDistanceAu:    0.12,
		Hazardous:         true,
	}

	msg, err := serializeRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("42"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "close_approach_date", msg.Headers[0].Key)
	assert.Equal(t, []byte("2024-04-26"), msg.Headers[0].Value)
	assert.Equal(t, "hazardous", msg.Headers[1].Key)
	assert.Equal(t, []byte("true"), msg.Headers[1].Value)

	// The feed payload must parse back into the same record.
	parsed, err := domain.ParseRecord(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, rec, parsed)
}

func TestSerializeChart(t *testing.T) {
	builtAt := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	s := chart.Series{
		Labels:            []string{"2020-01-01", "2020-01-02"},
		CountSeries:       []int{1, 1},
		MinDistanceSeries: []float64{0.5, 0.4},
	}

	msg, err := serializeChart(s, builtAt)
	require.NoError(t, err)

	assert.Equal(t, []byte(ChartKey), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "buckets", msg.Headers[0].Key)
	assert.Equal(t, []byte("2"), msg.Headers[0].Value)
	assert.Equal(t, "built_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(builtAt.Format(time.RFC3339)), msg.Headers[1].Value)

	var got ChartMessage
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, s.Labels, got.Labels)
	assert.Equal(t, s.CountSeries, got.CountSeries)
	assert.Equal(t, s.MinDistanceSeries, got.MinDistanceSeries)
	assert.Equal(t, "index", got.Presentation.InteractionMode)
	require.Len(t, got.Presentation.Datasets, 2)
	assert.Equal(t, []float64{1, 1}, got.Presentation.Datasets[0].Data)
	assert.True(t, builtAt.Equal(got.BuiltAt))
}

func TestChartWriter_CompletionCountsFailures(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	w := &ChartWriter{logger: slog.New(slog.NewTextHandler(io.Discard, nil)), metrics: metrics}

	w.completion([]kafkago.Message{{}, {}}, nil)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.ChartPublishErrors), 0)

	w.completion([]kafkago.Message{{}, {}}, errors.New("leader not available"))
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.ChartPublishErrors), 0)
}
