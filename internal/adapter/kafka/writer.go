package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/chart"
	"github.com/couchcryptid/neo-stream-service/internal/config"
	"github.com/couchcryptid/neo-stream-service/internal/domain"
	"github.com/couchcryptid/neo-stream-service/internal/observability"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// ChartKey is the message key of every published chart rebuild, so a
// compacted topic retains only the latest series.
const ChartKey = "neo-chart"

// ChartMessage is the published form of one chart rebuild.
type ChartMessage struct {
	chart.Series
	Presentation chart.View `json:"view"`
	BuiltAt      time.Time  `json:"built_at"`
}

// ChartWriter publishes every chart rebuild to a Kafka topic.
// It implements chart.Renderer.
type ChartWriter struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// NewChartWriter creates a producer for the configured chart topic. Writes
// are asynchronous so publishing never stalls the coordinator; failures are
// logged and counted.
func NewChartWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *ChartWriter {
	w := &ChartWriter{logger: logger, metrics: metrics, clock: clockwork.NewRealClock()}
	w.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaChartTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
		Completion:   w.completion,
	}
	return w
}

// RenderChart implements chart.Renderer.
func (w *ChartWriter) RenderChart(s chart.Series) {
	msg, err := serializeChart(s, w.clock.Now())
	if err != nil {
		w.metrics.ChartPublishErrors.Inc()
		w.logger.Error("serialize chart", "error", err)
		return
	}
	if err := w.writer.WriteMessages(context.Background(), msg); err != nil {
		w.metrics.ChartPublishErrors.Inc()
		w.logger.Warn("publish chart", "error", err)
	}
}

func (w *ChartWriter) completion(msgs []kafkago.Message, err error) {
	if err == nil {
		return
	}
	w.metrics.ChartPublishErrors.Add(float64(len(msgs)))
	w.logger.Warn("publish chart", "messages", len(msgs), "error", err)
}

// Close flushes pending writes.
func (w *ChartWriter) Close() error {
	return w.writer.Close()
}

// serializeChart marshals a chart rebuild into a Kafka message.
func serializeChart(s chart.Series, builtAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(ChartMessage{Series: s, Presentation: s.View(), BuiltAt: builtAt.UTC()})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize chart series: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ChartKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "buckets", Value: []byte(strconv.Itoa(s.Len()))},
			{Key: "built_at", Value: []byte(builtAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}

// FeedWriter publishes records to the live feed topic.
type FeedWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewFeedWriter creates a producer for the configured feed topic.
func NewFeedWriter(cfg *config.Config, logger *slog.Logger) *FeedWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaFeedTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &FeedWriter{writer: w, logger: logger}
}

// Publish serializes and publishes records in a single WriteMessages call.
func (w *FeedWriter) Publish(ctx context.Context, records []domain.NeoRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeRecord(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

// Close flushes pending writes.
func (w *FeedWriter) Close() error {
	return w.writer.Close()
}

// serializeRecord marshals a NeoRecord into a feed message.
func serializeRecord(rec domain.NeoRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize neo record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "close_approach_date", Value: []byte(rec.CloseApproachDate)},
			{Key: "hazardous", Value: []byte(strconv.FormatBool(rec.Hazardous))},
		},
	}, nil
}
