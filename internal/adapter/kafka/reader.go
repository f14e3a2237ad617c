package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/backoff"
	"github.com/couchcryptid/neo-stream-service/internal/config"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes the live feed topic. Each dashboard session uses its own
// consumer group so every session sees every record.
// It implements stream.Feed.
type Reader struct {
	reader  *kafkago.Reader
	backoff *backoff.Backoff
	logger  *slog.Logger
}

// NewReader creates a Kafka consumer for the configured feed topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	startOffset := kafkago.LastOffset
	if cfg.KafkaFeedFromStart {
		startOffset = kafkago.FirstOffset
	}
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupID:     cfg.KafkaGroupID,
		Topic:       cfg.KafkaFeedTopic,
		StartOffset: startOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
	return &Reader{reader: r, backoff: backoff.New(), logger: logger}
}

// Subscribe starts delivering message values. Broker connections are made
// lazily, so read failures are logged and retried rather than returned here.
// The channel is closed when ctx ends or the reader is closed.
func (r *Reader) Subscribe(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte, 64)
	go r.run(ctx, out)
	return out, nil
}

func (r *Reader) run(ctx context.Context, out chan<- []byte) {
	defer close(out)

	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			r.logger.Warn("kafka read failed", "topic", r.reader.Config().Topic, "error", err)
			if !r.backoff.Wait(ctx) {
				return
			}
			continue
		}
		r.backoff.Reset()

		payload, ok := feedPayload(msg)
		if !ok {
			continue
		}
		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}

// Close leaves the consumer group.
func (r *Reader) Close() error {
	return r.reader.Close()
}

// feedPayload extracts the record payload from a feed message. Tombstones
// carry no record.
func feedPayload(msg kafkago.Message) ([]byte, bool) {
	if len(msg.Value) == 0 {
		return nil, false
	}
	return msg.Value, true
}
