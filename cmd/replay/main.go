// Command replay publishes a JSON fixture of NEO records to the live feed
// topic, one record at a time, so the dashboard can be exercised without the
// upstream ingest service. Records can also be written to the neos table to
// act as the bulk snapshot.
//
// Usage:
//
//	KAFKA_BROKERS=localhost:9092 go run ./cmd/replay \
//	  -in data/mock/neos_20240420_20240426.json \
//	  -interval 750ms -rebase-today \
//	  -dsn file:neos.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkaadapter "github.com/couchcryptid/neo-stream-service/internal/adapter/kafka"
	"github.com/couchcryptid/neo-stream-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/neo-stream-service/internal/config"
	"github.com/couchcryptid/neo-stream-service/internal/domain"
	"github.com/couchcryptid/neo-stream-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
}

func run() error {
	in := flag.String("in", "data/mock/neos_20240420_20240426.json", "JSON array of NEO records")
	interval := flag.Duration("interval", 500*time.Millisecond, "delay between published records")
	rebase := flag.Bool("rebase-today", false, "shift dates so the latest fixture date becomes today")
	driver := flag.String("driver", sqlstore.DriverSQLite, "database driver for -dsn (sqlite or postgres)")
	dsn := flag.String("dsn", "", "also store the records in this database before publishing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)

	payload, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	records, skipped, err := domain.ParseRecords(payload)
	if err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}
	if skipped > 0 {
		logger.Warn("fixture contains invalid records", "skipped", skipped)
	}

	if *rebase {
		records, err = rebaseDates(records, domain.Today())
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dsn != "" {
		if err := store(ctx, *driver, *dsn, records, logger); err != nil {
			return err
		}
	}

	writer := kafkaadapter.NewFeedWriter(cfg, logger)
	defer writer.Close()

	logger.Info("replaying fixture", "records", len(records), "topic", cfg.KafkaFeedTopic, "interval", *interval)
	published, err := replay(ctx, clockwork.NewRealClock(), *interval, records, writer.Publish)
	logger.Info("replay finished", "published", published)
	return err
}

func store(ctx context.Context, driver, dsn string, records []domain.NeoRecord, logger *slog.Logger) error {
	db, err := sqlstore.Open(ctx, driver, dsn, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	n, err := db.Insert(ctx, records)
	if err != nil {
		return err
	}
	logger.Info("stored fixture", "driver", driver, "inserted", n, "duplicates", len(records)-n)
	return nil
}

// publishFunc sends a batch of records to the feed.
type publishFunc func(ctx context.Context, records []domain.NeoRecord) error

// replay publishes records one by one, waiting interval between them. It
// returns how many were published before ctx ended or a publish failed.
func replay(ctx context.Context, clock clockwork.Clock, interval time.Duration, records []domain.NeoRecord, publish publishFunc) (int, error) {
	for i, rec := range records {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
				return i, nil
			case <-clock.After(interval):
			}
		}
		if err := publish(ctx, []domain.NeoRecord{rec}); err != nil {
			if ctx.Err() != nil {
				return i, nil
			}
			return i, fmt.Errorf("publish record %s: %w", rec.ID, err)
		}
	}
	return len(records), nil
}

// rebaseDates shifts every record by the same number of days so that the
// latest date in the fixture becomes today. Relative spacing between days is
// preserved.
func rebaseDates(records []domain.NeoRecord, today string) ([]domain.NeoRecord, error) {
	if len(records) == 0 {
		return records, nil
	}
	latest := records[0].CloseApproachDate
	for _, r := range records[1:] {
		if r.CloseApproachDate > latest {
			latest = r.CloseApproachDate
		}
	}

	from, err := time.Parse(domain.DateLayout, latest)
	if err != nil {
		return nil, fmt.Errorf("rebase: %w", err)
	}
	to, err := time.Parse(domain.DateLayout, today)
	if err != nil {
		return nil, fmt.Errorf("rebase: %w", err)
	}
	shift := to.Sub(from)

	out := make([]domain.NeoRecord, len(records))
	for i, r := range records {
		d, err := time.Parse(domain.DateLayout, r.CloseApproachDate)
		if err != nil {
			return nil, fmt.Errorf("rebase record %s: %w", r.ID, err)
		}
		r.CloseApproachDate = d.Add(shift).Format(domain.DateLayout)
		out[i] = r
	}
	return out, nil
}
