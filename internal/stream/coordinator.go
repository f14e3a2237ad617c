// Package stream coordinates the bulk snapshot, the live feed, and the two
// derived views (per-day chart and today's danger field).
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/aggregate"
	"github.com/couchcryptid/neo-stream-service/internal/chart"
	"github.com/couchcryptid/neo-stream-service/internal/domain"
	"github.com/couchcryptid/neo-stream-service/internal/field"
	"github.com/couchcryptid/neo-stream-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// SnapshotSource performs a one-time bulk read of stored records.
type SnapshotSource interface {
	FetchRecords(ctx context.Context, q domain.Query) ([]domain.NeoRecord, error)
}

// Feed opens the live push channel. Each value received is one raw message
// payload. The channel is closed when the transport gives up or ctx ends.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan []byte, error)
}

// FieldRenderer draws the danger field after every simulation tick.
type FieldRenderer interface {
	RenderField(nodes []field.NodeView, alpha float64)
}

// State is the coordinator lifecycle position.
type State int32

const (
	StateUninitialized State = iota
	StateLoadingSnapshot
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoadingSnapshot:
		return "loading_snapshot"
	case StateStreaming:
		return "streaming"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options tunes the coordinator.
type Options struct {
	FetchTimeout time.Duration
	TickInterval time.Duration
	Field        field.Config
	Clock        clockwork.Clock
}

// Coordinator owns the aggregator and the danger field and is the only
// goroutine that mutates them.
type Coordinator struct {
	snapshots SnapshotSource
	feed      Feed
	chart     chart.Renderer
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options

	state atomic.Int32
	agg   *aggregate.Aggregator
	field *field.Field
}

// New creates a Coordinator. The danger field is bound to the current UTC
// date at construction time.
func New(snapshots SnapshotSource, feed Feed, chartRenderer chart.Renderer, fieldRenderer FieldRenderer, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 16 * time.Millisecond
	}

	var onTick field.TickFunc
	if fieldRenderer != nil {
		onTick = fieldRenderer.RenderField
	}

	return &Coordinator{
		snapshots: snapshots,
		feed:      feed,
		chart:     chartRenderer,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
		agg:       aggregate.New(),
		field:     field.New(opts.Field, domain.DateOf(opts.Clock.Now()), opts.Clock, onTick),
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// CheckReadiness returns nil once the coordinator is streaming.
func (c *Coordinator) CheckReadiness(_ context.Context) error {
	if s := c.State(); s != StateStreaming {
		return fmt.Errorf("coordinator is %s", s)
	}
	return nil
}

// Run loads the snapshot, attaches the live feed, and processes messages and
// simulation ticks until ctx is cancelled. It may only be called once.
func (c *Coordinator) Run(ctx context.Context) error {
	msgs, err := c.bootstrap(ctx)
	if err != nil {
		return err
	}

	ticker := c.opts.Clock.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopping", "reason", ctx.Err())
			return nil
		case payload, ok := <-msgs:
			if !ok {
				c.logger.Warn("live feed closed")
				msgs = nil
				continue
			}
			c.handleMessage(payload)
		case <-ticker.Chan():
			c.step()
		}
	}
}

// bootstrap performs the Uninitialized -> LoadingSnapshot -> Streaming
// transitions and returns the feed channel, which is nil if the feed could
// not be opened.
func (c *Coordinator) bootstrap(ctx context.Context) (<-chan []byte, error) {
	if !c.state.CompareAndSwap(int32(StateUninitialized), int32(StateLoadingSnapshot)) {
		return nil, errors.New("coordinator already started")
	}
	c.metrics.CoordinatorState.Set(float64(StateLoadingSnapshot))
	c.logger.Info("loading snapshot", "field_day", c.field.Day())

	all, today := c.loadSnapshots(ctx)

	c.agg.IngestAll(all)
	c.renderChart()

	accepted := make([]domain.NeoRecord, 0, len(today))
	for _, rec := range today {
		if c.field.Accepts(rec) {
			accepted = append(accepted, rec)
		}
	}
	c.field.Initialize(accepted)
	c.metrics.FieldNodes.Set(float64(c.field.Len()))

	msgs, err := c.feed.Subscribe(ctx)
	if err != nil {
		c.logger.Warn("live feed unavailable, views will not update", "error", err)
		c.metrics.FetchFailures.WithLabelValues("feed").Inc()
		msgs = nil
	}

	c.state.Store(int32(StateStreaming))
	c.metrics.CoordinatorState.Set(float64(StateStreaming))
	c.logger.Info("streaming",
		"snapshot_records", len(all),
		"buckets", c.agg.Len(),
		"field_nodes", c.field.Len(),
	)
	return msgs, nil
}

// loadSnapshots fetches all records and today's records concurrently. Either
// fetch degrades to an empty result on failure.
func (c *Coordinator) loadSnapshots(ctx context.Context) (all, today []domain.NeoRecord) {
	var g errgroup.Group
	g.Go(func() error {
		all = c.fetch(ctx, "snapshot", domain.Query{})
		return nil
	})
	g.Go(func() error {
		today = c.fetch(ctx, "today", domain.Day(c.field.Day()))
		return nil
	})
	_ = g.Wait()
	return all, today
}

func (c *Coordinator) fetch(ctx context.Context, source string, q domain.Query) []domain.NeoRecord {
	if c.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()
	}

	records, err := c.snapshots.FetchRecords(ctx, q)
	if err != nil {
		c.logger.Warn("snapshot fetch failed, using empty result", "source", source, "error", err)
		c.metrics.FetchFailures.WithLabelValues(source).Inc()
		return nil
	}
	c.metrics.SnapshotRecords.WithLabelValues(source).Add(float64(len(records)))
	return records
}

// handleMessage applies one feed payload atomically: a payload that does not
// parse leaves every view untouched.
func (c *Coordinator) handleMessage(payload []byte) {
	c.metrics.MessagesConsumed.Inc()

	rec, err := domain.ParseRecord(payload)
	if err != nil {
		c.metrics.MessagesDropped.Inc()
		c.logger.Debug("dropping malformed feed message", "error", err)
		return
	}

	c.agg.Ingest(rec)
	c.renderChart()

	if c.field.Accepts(rec) {
		c.field.Insert(rec)
		c.metrics.FieldNodes.Set(float64(c.field.Len()))
	}
}

func (c *Coordinator) renderChart() {
	start := time.Now()
	series := chart.RebuildFrom(c.agg.Snapshot())
	if c.chart != nil {
		c.chart.RenderChart(series)
	}
	c.metrics.ChartRebuild.Observe(time.Since(start).Seconds())
	c.metrics.AggregateBuckets.Set(float64(c.agg.Len()))
}

func (c *Coordinator) step() {
	if c.field.Step() {
		c.metrics.FieldAlpha.Set(c.field.Alpha())
	}
}
