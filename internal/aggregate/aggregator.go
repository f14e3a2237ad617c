// Package aggregate maintains per-day running aggregates over NEO records.
package aggregate

import (
	"math"

	"github.com/couchcryptid/neo-stream-service/internal/domain"
)

// Bucket is the running aggregate for one close-approach date.
type Bucket struct {
	Count       int     `json:"count"`
	MinDistance float64 `json:"min_distance"`
}

// Snapshot is a read-only copy of the aggregator state keyed by date.
type Snapshot map[string]Bucket

// Aggregator maps calendar dates to running {count, minDistance} buckets.
// A bucket exists for a date iff at least one record with that date was
// ingested. It is not safe for concurrent use; the stream coordinator owns it.
type Aggregator struct {
	buckets map[string]*Bucket
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{buckets: make(map[string]*Bucket)}
}

// Ingest folds one record into the bucket for its close-approach date.
// Records are not deduplicated by ID.
func (a *Aggregator) Ingest(rec domain.NeoRecord) {
	b, ok := a.buckets[rec.CloseApproachDate]
	if !ok {
		b = &Bucket{MinDistance: math.Inf(1)}
		a.buckets[rec.CloseApproachDate] = b
	}
	b.Count++
	b.MinDistance = math.Min(b.MinDistance, rec.MissDistanceAu)
}

// IngestAll folds records in order.
func (a *Aggregator) IngestAll(records []domain.NeoRecord) {
	for _, rec := range records {
		a.Ingest(rec)
	}
}

// Snapshot returns a copy of the current buckets.
func (a *Aggregator) Snapshot() Snapshot {
	out := make(Snapshot, len(a.buckets))
	for date, b := range a.buckets {
		out[date] = *b
	}
	return out
}

// Len returns the number of dates observed.
func (a *Aggregator) Len() int {
	return len(a.buckets)
}
