package field_test

import (
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/domain"
	"github.com/couchcryptid/neo-stream-service/internal/field"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const today = "2024-04-26"

func neo(id string, diameter float64, hazardous bool) domain.NeoRecord {
	return domain.NeoRecord{
		ID:                domain.RecordID(id),
		CloseApproachDate: today,
		DiameterKm:        diameter,
		MissDistanceAu:    0.1,
		Hazardous:         hazardous,
	}
}

func newTestField(t *testing.T, onTick field.TickFunc) (*field.Field, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC))
	return field.New(field.DefaultConfig(), today, clock, onTick), clock
}

// settle steps until the simulation idles, failing after a generous bound.
func settle(t *testing.T, f *field.Field, clock *clockwork.FakeClock) {
	t.Helper()
	for range 1000 {
		clock.Advance(16 * time.Millisecond)
		if !f.Step() {
			return
		}
	}
	t.Fatal("simulation did not settle")
}

func TestField_Accepts(t *testing.T) {
	f, _ := newTestField(t, nil)
	assert.Equal(t, today, f.Day())
	assert.True(t, f.Accepts(neo("1", 1, false)))
	assert.False(t, f.Accepts(domain.NeoRecord{CloseApproachDate: "2024-04-25"}))
}

func TestField_InitializeSeedsFullSizeNodes(t *testing.T) {
	f, _ := newTestField(t, nil)
	f.Initialize([]domain.NeoRecord{neo("1", 1.5, true), neo("2", 0.1, false)})

	require.Equal(t, 2, f.Len())
	nodes := f.Nodes()
	assert.InDelta(t, 15.0, nodes[0].Radius, 1e-9)
	assert.Equal(t, domain.ColorHazardous, nodes[0].Color)
	assert.InDelta(t, 2.0, nodes[1].Radius, 1e-9)
	assert.Equal(t, domain.ColorSafe, nodes[1].Color)
	assert.NotEqual(t, [2]float64{nodes[0].X, nodes[0].Y}, [2]float64{nodes[1].X, nodes[1].Y}, "nodes must not start stacked")
	assert.InDelta(t, 1.0, f.Alpha(), 1e-9)
}

func TestField_InsertAddsOneNodeAndRestarts(t *testing.T) {
	f, clock := newTestField(t, nil)
	f.Initialize([]domain.NeoRecord{neo("1", 1, false), neo("2", 1, false)})
	settle(t, f, clock)
	require.True(t, f.Settled())

	f.Insert(neo("3", 1.5, true))

	assert.Equal(t, 3, f.Len())
	assert.Positive(t, f.Alpha())
	assert.False(t, f.Settled())
}

func TestField_InsertDuplicateIDStillAddsNode(t *testing.T) {
	f, _ := newTestField(t, nil)
	f.Insert(neo("1", 1, false))
	f.Insert(neo("1", 1, false))
	assert.Equal(t, 2, f.Len())
}

func TestField_EntranceTween(t *testing.T) {
	f, clock := newTestField(t, nil)
	f.Insert(neo("1", 1.5, true))

	node := f.Nodes()[0]
	assert.Zero(t, node.Radius)
	assert.InDelta(t, 15.0, node.TargetRadius, 1e-9)

	clock.Advance(250 * time.Millisecond)
	require.True(t, f.Step())
	mid := f.Nodes()[0].Radius
	assert.Positive(t, mid)
	assert.NotEqual(t, 15.0, mid)

	clock.Advance(250 * time.Millisecond)
	require.True(t, f.Step())
	assert.InDelta(t, 15.0, f.Nodes()[0].Radius, 1e-9)

	clock.Advance(time.Second)
	f.Step()
	assert.InDelta(t, 15.0, f.Nodes()[0].Radius, 1e-9)
}

func TestField_TweenRunsAfterPhysicsSettles(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC))
	cfg := field.DefaultConfig()
	cfg.EnterDuration = time.Hour
	f := field.New(cfg, today, clock, nil)

	f.Insert(neo("1", 1, false))
	for range 400 {
		f.Step()
	}
	require.True(t, f.Settled())
	assert.True(t, f.Step(), "tween still animating")

	clock.Advance(time.Hour)
	assert.True(t, f.Step())
	assert.InDelta(t, 10.0, f.Nodes()[0].Radius, 1e-9)
	assert.False(t, f.Step())
}

func TestField_SettlesWithoutOverlap(t *testing.T) {
	f, clock := newTestField(t, nil)
	records := []domain.NeoRecord{
		neo("1", 1, true), neo("2", 1, false), neo("3", 0.5, false),
		neo("4", 2, true), neo("5", 0.1, false), neo("6", 1.2, false),
	}
	f.Initialize(records)
	settle(t, f, clock)

	cfg := field.DefaultConfig()
	nodes := f.Nodes()
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			a, b := nodes[i], nodes[j]
			d := math.Hypot(a.X-b.X, a.Y-b.Y)
			minSep := a.TargetRadius + b.TargetRadius + cfg.Padding
			assert.GreaterOrEqual(t, d, 0.9*minSep, "nodes %s and %s overlap", a.ID, b.ID)
		}
	}
}

func TestField_CentersNodeSet(t *testing.T) {
	f, clock := newTestField(t, nil)
	f.Initialize([]domain.NeoRecord{neo("1", 1, true), neo("2", 1, false), neo("3", 0.5, false)})
	settle(t, f, clock)

	var sx, sy float64
	for _, n := range f.Nodes() {
		sx += n.X
		sy += n.Y
	}
	cfg := field.DefaultConfig()
	assert.InDelta(t, cfg.Width/2, sx/3, 1.0)
	assert.InDelta(t, cfg.Height/2, sy/3, 1.0)
}

func TestField_TickCallbackReportsAllNodes(t *testing.T) {
	var got []field.NodeView
	var gotAlpha float64
	calls := 0
	f, clock := newTestField(t, func(nodes []field.NodeView, alpha float64) {
		calls++
		got = nodes
		gotAlpha = alpha
	})

	f.Initialize([]domain.NeoRecord{neo("1", 1, false)})
	f.Insert(neo("2", 1, true))
	clock.Advance(16 * time.Millisecond)
	require.True(t, f.Step())

	assert.Equal(t, 1, calls)
	require.Len(t, got, 2)
	assert.Equal(t, domain.RecordID("1"), got[0].ID)
	assert.Equal(t, domain.RecordID("2"), got[1].ID)
	assert.Less(t, gotAlpha, 1.0)
	assert.Positive(t, gotAlpha)
}

func TestField_NegativeDiameterClampsToMinimum(t *testing.T) {
	f, _ := newTestField(t, nil)
	f.Initialize([]domain.NeoRecord{neo("1", -4, false)})
	assert.InDelta(t, domain.MinRadius, f.Nodes()[0].TargetRadius, 1e-9)
}

func TestField_EmptyFieldSteps(t *testing.T) {
	f, clock := newTestField(t, nil)
	f.Initialize(nil)
	assert.Equal(t, 0, f.Len())
	settle(t, f, clock)
	assert.False(t, f.Step())
}
