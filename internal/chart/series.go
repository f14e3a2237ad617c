// Package chart projects per-day aggregates into the two-axis line chart.
//
// Every update is a full rebuild from the aggregator snapshot, so the chart
// can never drift from the aggregates however many updates were missed.
package chart

import (
	"slices"

	"github.com/couchcryptid/neo-stream-service/internal/aggregate"
)

// Axis identifiers for the two-axis presentation.
const (
	AxisCount       = "y"
	AxisMinDistance = "y1"
)

// Series holds index-aligned chart data ordered by ascending date.
type Series struct {
	Labels            []string  `json:"labels"`
	CountSeries       []int     `json:"count_series"`
	MinDistanceSeries []float64 `json:"min_distance_series"`
}

// Len returns the number of labels.
func (s Series) Len() int { return len(s.Labels) }

// RebuildFrom builds a Series from snap with labels sorted ascending.
func RebuildFrom(snap aggregate.Snapshot) Series {
	labels := make([]string, 0, len(snap))
	for date := range snap {
		labels = append(labels, date)
	}
	slices.Sort(labels)

	s := Series{
		Labels:            labels,
		CountSeries:       make([]int, len(labels)),
		MinDistanceSeries: make([]float64, len(labels)),
	}
	for i, date := range labels {
		b := snap[date]
		s.CountSeries[i] = b.Count
		s.MinDistanceSeries[i] = b.MinDistance
	}
	return s
}

// Dataset is one line of the chart bound to a y axis.
type Dataset struct {
	Label    string    `json:"label"`
	AxisID   string    `json:"yAxisID"`
	Position string    `json:"position"`
	Data     []float64 `json:"data"`
}

// View is the rendering payload: a shared label axis, two independently
// scaled datasets, and index-grouped interaction.
type View struct {
	Labels          []string  `json:"labels"`
	Datasets        []Dataset `json:"datasets"`
	InteractionMode string    `json:"interaction_mode"`
}

// View converts s into the two-axis rendering payload: counts on the left
// axis, minimum distances on the right.
func (s Series) View() View {
	counts := make([]float64, len(s.CountSeries))
	for i, c := range s.CountSeries {
		counts[i] = float64(c)
	}
	return View{
		Labels: slices.Clone(s.Labels),
		Datasets: []Dataset{
			{Label: "Count", AxisID: AxisCount, Position: "left", Data: counts},
			{Label: "Min Distance (AU)", AxisID: AxisMinDistance, Position: "right", Data: slices.Clone(s.MinDistanceSeries)},
		},
		InteractionMode: "index",
	}
}

// Renderer consumes chart rebuilds. Each call replaces the previous labels
// and series wholesale.
type Renderer interface {
	RenderChart(s Series)
}

// Renderers fans a rebuild out to several renderers in order.
type Renderers []Renderer

// RenderChart implements Renderer.
func (rs Renderers) RenderChart(s Series) {
	for _, r := range rs {
		r.RenderChart(s)
	}
}
