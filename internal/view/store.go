// Package view keeps the most recent render of each dashboard view so HTTP
// handlers can read it from other goroutines.
package view

import (
	"slices"
	"sync"

	"github.com/couchcryptid/neo-stream-service/internal/chart"
	"github.com/couchcryptid/neo-stream-service/internal/field"
)

// FieldState is the latest danger-field frame.
type FieldState struct {
	Nodes []field.NodeView `json:"nodes"`
	Alpha float64          `json:"alpha"`
	Frame uint64           `json:"frame"`
}

// ChartState is the latest chart rebuild.
type ChartState struct {
	chart.Series
	Presentation chart.View `json:"view"`
	Revision     uint64     `json:"revision"`
}

// Store implements chart.Renderer and stream.FieldRenderer.
type Store struct {
	mu       sync.RWMutex
	series   chart.Series
	revision uint64
	nodes    []field.NodeView
	alpha    float64
	frame    uint64
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// RenderChart replaces the stored series wholesale.
func (s *Store) RenderChart(series chart.Series) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series = series
	s.revision++
}

// RenderField replaces the stored node frame.
func (s *Store) RenderField(nodes []field.NodeView, alpha float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nodes
	s.alpha = alpha
	s.frame++
}

// Chart returns a copy of the latest chart.
func (s *Store) Chart() ChartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := chart.Series{
		Labels:            nonNil(slices.Clone(s.series.Labels)),
		CountSeries:       nonNil(slices.Clone(s.series.CountSeries)),
		MinDistanceSeries: nonNil(slices.Clone(s.series.MinDistanceSeries)),
	}
	return ChartState{Series: series, Presentation: series.View(), Revision: s.revision}
}

// Field returns a copy of the latest field frame.
func (s *Store) Field() FieldState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FieldState{Nodes: nonNil(slices.Clone(s.nodes)), Alpha: s.alpha, Frame: s.frame}
}

// nonNil keeps empty views encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
