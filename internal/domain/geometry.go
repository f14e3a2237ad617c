package domain

import "math"

const (
	MinRadius = 2.0
	MaxRadius = 20.0

	// radiusPerKm scales diameter in kilometres to field units.
	radiusPerKm = 10.0
)

// Color is a node fill colour in the danger field.
type Color string

const (
	ColorHazardous Color = "red"
	ColorSafe      Color = "green"
)

// RadiusFor maps a diameter to a node radius in [MinRadius, MaxRadius].
// It is non-decreasing in diameterKm; NaN maps to MinRadius.
func RadiusFor(diameterKm float64) float64 {
	if math.IsNaN(diameterKm) {
		return MinRadius
	}
	return math.Max(MinRadius, math.Min(MaxRadius, diameterKm*radiusPerKm))
}

// HazardColor returns the fill colour for a hazard flag.
func HazardColor(hazardous bool) Color {
	if hazardous {
		return ColorHazardous
	}
	return ColorSafe
}

// Radius returns the display radius for r.
func (r NeoRecord) Radius() float64 { return RadiusFor(r.DiameterKm) }

// Color returns the display colour for r.
func (r NeoRecord) Color() Color { return HazardColor(r.Hazardous) }
