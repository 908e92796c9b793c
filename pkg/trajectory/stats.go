package trajectory

import (
	"math"

	"github.com/ccollicutt/gnsstage/pkg/geo"
)

// MinVerticalBuffer is the smallest half-height of the vertical axis, in meters.
const MinVerticalBuffer = 2.0

// AltitudeStats summarizes the vertical offsets of a path.
type AltitudeStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Range  float64 `json:"range"`
	Center float64 `json:"center"`
}

// Altitudes computes vertical offset statistics. An empty path yields zeros.
func Altitudes(points []geo.PlanarOffset) AltitudeStats {
	if len(points) == 0 {
		return AltitudeStats{}
	}
	lo, hi := points[0].Vertical, points[0].Vertical
	for _, p := range points[1:] {
		lo = math.Min(lo, p.Vertical)
		hi = math.Max(hi, p.Vertical)
	}
	return AltitudeStats{
		Min:    lo,
		Max:    hi,
		Range:  hi - lo,
		Center: (lo + hi) / 2,
	}
}

// Limits is a closed axis interval.
type Limits struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// VerticalLimits returns the vertical axis range for points: the altitude
// center plus or minus max(2, 2*range). An empty path yields [-5, 5].
func VerticalLimits(points []geo.PlanarOffset) Limits {
	if len(points) == 0 {
		return Limits{Min: -5, Max: 5}
	}
	s := Altitudes(points)
	buffer := math.Max(MinVerticalBuffer, s.Range*2)
	return Limits{Min: s.Center - buffer, Max: s.Center + buffer}
}

// HorizontalLimits returns the east/north axis range around a stage.
func HorizontalLimits(stageRadius float64) Limits {
	return Limits{Min: -stageRadius - 2, Max: stageRadius + 2}
}

// PathLength returns the summed 3D distance between consecutive points.
func PathLength(points []geo.PlanarOffset) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += points[i-1].DistanceTo(points[i])
	}
	return total
}

// MaxHorizontal returns the largest ground distance from the origin.
func MaxHorizontal(points []geo.PlanarOffset) float64 {
	m := 0.0
	for _, p := range points {
		m = math.Max(m, p.Horizontal())
	}
	return m
}
