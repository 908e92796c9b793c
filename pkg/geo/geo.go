// Package geo projects geodetic fixes into a local flat-earth frame.
//
// The projection is equirectangular around the observer and is only accurate
// within a few hundred meters of it.
package geo

import (
	"fmt"
	"math"

	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

// Observer is the fixed origin of the local frame.
type Observer struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`

	// StageRadius is the radius of the platform drawn around the origin, in meters.
	StageRadius float64 `json:"stage_radius"`
}

// String formats the observer the way the playback summary prints it.
func (o Observer) String() string {
	return fmt.Sprintf("%.6f°%s, %.6f°%s, %.1fm ASL",
		math.Abs(o.Latitude), hemisphere(o.Latitude, "N", "S"),
		math.Abs(o.Longitude), hemisphere(o.Longitude, "E", "W"),
		o.Altitude)
}

func hemisphere(v float64, pos, neg string) string {
	if v < 0 {
		return neg
	}
	return pos
}

// PlanarOffset is a displacement from the observer in meters.
type PlanarOffset struct {
	East     float64 `json:"east"`
	North    float64 `json:"north"`
	Vertical float64 `json:"vertical"`
}

// Horizontal returns the ground distance from the origin.
func (p PlanarOffset) Horizontal() float64 {
	return math.Hypot(p.East, p.North)
}

// Distance returns the straight-line distance from the origin.
func (p PlanarOffset) Distance() float64 {
	return math.Sqrt(p.East*p.East + p.North*p.North + p.Vertical*p.Vertical)
}

// DistanceTo returns the straight-line distance between two offsets.
func (p PlanarOffset) DistanceTo(q PlanarOffset) float64 {
	de := q.East - p.East
	dn := q.North - p.North
	dv := q.Vertical - p.Vertical
	return math.Sqrt(de*de + dn*dn + dv*dv)
}

// Project converts fix to an offset relative to o.
func Project(o Observer, fix sentence.Fix) PlanarOffset {
	const rad = math.Pi / 180
	return PlanarOffset{
		East:     (fix.Longitude - o.Longitude) * rad * EarthRadius * math.Cos(o.Latitude*rad),
		North:    (fix.Latitude - o.Latitude) * rad * EarthRadius,
		Vertical: fix.Altitude - o.Altitude,
	}
}

// ProjectAll projects fixes in order.
func ProjectAll(o Observer, fixes []sentence.Fix) []PlanarOffset {
	out := make([]PlanarOffset, len(fixes))
	for i, f := range fixes {
		out[i] = Project(o, f)
	}
	return out
}
