// Package trajectory holds projected paths and the statistics drawn from them.
package trajectory

import "github.com/ccollicutt/gnsstage/pkg/geo"

// DefaultCapacity is the live-mode point cap.
const DefaultCapacity = 1000

// Window is a bounded path that drops its oldest point when full.
// It is not safe for concurrent use.
type Window struct {
	capacity int
	points   []geo.PlanarOffset
	length   float64
}

// NewWindow creates a Window holding at most capacity points.
// A non-positive capacity selects DefaultCapacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{capacity: capacity, points: make([]geo.PlanarOffset, 0, capacity)}
}

// Push appends p, evicting the oldest point if the window is full.
// It reports whether a point was evicted.
func (w *Window) Push(p geo.PlanarOffset) bool {
	if len(w.points) < w.capacity {
		if n := len(w.points); n > 0 {
			w.length += w.points[n-1].DistanceTo(p)
		}
		w.points = append(w.points, p)
		return false
	}

	if len(w.points) > 1 {
		w.length -= w.points[0].DistanceTo(w.points[1])
	}
	w.length += w.points[len(w.points)-1].DistanceTo(p)
	copy(w.points, w.points[1:])
	w.points[len(w.points)-1] = p
	return true
}

// Len returns the number of points held.
func (w *Window) Len() int { return len(w.points) }

// Cap returns the maximum number of points held.
func (w *Window) Cap() int { return w.capacity }

// Points returns a copy of the held points, oldest first.
func (w *Window) Points() []geo.PlanarOffset {
	out := make([]geo.PlanarOffset, len(w.points))
	copy(out, w.points)
	return out
}

// Last returns the most recent point.
func (w *Window) Last() (geo.PlanarOffset, bool) {
	if len(w.points) == 0 {
		return geo.PlanarOffset{}, false
	}
	return w.points[len(w.points)-1], true
}

// Length returns the path length through the held points.
func (w *Window) Length() float64 {
	if w.length < 0 {
		return 0
	}
	return w.length
}
