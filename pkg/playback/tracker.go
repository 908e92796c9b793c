package playback

import (
	"fmt"
	"math"

	"github.com/ccollicutt/gnsstage/pkg/geo"
	"github.com/ccollicutt/gnsstage/pkg/sentence"
	"github.com/ccollicutt/gnsstage/pkg/trajectory"
)

// Live-mode reasonableness bounds, in meters from the observer.
const (
	DefaultMaxHorizontalOffset = 1000.0
	DefaultMaxVerticalOffset   = 100.0
)

// UnreasonableError reports a live fix too far from the observer to plot.
type UnreasonableError struct {
	Offset geo.PlanarOffset
}

// Coordinates formats the offset as x, y, z.
func (e *UnreasonableError) Coordinates() string {
	return fmt.Sprintf("x=%.2f, y=%.2f, z=%.2f", e.Offset.East, e.Offset.North, e.Offset.Vertical)
}

func (e *UnreasonableError) Error() string {
	return "unreasonable position: " + e.Coordinates()
}

// Tracker accumulates live fixes into a bounded window.
type Tracker struct {
	observer      geo.Observer
	window        *trajectory.Window
	maxHorizontal float64
	maxVertical   float64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithCapacity sets the maximum number of points kept.
func WithCapacity(n int) TrackerOption {
	return func(t *Tracker) {
		t.window = trajectory.NewWindow(n)
	}
}

// WithBounds sets the reasonableness gate. Non-positive values keep the defaults.
func WithBounds(horizontal, vertical float64) TrackerOption {
	return func(t *Tracker) {
		if horizontal > 0 {
			t.maxHorizontal = horizontal
		}
		if vertical > 0 {
			t.maxVertical = vertical
		}
	}
}

// NewTracker creates a Tracker around o.
func NewTracker(o geo.Observer, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		observer:      o,
		window:        trajectory.NewWindow(trajectory.DefaultCapacity),
		maxHorizontal: DefaultMaxHorizontalOffset,
		maxVertical:   DefaultMaxVerticalOffset,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Accept projects fix and, if it passes the gate, appends it and returns the
// frame to render. A rejected fix returns *UnreasonableError and leaves the
// window unchanged.
func (t *Tracker) Accept(fix sentence.Fix) (*Frame, error) {
	pos := geo.Project(t.observer, fix)
	if math.Abs(pos.East) > t.maxHorizontal ||
		math.Abs(pos.North) > t.maxHorizontal ||
		math.Abs(pos.Vertical) > t.maxVertical {
		return nil, &UnreasonableError{Offset: pos}
	}

	t.window.Push(pos)
	points := t.window.Points()
	clock := fix.Clock()

	return &Frame{
		Mode:        ModeLive,
		Title:       liveTitle(clock, len(points)),
		Step:        len(points),
		Total:       t.window.Cap(),
		Time:        clock,
		Position:    pos,
		Path:        points,
		StageRadius: t.observer.StageRadius,
		Horizontal:  trajectory.HorizontalLimits(t.observer.StageRadius),
		Vertical:    trajectory.VerticalLimits(points),
		Distance2D:  pos.Horizontal(),
		Distance3D:  pos.Distance(),
		PathLength:  t.window.Length(),
	}, nil
}

// Len returns the number of points held.
func (t *Tracker) Len() int { return t.window.Len() }
