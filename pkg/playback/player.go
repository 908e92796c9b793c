package playback

import (
	"context"
	"fmt"
	"time"

	"github.com/ccollicutt/gnsstage/pkg/geo"
	"github.com/ccollicutt/gnsstage/pkg/sentence"
	"github.com/ccollicutt/gnsstage/pkg/trajectory"
)

// DefaultFrameInterval is the pause after each batch frame.
const DefaultFrameInterval = 200 * time.Millisecond

// Plan is a projected batch ready for playback.
type Plan struct {
	Observer geo.Observer
	Fixes    []sentence.Fix
	Offsets  []geo.PlanarOffset

	Altitude   trajectory.AltitudeStats
	Horizontal trajectory.Limits
	Vertical   trajectory.Limits

	// MaxHorizontal is the farthest ground distance reached from the observer.
	MaxHorizontal float64

	// PathLength is the full 3D path length.
	PathLength float64
}

// NewPlan projects fixes around o and computes the fixed axis limits.
func NewPlan(o geo.Observer, fixes []sentence.Fix) *Plan {
	offsets := geo.ProjectAll(o, fixes)
	return &Plan{
		Observer:      o,
		Fixes:         fixes,
		Offsets:       offsets,
		Altitude:      trajectory.Altitudes(offsets),
		Horizontal:    trajectory.HorizontalLimits(o.StageRadius),
		Vertical:      trajectory.VerticalLimits(offsets),
		MaxHorizontal: trajectory.MaxHorizontal(offsets),
		PathLength:    trajectory.PathLength(offsets),
	}
}

// Len returns the number of frames the plan produces.
func (p *Plan) Len() int { return len(p.Offsets) }

// Frame builds the frame for index i (0-based), with the path up to and
// including i. length is the cumulative path length at i.
func (p *Plan) Frame(i int, length float64) *Frame {
	pos := p.Offsets[i]
	clock := p.Fixes[i].Clock()
	return &Frame{
		Mode:        ModeBatch,
		Title:       batchTitle(i+1, len(p.Offsets), clock),
		Step:        i + 1,
		Total:       len(p.Offsets),
		Time:        clock,
		Position:    pos,
		Path:        p.Offsets[:i+1],
		StageRadius: p.Observer.StageRadius,
		Horizontal:  p.Horizontal,
		Vertical:    p.Vertical,
		Distance2D:  pos.Horizontal(),
		Distance3D:  pos.Distance(),
		PathLength:  length,
	}
}

// Player renders a plan frame by frame with a fixed pause between frames.
type Player struct {
	renderer Renderer
	interval time.Duration
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithFrameInterval sets the pause after each frame. Zero disables pausing.
func WithFrameInterval(d time.Duration) PlayerOption {
	return func(p *Player) {
		if d >= 0 {
			p.interval = d
		}
	}
}

// NewPlayer creates a Player rendering to r.
func NewPlayer(r Renderer, opts ...PlayerOption) *Player {
	p := &Player{renderer: r, interval: DefaultFrameInterval}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play renders every frame of plan in order. It returns the number of frames
// rendered and stops early with ctx.Err() when ctx is canceled.
func (p *Player) Play(ctx context.Context, plan *Plan) (int, error) {
	length := 0.0
	for i := range plan.Offsets {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if i > 0 {
			length += plan.Offsets[i-1].DistanceTo(plan.Offsets[i])
		}
		if err := p.renderer.Render(ctx, plan.Frame(i, length)); err != nil {
			return i, fmt.Errorf("rendering frame %d: %w", i+1, err)
		}
		if err := wait(ctx, p.interval); err != nil {
			return i + 1, err
		}
	}
	return len(plan.Offsets), nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
