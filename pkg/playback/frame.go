// Package playback turns fixes into frames and drives renderers with them.
package playback

import (
	"context"
	"fmt"

	"github.com/ccollicutt/gnsstage/pkg/geo"
	"github.com/ccollicutt/gnsstage/pkg/trajectory"
)

// Mode identifies how a frame was produced.
type Mode string

const (
	// ModeBatch frames replay a whole file.
	ModeBatch Mode = "batch"

	// ModeLive frames follow a growing file.
	ModeLive Mode = "live"
)

// Frame is one rendered view of the stage.
//
// Path shares memory with the producer and must not be modified by renderers.
type Frame struct {
	Mode  Mode   `json:"mode"`
	Title string `json:"title"`

	// Step is 1-based. In live mode it equals the number of points held.
	Step  int `json:"step"`
	Total int `json:"total"`

	// Time is the hhmmss clock of the current fix.
	Time string `json:"time"`

	Position geo.PlanarOffset   `json:"position"`
	Path     []geo.PlanarOffset `json:"path,omitempty"`

	StageRadius float64           `json:"stage_radius"`
	Horizontal  trajectory.Limits `json:"horizontal"`
	Vertical    trajectory.Limits `json:"vertical"`

	Distance2D float64 `json:"distance_2d"`
	Distance3D float64 `json:"distance_3d"`
	PathLength float64 `json:"path_length"`
}

// Renderer consumes frames.
type Renderer interface {
	Render(ctx context.Context, f *Frame) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, f *Frame) error

// Render calls fn.
func (fn RendererFunc) Render(ctx context.Context, f *Frame) error {
	return fn(ctx, f)
}

func batchTitle(step, total int, clock string) string {
	return fmt.Sprintf("GNSS Motion Capture Playback | Step %d/%d | Time: %s", step, total, clock)
}

func liveTitle(clock string, points int) string {
	return fmt.Sprintf("Live GNSS Tracking | Time: %s | Points: %d", clock, points)
}
