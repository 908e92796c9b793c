package render

import (
	"context"
	"fmt"
	"io"

	"github.com/ccollicutt/gnsstage/pkg/playback"
)

// Text writes one status line per frame.
type Text struct {
	w io.Writer
}

// NewText creates a Text renderer writing to w.
func NewText(w io.Writer) *Text {
	return &Text{w: w}
}

// Render writes the frame's status line.
func (t *Text) Render(_ context.Context, f *playback.Frame) error {
	_, err := fmt.Fprintln(t.w, StatusLine(f))
	return err
}

// Close is a no-op.
func (t *Text) Close() error { return nil }

// StatusLine summarizes a frame on one line.
func StatusLine(f *playback.Frame) string {
	var head string
	if f.Mode == playback.ModeLive {
		head = fmt.Sprintf("[live %d] %s", f.Step, f.Time)
	} else {
		head = fmt.Sprintf("[%d/%d] %s", f.Step, f.Total, f.Time)
	}
	return fmt.Sprintf("%s | %s | 2D %.2fm 3D %.2fm | path %.2fm",
		head, PositionText(f), f.Distance2D, f.Distance3D, f.PathLength)
}

// PositionText formats the current offset.
func PositionText(f *playback.Frame) string {
	return fmt.Sprintf("Pos: E=%.2fm, N=%.2fm, Alt=%.3fm", f.Position.East, f.Position.North, f.Position.Vertical)
}
