package render

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ccollicutt/gnsstage/pkg/geo"
	"github.com/ccollicutt/gnsstage/pkg/playback"
	"github.com/ccollicutt/gnsstage/pkg/trajectory"
)

func sampleFrame() *playback.Frame {
	path := []geo.PlanarOffset{
		{East: 0, North: 0, Vertical: 0},
		{East: 2, North: 1, Vertical: 0.5},
		{East: 4, North: 3, Vertical: 1},
		{East: 6, North: 4, Vertical: 0.8},
		{East: 7, North: 6, Vertical: 0.4},
		{East: 8, North: 8, Vertical: 0.2},
	}
	pos := path[len(path)-1]
	return &playback.Frame{
		Mode:        playback.ModeBatch,
		Title:       "GNSS Motion Capture Playback | Step 6/6 | Time: 120005",
		Step:        6,
		Total:       6,
		Time:        "120005",
		Position:    pos,
		Path:        path,
		StageRadius: 25,
		Horizontal:  trajectory.HorizontalLimits(25),
		Vertical:    trajectory.VerticalLimits(path),
		Distance2D:  pos.Horizontal(),
		Distance3D:  pos.Distance(),
		PathLength:  trajectory.PathLength(path),
	}
}

type fakeRenderer struct {
	renders int
	closed  bool
	err     error
}

func (f *fakeRenderer) Render(context.Context, *playback.Frame) error {
	f.renders++
	return f.err
}

func (f *fakeRenderer) Close() error {
	f.closed = true
	return f.err
}

func TestMulti_TriesEverySink(t *testing.T) {
	bad := &fakeRenderer{err: errors.New("broken")}
	good := &fakeRenderer{}
	m := NewMulti(bad, nil, good)

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if err := m.Render(context.Background(), sampleFrame()); err == nil || err.Error() != "broken" {
		t.Errorf("Render() error = %v", err)
	}
	if bad.renders != 1 || good.renders != 1 {
		t.Errorf("renders = %d, %d", bad.renders, good.renders)
	}

	if err := m.Close(); err == nil {
		t.Error("Close() should report the failing sink")
	}
	if !bad.closed || !good.closed {
		t.Error("Close() did not close every sink")
	}
}

func TestText_BatchLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewText(&buf)
	if err := r.Render(context.Background(), sampleFrame()); err != nil {
		t.Fatal(err)
	}
	line := buf.String()
	for _, want := range []string{"[6/6] 120005", "Pos: E=8.00m, N=8.00m, Alt=0.200m", "2D 11.31m"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if r.Close() != nil {
		t.Error("Close() returned error")
	}
}

func TestText_LiveLine(t *testing.T) {
	f := sampleFrame()
	f.Mode = playback.ModeLive
	f.Step = 3
	if got := StatusLine(f); !strings.HasPrefix(got, "[live 3] 120005") {
		t.Errorf("StatusLine() = %q", got)
	}
}
