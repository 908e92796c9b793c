package tail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ccollicutt/gnsstage/pkg/resolver"
	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

const validLine = "$GNGGA,120000.00,3911.766,N,07715.408,W,1,08,0.9,130.0,M,46.9,M,,*47\n"

type stubSource struct {
	fix   sentence.Fix
	ok    bool
	err   error
	calls int
}

func (s *stubSource) LatestValid(string) (sentence.Fix, bool, error) {
	s.calls++
	return s.fix, s.ok, s.err
}

func appendTo(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatal(err)
	}
}

func TestNewPoller_Validation(t *testing.T) {
	if _, err := NewPoller(Config{}, &stubSource{}); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := NewPoller(Config{Path: "x"}, nil); err == nil {
		t.Error("expected error for nil source")
	}
	p, err := NewPoller(Config{Path: "x"}, &stubSource{})
	if err != nil {
		t.Fatal(err)
	}
	if p.cfg.Interval != DefaultInterval {
		t.Errorf("Interval = %v, want %v", p.cfg.Interval, DefaultInterval)
	}
}

func TestPoll_WaitsForMissingFile(t *testing.T) {
	src := &stubSource{}
	p, _ := NewPoller(Config{Path: filepath.Join(t.TempDir(), "live.ubx")}, src)

	ev, ok := p.Poll()
	if !ok || ev.Kind != KindWaiting {
		t.Errorf("Poll() = %v, %v; want waiting", ev.Kind, ok)
	}
	if src.calls != 0 {
		t.Errorf("source called %d times for missing file", src.calls)
	}
}

func TestPoll_OnlyResolvesOnSizeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.ubx")
	p, _ := NewPoller(Config{Path: path}, resolver.New())

	appendTo(t, path, validLine)
	ev, ok := p.Poll()
	if !ok || ev.Kind != KindFix {
		t.Fatalf("Poll() = %v, %v (err %v); want fix", ev.Kind, ok, ev.Err)
	}
	if ev.Fix.Clock() != "120000" {
		t.Errorf("Clock() = %q", ev.Fix.Clock())
	}

	if _, ok := p.Poll(); ok {
		t.Error("Poll() reported an event for an unchanged file")
	}

	appendTo(t, path, "garbage\n")
	ev, ok = p.Poll()
	if !ok || ev.Kind != KindFix {
		t.Errorf("Poll() after append = %v, %v", ev.Kind, ok)
	}

	s := p.Stats()
	if s.Polls != 3 || s.Skips != 1 || s.Updates != 2 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestPoll_EmptyFileIsUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.ubx")
	appendTo(t, path, "")
	p, _ := NewPoller(Config{Path: path}, &stubSource{})
	if _, ok := p.Poll(); ok {
		t.Error("Poll() on empty file reported an event")
	}
}

func TestPoll_NoFixAndError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.ubx")
	appendTo(t, path, "noise\n")

	src := &stubSource{}
	p, _ := NewPoller(Config{Path: path}, src)
	if ev, _ := p.Poll(); ev.Kind != KindNoFix {
		t.Errorf("Poll() = %v, want no-fix", ev.Kind)
	}

	src.err = errors.New("boom")
	appendTo(t, path, "more\n")
	ev, _ := p.Poll()
	if ev.Kind != KindError || ev.Err == nil {
		t.Errorf("Poll() = %v (err %v), want error", ev.Kind, ev.Err)
	}
	if p.Stats().Errors != 1 {
		t.Errorf("Errors = %d, want 1", p.Stats().Errors)
	}
}

func TestRun_PollsImmediatelyAndStopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.ubx")
	appendTo(t, path, validLine)

	p, _ := NewPoller(Config{Path: path, Interval: time.Hour}, resolver.New())
	ctx, cancel := context.WithCancel(context.Background())

	var events []Event
	err := p.Run(ctx, func(ev Event) {
		events = append(events, ev)
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(events) != 1 || events[0].Kind != KindFix {
		t.Errorf("events = %+v", events)
	}
}

func TestKindString(t *testing.T) {
	if KindFix.String() != "fix" || Kind(42).String() != "Kind(42)" {
		t.Error("unexpected Kind strings")
	}
}
