// Package tail follows a growing positioning log.
package tail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/ccollicutt/gnsstage/pkg/reader"
	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

// DefaultInterval is the pause between size checks.
const DefaultInterval = 500 * time.Millisecond

// Source resolves the most recent fix in a file.
type Source interface {
	LatestValid(path string) (sentence.Fix, bool, error)
}

// Kind classifies a poll outcome.
type Kind int

const (
	// KindWaiting means the file does not exist yet.
	KindWaiting Kind = iota

	// KindNoFix means the file changed but holds no usable fix.
	KindNoFix

	// KindFix means the file changed and a fix was resolved.
	KindFix

	// KindError means the stat or resolve failed for another reason.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindWaiting:
		return "waiting"
	case KindNoFix:
		return "no-fix"
	case KindFix:
		return "fix"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is reported for every poll that found something to say. Polls where
// the file size is unchanged produce no event.
type Event struct {
	Kind Kind
	Size int64
	Fix  sentence.Fix
	Err  error
}

// Config configures a Poller.
type Config struct {
	Path     string
	Interval time.Duration
}

// Stats counts poll outcomes.
type Stats struct {
	Polls   uint64 `json:"polls"`
	Skips   uint64 `json:"skips"`
	Updates uint64 `json:"updates"`
	Errors  uint64 `json:"errors"`
}

// Poller checks a file's size on a timer and resolves the latest fix when it
// changes. Run is synchronous; handlers run on the polling goroutine.
type Poller struct {
	cfg    Config
	source Source

	lastSize int64

	polls   atomic.Uint64
	skips   atomic.Uint64
	updates atomic.Uint64
	errors  atomic.Uint64
}

// NewPoller creates a Poller for cfg.Path.
func NewPoller(cfg Config, src Source) (*Poller, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("tail path is required")
	}
	if src == nil {
		return nil, fmt.Errorf("tail source is nil")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Poller{cfg: cfg, source: src}, nil
}

// Run polls immediately and then every interval until ctx is done, passing
// each event to handle. It returns ctx.Err().
func (p *Poller) Run(ctx context.Context, handle func(Event)) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	if ev, ok := p.Poll(); ok {
		handle(ev)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ev, ok := p.Poll(); ok {
				handle(ev)
			}
		}
	}
}

// Poll performs one size check. It reports false when the size is unchanged.
// The initial size is zero, so an empty file produces no event.
func (p *Poller) Poll() (Event, bool) {
	p.polls.Add(1)

	st, err := os.Stat(p.cfg.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Event{Kind: KindWaiting}, true
		}
		p.errors.Add(1)
		return Event{Kind: KindError, Err: err}, true
	}

	size := st.Size()
	if size == p.lastSize {
		p.skips.Add(1)
		return Event{}, false
	}
	p.lastSize = size

	fix, ok, err := p.source.LatestValid(p.cfg.Path)
	switch {
	case errors.Is(err, reader.ErrNotFound):
		return Event{Kind: KindWaiting, Size: size}, true
	case err != nil:
		p.errors.Add(1)
		return Event{Kind: KindError, Size: size, Err: err}, true
	case !ok:
		return Event{Kind: KindNoFix, Size: size}, true
	}

	p.updates.Add(1)
	return Event{Kind: KindFix, Size: size, Fix: fix}, true
}

// Stats returns a snapshot of the poll counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Polls:   p.polls.Load(),
		Skips:   p.skips.Load(),
		Updates: p.updates.Load(),
		Errors:  p.errors.Load(),
	}
}

// Path returns the file being followed.
func (p *Poller) Path() string { return p.cfg.Path }
