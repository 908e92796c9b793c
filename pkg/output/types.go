// Package output provides formatting and output generation for run reports.
package output

import (
	"time"

	"github.com/ccollicutt/gnsstage/pkg/geo"
	"github.com/ccollicutt/gnsstage/pkg/playback"
	"github.com/ccollicutt/gnsstage/pkg/resolver"
	"github.com/ccollicutt/gnsstage/pkg/trajectory"
)

// Report is the complete result of parsing and projecting one log.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Altitude describes the vertical offsets of the projected path.
	Altitude trajectory.AltitudeStats `json:"altitude"`

	// Rejections counts candidate lines that failed to decode, per reason.
	Rejections map[string]int `json:"rejections,omitempty"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// TotalLines is the number of lines in the log.
	TotalLines int `json:"total_lines"`

	// Candidates is the number of lines that passed the reader filters.
	Candidates int `json:"candidates"`

	// Positions is the number of fixes decoded.
	Positions int `json:"positions"`

	// Skipped is the number of candidate lines that did not decode.
	Skipped int `json:"skipped"`

	// MaxHorizontal is the horizontal travel range in meters.
	MaxHorizontal float64 `json:"max_horizontal"`

	// PathLength is the 3D path length in meters.
	PathLength float64 `json:"path_length"`

	// FramesRendered is set by playback runs.
	FramesRendered int `json:"frames_rendered,omitempty"`
}

// Metadata provides context about the run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used, if any.
	ConfigFile string `json:"config_file,omitempty"`

	// Source is the log file that was read.
	Source string `json:"source"`

	// Encoding is the text encoding that decoded the log.
	Encoding string `json:"encoding"`

	// Prefix is the sentence tag that was accepted.
	Prefix string `json:"prefix"`

	Observer geo.Observer `json:"observer"`

	// AnalyzedAt is when the run finished.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`

	// Interrupted is true when playback was stopped early.
	Interrupted bool `json:"interrupted,omitempty"`
}

// NewReport creates a Report from a parsed batch and its projection.
func NewReport(b *resolver.Batch, plan *playback.Plan, prefix string, started time.Time) *Report {
	now := time.Now()
	r := &Report{
		Summary: Summary{
			TotalLines:    b.TotalLines,
			Candidates:    b.Candidates,
			Positions:     len(b.Fixes),
			Skipped:       b.Rejected(),
			MaxHorizontal: plan.MaxHorizontal,
			PathLength:    plan.PathLength,
		},
		Altitude: plan.Altitude,
		Metadata: Metadata{
			Source:     b.Path,
			Encoding:   b.Encoding,
			Prefix:     prefix,
			Observer:   plan.Observer,
			AnalyzedAt: now,
			Duration:   now.Sub(started),
		},
	}

	if len(b.Rejections) > 0 {
		r.Rejections = make(map[string]int, len(b.Rejections))
		for reason, n := range b.Rejections {
			r.Rejections[string(reason)] = n
		}
	}

	return r
}

// HasSkips returns true if any candidate line failed to decode.
func (r *Report) HasSkips() bool {
	return r.Summary.Skipped > 0
}

// HasPositions returns true if at least one fix was decoded.
func (r *Report) HasPositions() bool {
	return r.Summary.Positions > 0
}
