// Package detector identifies which NMEA sentence tags a log file carries.
package detector

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

// DefaultSampleSize is the number of sentence lines sampled.
const DefaultSampleSize = 500

// maxLineSize bounds a single line; receiver logs may hold long binary runs.
const maxLineSize = 1 << 20

// DetectionResult holds the result of analyzing a log file.
type DetectionResult struct {
	Matches      []TagMatch // Tags seen, sorted by count descending
	SampledLines int        // Number of lines starting with $ that were sampled
	TaggedLines  int        // Number of sampled lines with a well-formed tag
}

// TagMatch counts one sentence tag.
type TagMatch struct {
	Tag        string  // e.g. $GNGGA
	Talker     string  // e.g. GN
	TalkerName string  // e.g. Multi-GNSS
	Type       string  // e.g. GGA
	TypeName   string  // Description, empty for unknown types
	Count      int     // Number of lines with this tag
	Share      float64 // 0.0 to 1.0 of tagged lines
	SampleLine string  // First line seen with this tag
}

// Positioning reports whether the tag carries plottable fixes.
func (m *TagMatch) Positioning() bool {
	return m.Type == sentence.TypeSuffix
}

// Detector samples log files for sentence tags.
type Detector struct {
	types      map[string]SentenceType
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 500).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector with the default sentence types.
func New(opts ...Option) *Detector {
	d := &Detector{
		types:      DefaultTypes(),
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes a log file and returns the tags found.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines counts sentence tags in lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{}
	stats := make(map[string]*TagMatch)

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "$") {
			continue
		}
		result.SampledLines++

		m := tagPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		result.TaggedLines++

		tag := "$" + m[1] + m[2]
		s := stats[tag]
		if s == nil {
			s = &TagMatch{
				Tag:        tag,
				Talker:     m[1],
				TalkerName: Talkers[m[1]],
				Type:       m[2],
				TypeName:   d.types[m[2]].Name,
				SampleLine: line,
			}
			stats[tag] = s
		}
		s.Count++
	}

	for _, s := range stats {
		s.Share = float64(s.Count) / float64(result.TaggedLines)
		result.Matches = append(result.Matches, *s)
	}

	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].Count != result.Matches[j].Count {
			return result.Matches[i].Count > result.Matches[j].Count
		}
		return result.Matches[i].Tag < result.Matches[j].Tag
	})

	return result
}

// sampleFile reads up to sampleSize lines that start with $.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	// #nosec G304 - path is provided by user via CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() && len(lines) < d.sampleSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "$") {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// BestPositioning returns the most frequent GGA tag, or nil if none was seen.
func (r *DetectionResult) BestPositioning() *TagMatch {
	for i := range r.Matches {
		if r.Matches[i].Positioning() {
			return &r.Matches[i]
		}
	}
	return nil
}

// HasMatch returns true if at least one tag was seen.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}

type inputSnippet struct {
	Input struct {
		Prefix string `yaml:"prefix"`
	} `yaml:"input"`
}

// ConfigSnippet returns YAML selecting m as the input prefix.
func ConfigSnippet(m *TagMatch) (string, error) {
	var s inputSnippet
	s.Input.Prefix = m.Tag
	out, err := yaml.Marshal(&s)
	if err != nil {
		return "", fmt.Errorf("encoding snippet: %w", err)
	}
	return string(out), nil
}
