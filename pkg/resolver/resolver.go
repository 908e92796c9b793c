// Package resolver turns a positioning log into validated fixes.
package resolver

import (
	"context"
	"log"

	"github.com/ccollicutt/gnsstage/pkg/reader"
	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

// PreviewLength is how much of a rejected line is logged.
const PreviewLength = 50

// Batch is the result of parsing a whole file.
type Batch struct {
	// Path is the file that was parsed.
	Path string

	// Encoding is the encoding that decoded the file.
	Encoding string

	// TotalLines is the number of lines in the file.
	TotalLines int

	// Candidates is the number of lines that passed the reader filters.
	Candidates int

	// Fixes holds every successfully decoded fix in file order.
	Fixes []sentence.Fix

	// Rejections counts candidate lines that failed to decode, per reason.
	Rejections map[sentence.Reason]int
}

// Rejected returns the number of candidate lines that failed to decode.
func (b *Batch) Rejected() int {
	return b.Candidates - len(b.Fixes)
}

// Skipped returns the number of lines in the file that did not yield a fix.
func (b *Batch) Skipped() int {
	return b.TotalLines - len(b.Fixes)
}

// Resolver reads a log and decodes fixes from it.
type Resolver struct {
	reader *reader.Reader
	parser *sentence.Parser
	logger *log.Logger

	scanPastParseFailures bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithReader sets the log reader.
func WithReader(rd *reader.Reader) Option {
	return func(r *Resolver) {
		if rd != nil {
			r.reader = rd
		}
	}
}

// WithParser sets the sentence parser.
func WithParser(p *sentence.Parser) Option {
	return func(r *Resolver) {
		if p != nil {
			r.parser = p
		}
	}
}

// WithLogger enables per-line rejection logging.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithScanPastParseFailures makes LatestValid keep scanning backward when a
// structurally valid line fails to decode, instead of reporting no fix.
func WithScanPastParseFailures(v bool) Option {
	return func(r *Resolver) {
		r.scanPastParseFailures = v
	}
}

// New creates a Resolver using the default reader and parser unless overridden.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		reader: reader.New(),
		parser: sentence.NewParser(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseAll decodes every candidate line of path. Bad lines are counted and
// skipped; only read failures and context cancellation return an error.
func (r *Resolver) ParseAll(ctx context.Context, path string) (*Batch, error) {
	res, err := r.reader.Read(path)
	if err != nil {
		return nil, err
	}

	b := &Batch{
		Path:       path,
		Encoding:   res.Encoding,
		TotalLines: res.TotalLines,
		Candidates: len(res.Lines),
		Fixes:      make([]sentence.Fix, 0, len(res.Lines)),
		Rejections: make(map[sentence.Reason]int),
	}

	for _, line := range res.Lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fix, err := r.parser.Parse(line)
		if err != nil {
			b.Rejections[sentence.ReasonOf(err)]++
			r.logSkip(line, err)
			continue
		}
		b.Fixes = append(b.Fixes, fix)
	}

	return b, nil
}

// LatestValid returns the most recent fix in path, scanning from the end.
//
// The scan stops at the first line that passes validation. If that line then
// fails to decode, no fix is reported unless the resolver was built with
// WithScanPastParseFailures.
func (r *Resolver) LatestValid(path string) (sentence.Fix, bool, error) {
	lines, err := r.reader.ReadCandidateLines(path)
	if err != nil {
		return sentence.Fix{}, false, err
	}

	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if !r.parser.IsValid(line) {
			continue
		}
		fix, err := r.parser.Parse(line)
		if err == nil {
			return fix, true, nil
		}
		r.logSkip(line, err)
		if !r.scanPastParseFailures {
			return sentence.Fix{}, false, nil
		}
	}

	return sentence.Fix{}, false, nil
}

func (r *Resolver) logSkip(line string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Printf("Skipping invalid line: %s... (Error: %v)", Preview(line, PreviewLength), err)
}

// Preview returns at most n bytes of line.
func Preview(line string, n int) string {
	if len(line) <= n {
		return line
	}
	return line[:n]
}
