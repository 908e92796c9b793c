// Package reader loads positioning logs and extracts candidate sentence lines.
package reader

import (
	"errors"
	"fmt"
)

// MinLineLength is the length a candidate line must exceed.
const MinLineLength = 50

// ErrNotFound is returned when the log file does not exist. Live tailing
// treats it as "no data yet".
var ErrNotFound = errors.New("log file not found")

// ReadError wraps any I/O failure other than a missing file.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// DropReason names the filter that discarded a decoded line.
type DropReason string

const (
	DropPrefix   DropReason = "prefix"
	DropShort    DropReason = "short"
	DropNonASCII DropReason = "non_ascii"
)

// Result is the outcome of reading one file.
type Result struct {
	// Path is the file that was read.
	Path string

	// Encoding is the name of the encoding that decoded the file.
	Encoding string

	// TotalLines is the number of lines in the decoded text.
	TotalLines int

	// Lines holds the candidate lines in file order, trimmed.
	Lines []string

	// Dropped counts discarded lines per filter.
	Dropped map[DropReason]int
}

// DroppedTotal returns the number of lines discarded by all filters.
func (r *Result) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}
