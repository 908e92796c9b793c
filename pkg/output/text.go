package output

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		_, err := fmt.Fprintf(w, "gnsstage: %d positions from %d candidate lines, %d skipped\n",
			report.Summary.Positions, report.Summary.Candidates, report.Summary.Skipped)
		return err
	}

	fmt.Fprintln(w, "=== gnsstage Run Report ===")
	fmt.Fprintf(w, "Source: %s (%s)\n", report.Metadata.Source, report.Metadata.Encoding)
	fmt.Fprintln(w)

	WriteCounts(w, report)

	if !report.HasPositions() {
		WriteNoData(w, report)
		return nil
	}

	fmt.Fprintln(w)
	WriteAltitude(w, report)
	fmt.Fprintln(w)
	WriteSummary(w, report)

	if f.opts.Verbose {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Lines read: %d\n", report.Summary.TotalLines)
		fmt.Fprintf(w, "Path length: %.2f m\n", report.Summary.PathLength)
		if len(report.Rejections) > 0 {
			fmt.Fprintln(w, "Rejections:")
			for _, reason := range sortedKeys(report.Rejections) {
				fmt.Fprintf(w, "  %-20s %d\n", reason, report.Rejections[reason])
			}
		}
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

// WriteCounts prints the filtering and parsing progress lines.
func WriteCounts(w io.Writer, report *Report) {
	fmt.Fprintf(w, "Found %d potentially valid %s lines after initial filtering\n",
		report.Summary.Candidates, tagName(report.Metadata.Prefix))
	fmt.Fprintf(w, "Successfully parsed %d valid positions\n", report.Summary.Positions)
	fmt.Fprintf(w, "Skipped %d invalid/corrupted lines\n", report.Summary.Skipped)
}

// WriteNoData prints the message for a log without usable fixes.
func WriteNoData(w io.Writer, report *Report) {
	fmt.Fprintf(w, "No valid %s data found after cleaning.\n", tagName(report.Metadata.Prefix))
}

// WriteAltitude prints the vertical offset statistics.
func WriteAltitude(w io.Writer, report *Report) {
	a := report.Altitude
	fmt.Fprintln(w, "Altitude Statistics:")
	fmt.Fprintf(w, "Min altitude offset: %.3f m\n", a.Min)
	fmt.Fprintf(w, "Max altitude offset: %.3f m\n", a.Max)
	fmt.Fprintf(w, "Altitude range: %.3f m\n", a.Range)
	fmt.Fprintf(w, "Altitude center: %.3f m\n", a.Center)
}

// WriteSummary prints the closing playback summary.
func WriteSummary(w io.Writer, report *Report) {
	fmt.Fprintln(w, "Playback Summary:")
	fmt.Fprintf(w, "Total positions: %d\n", report.Summary.Positions)
	fmt.Fprintf(w, "Horizontal travel range: %.2f m\n", report.Summary.MaxHorizontal)
	fmt.Fprintf(w, "Observer coordinates: %s\n", report.Metadata.Observer)
}

// tagName drops the leading $ of a sentence tag.
func tagName(prefix string) string {
	if len(prefix) > 0 && prefix[0] == '$' {
		return prefix[1:]
	}
	return prefix
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
