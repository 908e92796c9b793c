package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/gnsstage/pkg/config"
	"github.com/ccollicutt/gnsstage/pkg/detector"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Detect which NMEA sentences a log file carries",
		Long: `Analyze a receiver log to find the NMEA sentence tags it contains.

Samples lines starting with $ and counts each talker and sentence type.
Reports the most frequent GGA tag, which is the one playback can use, and
provides a ready-to-use YAML configuration snippet.

Optionally generates a starter config file with --write-config.

Example:
  gnsstage detect test.ubx
  gnsstage detect --sample 2000 large.ubx
  gnsstage detect --all test.ubx
  gnsstage detect -w stage.yaml test.ubx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of sentence lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all sentence tags, not just positioning ones")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := runContext(cmd)
	out := cmd.OutOrStdout()

	// Check file exists
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	// Create detector
	d := detector.New(detector.WithSampleSize(opts.SampleSize))

	// Run detection
	result, err := d.DetectFromFile(ctx, logFile)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	// Write config file if requested
	if opts.WriteConfig != "" {
		if err := writeStarterConfig(out, result, logFile, opts.WriteConfig); err != nil {
			return err
		}
	}

	// Output results
	switch opts.Output {
	case "json":
		return outputDetectJSON(out, result, logFile, opts)
	default:
		return outputDetectText(out, result, logFile, opts)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== NMEA Sentence Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintf(w, "Lines with sentence tags: %d\n", result.TaggedLines)
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No NMEA sentences detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: The file may be pure binary (UBX) output.")
		fmt.Fprintln(w, "Enable NMEA output on the receiver, or check the first few lines manually.")
		return nil
	}

	best := result.BestPositioning()
	if best == nil {
		fmt.Fprintln(w, "No GGA sentences detected; playback needs GGA fixes.")
		fmt.Fprintln(w)
	} else {
		fmt.Fprintf(w, "Detected Positioning Sentence: %s\n", best.Tag)
		fmt.Fprintf(w, "Talker: %s\n", talkerLabel(best))
		fmt.Fprintf(w, "Share: %.1f%% (%d/%d tagged lines)\n",
			best.Share*100, best.Count, result.TaggedLines)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Sample line:\n  %s\n", truncate(best.SampleLine, 100))
		fmt.Fprintln(w)

		snippet, err := detector.ConfigSnippet(best)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "--- Configuration snippet (copy to your config file) ---")
		fmt.Fprintln(w)
		fmt.Fprint(w, snippet)
		fmt.Fprintln(w)
	}

	// Show the other tags if requested
	if opts.ShowAll && len(result.Matches) > 0 {
		fmt.Fprintln(w, "--- All sentence tags ---")
		for i, m := range result.Matches {
			name := m.TypeName
			if name == "" {
				name = "unknown type"
			}
			fmt.Fprintf(w, "%d. %s x%d (%.1f%%) %s, %s\n",
				i+1, m.Tag, m.Count, m.Share*100, talkerLabel(&m), name)
		}
		fmt.Fprintln(w)
	}

	return nil
}

func talkerLabel(m *detector.TagMatch) string {
	if m.TalkerName == "" {
		return m.Talker
	}
	return fmt.Sprintf("%s (%s)", m.Talker, m.TalkerName)
}

// JSONMatch represents a tag match in JSON output.
type JSONMatch struct {
	Tag         string  `json:"tag"`
	Talker      string  `json:"talker"`
	TalkerName  string  `json:"talker_name,omitempty"`
	Type        string  `json:"type"`
	TypeName    string  `json:"type_name,omitempty"`
	Positioning bool    `json:"positioning"`
	Count       int     `json:"count"`
	Share       float64 `json:"share"`
	SampleLine  string  `json:"sample_line"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File         string      `json:"file"`
	Prefix       string      `json:"prefix,omitempty"`
	Matches      []JSONMatch `json:"matches"`
	SampledLines int         `json:"sampled_lines"`
	TaggedLines  int         `json:"tagged_lines"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	output := JSONOutput{
		File:         logFile,
		SampledLines: result.SampledLines,
		TaggedLines:  result.TaggedLines,
		Matches:      make([]JSONMatch, 0),
	}
	if best := result.BestPositioning(); best != nil {
		output.Prefix = best.Tag
	}

	for _, m := range result.Matches {
		if !opts.ShowAll && !m.Positioning() {
			continue
		}
		output.Matches = append(output.Matches, JSONMatch{
			Tag:         m.Tag,
			Talker:      m.Talker,
			TalkerName:  m.TalkerName,
			Type:        m.Type,
			TypeName:    m.TypeName,
			Positioning: m.Positioning(),
			Count:       m.Count,
			Share:       m.Share,
			SampleLine:  m.SampleLine,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// writeStarterConfig generates a starter config file with the detected prefix.
func writeStarterConfig(w io.Writer, result *detector.DetectionResult, logFile, configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	// Need a GGA tag to generate config
	best := result.BestPositioning()
	if best == nil {
		return fmt.Errorf("cannot generate config: no GGA sentences detected")
	}

	// Generate the config content
	content := generateStarterConfig(logFile, best)

	// Write the file
	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig creates a YAML config template.
func generateStarterConfig(logFile string, match *detector.TagMatch) string {
	// Get absolute path for log file if possible
	absLogFile := logFile
	if abs, err := filepath.Abs(logFile); err == nil {
		absLogFile = abs
	}

	return fmt.Sprintf(`# gnsstage Configuration
# Generated by: gnsstage detect
# Detected sentence: %s (%.0f%% of tagged lines)

observer:
  # Set these to the surveyed position of the stage centre.
  latitude: %.4f
  longitude: %.4f
  altitude: %.1f

stage:
  radius: %.1f

input:
  path: %s
  prefix: "%s"
  # Verify the trailing *hh checksum of every sentence:
  # require_checksum: true

playback:
  frame_interval: %s

live:
  poll_interval: %s
  max_points: %d
  max_horizontal_offset: %.0f
  max_vertical_offset: %.0f

render:
  outputs: [text]
  # outputs: [text, image, mqtt]
  # image:
  #   path: frame.png
  #   width: %d
  #   height: %d
  # mqtt:
  #   broker: %s
  #   topic: gnsstage/frame

# webhooks:
#   - name: ops
#     url: https://example.com/hooks/gnsstage
#     trigger: on_skips
`, match.Tag, match.Share*100,
		config.DefaultLatitude,
		config.DefaultLongitude,
		config.DefaultAltitude,
		config.DefaultStageRadius,
		absLogFile,
		match.Tag,
		config.DefaultFrameInterval,
		config.DefaultPollInterval,
		config.DefaultMaxPoints,
		config.DefaultMaxHorizontalOffset,
		config.DefaultMaxVerticalOffset,
		config.DefaultImageWidth,
		config.DefaultImageHeight,
		config.DefaultMQTTBroker,
	)
}
