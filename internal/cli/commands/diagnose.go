package commands

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ccollicutt/gnsstage/internal/cli/plugins"
	"github.com/ccollicutt/gnsstage/pkg/config"
	"github.com/ccollicutt/gnsstage/pkg/detector"
	"github.com/ccollicutt/gnsstage/pkg/geo"
	"github.com/ccollicutt/gnsstage/pkg/output"
	"github.com/ccollicutt/gnsstage/pkg/reader"
	"github.com/ccollicutt/gnsstage/pkg/sentence"
	"github.com/ccollicutt/gnsstage/pkg/webhook"

	"github.com/spf13/cobra"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	ConfigFile string
	Verbose    bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose [log-file]",
		Short: "Explain why lines of a GNSS log are skipped",
		Long: `Diagnose a configuration and the GNSS log it points at.

This command checks for common problems:
- Config file syntax and values
- Log file existence, encoding, and lines dropped by each filter
- Sentence rejection reasons with sample lines
- NMEA checksums and receiver fix quality
- Positions outside the live mode offset limits
- Renderer and webhook settings

Example:
  gnsstage diagnose test.ubx
  gnsstage diagnose -c stage.yaml -v  # verbose output`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (defaults are used when omitted)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, args []string, opts *DiagnoseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	results := []DiagnosticResult{}

	// 1. Configuration
	var cfg *config.Config
	if opts.ConfigFile == "" {
		var result DiagnosticResult
		cfg, result = checkDefaultConfig()
		results = append(results, result)
	} else {
		result := checkConfigExists(opts.ConfigFile)
		results = append(results, result)
		if result.Status == "error" {
			printDiagnostics(w, results, opts)
			return nil
		}
		cfg, result = checkConfigParseable(ctx, opts.ConfigFile)
		results = append(results, result)
	}
	if cfg == nil {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 2. Log file
	path, err := inputPath(cfg, args)
	if err != nil {
		results = append(results, DiagnosticResult{
			Check:    "Log File",
			Status:   "error",
			Message:  err.Error(),
			Suggests: []string{"Pass the log file as an argument or set input.path"},
		})
		printDiagnostics(w, results, opts)
		return nil
	}
	result := checkLogFile(path)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	// 3. Decoding and line filters
	res, result := checkDecoding(ctx, cfg, path)
	results = append(results, result)

	var run *output.Report
	if res != nil && len(res.Lines) > 0 {
		// 4. Sentence validation and parsing
		fixes, result := checkSentences(cfg, res.Lines)
		results = append(results, result)
		run = runCounts(res, fixes)

		// 5. Full NMEA decode
		results = append(results, checkNMEA(res.Lines))

		// 6. Offsets from the observer
		if len(fixes) > 0 {
			results = append(results, checkOffsets(cfg, fixes))
		}
	}

	// 7. Renderers
	results = append(results, checkRender(cfg)...)

	// 8. Webhooks
	results = append(results, checkWebhooks(ctx, cfg, opts, run)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkDefaultConfig() (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config",
	}

	cfg, err := config.FromEnvironment()
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Default configuration is invalid: %v", err)
		result.Suggests = []string{
			"Check the GNSSTAGE_* environment variables",
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "No config file given, using built-in defaults"
	result.Details = configDetails(cfg)
	return cfg, result
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'gnsstage detect <log-file> --write-config config.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'gnsstage detect <log-file> --write-config config.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = configDetails(cfg)
	return cfg, result
}

func configDetails(cfg *config.Config) []string {
	outputs := make([]string, len(cfg.Render.Outputs))
	for i, o := range cfg.Render.Outputs {
		outputs[i] = string(o)
	}
	return []string{
		fmt.Sprintf("Observer: %s", cfg.GeoObserver()),
		fmt.Sprintf("Stage radius: %.1f m", cfg.Stage.Radius),
		fmt.Sprintf("Prefix: %s", cfg.Input.Prefix),
		fmt.Sprintf("Outputs: %s", strings.Join(outputs, ", ")),
	}
}

func checkLogFile(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: fmt.Sprintf("Log File: %s", path),
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		result.Status = "error"
		result.Message = "File does not exist"
		result.Suggests = []string{
			"Check if the log file path is correct",
			"In live mode a missing file is waited for, but there is nothing to diagnose yet",
		}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access file: %v", err)
		result.Suggests = []string{"Check file permissions"}
	case info.IsDir():
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
	case info.Size() == 0:
		result.Status = "warning"
		result.Message = "File is empty (0 bytes)"
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("File exists (%d bytes)", info.Size())
	}
	return result
}

func checkDecoding(ctx context.Context, cfg *config.Config, path string) (*reader.Result, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Line Filters",
	}

	res, err := newReader(cfg).Read(path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot read log: %v", err)
		return nil, result
	}

	result.Details = []string{
		fmt.Sprintf("Encoding: %s", res.Encoding),
		fmt.Sprintf("Total lines: %d", res.TotalLines),
		fmt.Sprintf("Dropped, wrong prefix: %d", res.Dropped[reader.DropPrefix]),
		fmt.Sprintf("Dropped, %d characters or fewer: %d", reader.MinLineLength, res.Dropped[reader.DropShort]),
		fmt.Sprintf("Dropped, non-ASCII: %d", res.Dropped[reader.DropNonASCII]),
	}

	if len(res.Lines) == 0 {
		result.Status = "error"
		result.Message = fmt.Sprintf("No %s candidate lines in %d lines", cfg.Input.Prefix, res.TotalLines)
		result.Suggests = []string{
			"The receiver may use a different talker, e.g. $GPGGA instead of $GNGGA",
			"Use 'gnsstage detect " + path + "' to see which sentences the log carries",
		}
		if hint := suggestPrefix(ctx, path, cfg.Input.Prefix); hint != "" {
			result.Suggests = append([]string{hint}, result.Suggests...)
		}
		return res, result
	}

	if res.Encoding == reader.FallbackEncoding {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d candidate lines, decoded with replacement characters", len(res.Lines))
		return res, result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%d candidate %s lines", len(res.Lines), cfg.Input.Prefix)
	return res, result
}

type rejectionSample struct {
	count  int
	sample string
}

func checkSentences(cfg *config.Config, lines []string) ([]sentence.Fix, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Sentence Decoding",
	}

	p := newParser(cfg)
	var fixes []sentence.Fix
	reasons := map[sentence.Reason]*rejectionSample{}

	for _, line := range lines {
		fix, err := p.Parse(line)
		if err == nil {
			fixes = append(fixes, fix)
			continue
		}
		reason := sentence.ReasonOf(err)
		s := reasons[reason]
		if s == nil {
			s = &rejectionSample{sample: line}
			reasons[reason] = s
		}
		s.count++
	}

	rejected := len(lines) - len(fixes)
	keys := make([]string, 0, len(reasons))
	for r := range reasons {
		keys = append(keys, string(r))
	}
	sort.Strings(keys)
	for _, k := range keys {
		s := reasons[sentence.Reason(k)]
		result.Details = append(result.Details,
			fmt.Sprintf("%s: %d (e.g. %s)", k, s.count, truncate(s.sample, 80)))
	}

	switch {
	case len(fixes) == 0:
		result.Status = "error"
		result.Message = fmt.Sprintf("None of %d candidate lines decoded", len(lines))
		if cfg.Input.RequireChecksum {
			result.Suggests = []string{"Try input.require_checksum: false"}
		}
	case rejected > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d positions decoded, %d lines rejected", len(fixes), rejected)
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("All %d candidate lines decoded", len(fixes))
	}
	return fixes, result
}

func checkNMEA(lines []string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "NMEA Checksum and Fix Quality",
	}

	passed := 0
	var sats int64
	var hdop float64
	quality := map[string]int{}
	var sampleFail string

	for _, line := range lines {
		q, err := sentence.Inspect(line)
		if err != nil {
			if sampleFail == "" {
				sampleFail = fmt.Sprintf("%v", err)
			}
			continue
		}
		passed++
		sats += q.Satellites
		hdop += q.HDOP
		quality[sentence.FixQualityName(q.FixQuality)]++
	}

	failed := len(lines) - passed
	if passed > 0 {
		names := make([]string, 0, len(quality))
		for n := range quality {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			result.Details = append(result.Details, fmt.Sprintf("Fix quality %s: %d", n, quality[n]))
		}
		result.Details = append(result.Details,
			fmt.Sprintf("Mean satellites: %.1f", float64(sats)/float64(passed)),
			fmt.Sprintf("Mean HDOP: %.2f", hdop/float64(passed)),
		)
	}
	if sampleFail != "" {
		result.Details = append(result.Details, "First failure: "+truncate(sampleFail, 80))
	}

	switch {
	case passed == 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("No candidate line passed a full NMEA decode (%d failed)", failed)
		result.Suggests = []string{"Checksums are not required unless input.require_checksum is set"}
	case failed > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d passed, %d failed checksum or decode", passed, failed)
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("All %d candidate lines passed", passed)
	}
	return result
}

func checkOffsets(cfg *config.Config, fixes []sentence.Fix) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Offsets From Observer",
	}

	offsets := geo.ProjectAll(cfg.GeoObserver(), fixes)
	maxH := 0.0
	outside := 0
	for _, p := range offsets {
		if h := p.Horizontal(); h > maxH {
			maxH = h
		}
		if math.Abs(p.East) > cfg.Live.MaxHorizontalOffset ||
			math.Abs(p.North) > cfg.Live.MaxHorizontalOffset ||
			math.Abs(p.Vertical) > cfg.Live.MaxVerticalOffset {
			outside++
		}
	}

	result.Details = []string{
		fmt.Sprintf("Max horizontal distance: %.2f m", maxH),
		fmt.Sprintf("Stage radius: %.1f m", cfg.Stage.Radius),
	}

	switch {
	case outside > 0:
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d of %d positions exceed the live offset limits", outside, len(offsets))
		result.Suggests = []string{
			"Check the observer coordinates, or raise live.max_horizontal_offset / live.max_vertical_offset",
		}
	case maxH > cfg.Stage.Radius:
		result.Status = "warning"
		result.Message = "Some positions lie outside the stage"
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("All %d positions within the stage", len(offsets))
	}
	return result
}

func checkRender(cfg *config.Config) []DiagnosticResult {
	results := []DiagnosticResult{}

	if cfg.Render.Has(config.OutputImage) {
		result := DiagnosticResult{Check: "Renderer: image"}
		dir := filepath.Dir(cfg.Render.Image.Path)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			result.Status = "error"
			result.Message = fmt.Sprintf("Output directory does not exist: %s", dir)
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Writes %s (%dx%d)", cfg.Render.Image.Path, cfg.Render.Image.Width, cfg.Render.Image.Height)
		}
		results = append(results, result)
	}

	if cfg.Render.Has(config.OutputMQTT) {
		m := cfg.Render.MQTT
		results = append(results, DiagnosticResult{
			Check:   "Renderer: mqtt",
			Status:  "ok",
			Message: fmt.Sprintf("Publishes to %s on %s (qos %d)", m.Topic, m.Broker, m.QoS),
		})
	}

	if cfg.Render.Has(config.OutputPlugin) {
		result := DiagnosticResult{Check: "Renderer: plugin"}
		path, err := plugins.FindRenderer(cfg.Render.Plugin.Name)
		if err != nil {
			result.Status = "error"
			result.Message = err.Error()
			result.Suggests = []string{
				fmt.Sprintf("Install %s%s next to gnsstage, in ~/.gnsstage/plugins, or in PATH",
					plugins.RendererPrefix, cfg.Render.Plugin.Name),
			}
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Found: %s", path)
		}
		results = append(results, result)
	}

	return results
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== gnsstage Diagnostics ===")
	fmt.Fprintln(w)

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		// Status icon
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}

		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Fprintln(w, "\nFix the errors above before running playback.")
	} else if warnCount > 0 {
		fmt.Fprintln(w, "\nPlayback will work but some lines or positions will be skipped.")
	} else {
		fmt.Fprintln(w, "\nEverything looks good!")
	}
}

// runCounts summarizes the decode so webhook triggers can be evaluated.
func runCounts(res *reader.Result, fixes []sentence.Fix) *output.Report {
	return &output.Report{
		Summary: output.Summary{
			TotalLines: res.TotalLines,
			Candidates: len(res.Lines),
			Positions:  len(fixes),
			Skipped:    len(res.Lines) - len(fixes),
		},
		Metadata: output.Metadata{Source: res.Path, Encoding: res.Encoding},
	}
}

// checkWebhooks validates each hook and, when run is known, reports whether
// the hook would fire for this log.
func checkWebhooks(ctx context.Context, cfg *config.Config, opts *DiagnoseOptions, run *output.Report) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		// Webhooks are optional, just note they're not configured
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		result := DiagnosticResult{
			Check: "Webhook: " + webhook.Name(wh),
		}

		// Validate a copy so defaults show without touching cfg
		hook := wh
		if err := config.ValidateWebhook(&hook); err != nil {
			result.Status = "error"
			result.Message = err.Error()
			results = append(results, result)
			continue
		}

		result.Status = "ok"
		result.Message = fmt.Sprintf("Trigger: %s", hook.Trigger)
		if run != nil {
			fires := "would not fire"
			if webhook.ShouldFire(hook.Trigger, run.HasSkips()) {
				fires = "would fire"
			}
			result.Message += fmt.Sprintf(", %s for this log (%d skipped)", fires, run.Summary.Skipped)
		}

		// Check if token looks like an unexpanded env var
		if strings.HasPrefix(wh.Token, "$") {
			result.Status = "warning"
			result.Details = []string{fmt.Sprintf("Token appears to be an unresolved env var: %s", wh.Token)}
		} else if opts.Verbose {
			result.Details = []string{
				fmt.Sprintf("URL: %s", hook.URL),
				fmt.Sprintf("Timeout: %s", hook.Timeout),
			}
			if hook.Token != "" {
				result.Details = append(result.Details, "Token: configured")
			}
		}
		results = append(results, result)

		// Optionally test webhook connectivity
		if opts.Verbose {
			result := checkWebhookConnectivity(ctx, hook)
			result.Check = "Webhook Connectivity: " + webhook.Name(wh)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(ctx context.Context, wh config.WebhookConfig) DiagnosticResult {
	resp := webhook.NewClient().Ping(ctx, webhook.SendOptions{URL: wh.URL, Token: wh.Token})

	switch {
	case resp.Error != nil:
		return DiagnosticResult{
			Status:  "warning",
			Message: fmt.Sprintf("Cannot connect: %v", resp.Error),
			Suggests: []string{
				"Check if the webhook URL is correct",
				"Verify network connectivity",
			},
		}
	case resp.StatusCode < 400:
		return DiagnosticResult{
			Status:  "ok",
			Message: fmt.Sprintf("Reachable (status %d, %s)", resp.StatusCode, resp.Duration.Round(time.Millisecond)),
		}
	default:
		return DiagnosticResult{
			Status:  "warning",
			Message: fmt.Sprintf("Reachable but returned status %d", resp.StatusCode),
			Suggests: []string{
				"The endpoint may only accept POST (will work during actual webhook send)",
				"Check authentication if using a token",
			},
		}
	}
}

// suggestPrefix returns a detect hint when another GGA talker is present.
func suggestPrefix(ctx context.Context, path, prefix string) string {
	result, err := detector.New(detector.WithSampleSize(200)).DetectFromFile(ctx, path)
	if err != nil {
		return ""
	}
	best := result.BestPositioning()
	if best == nil || best.Tag == prefix {
		return ""
	}
	return fmt.Sprintf("The log carries %s sentences; set input.prefix: %s", best.Tag, best.Tag)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
