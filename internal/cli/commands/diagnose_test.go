package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/gnsstage/pkg/config"
	"github.com/ccollicutt/gnsstage/pkg/output"
	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

func findResult(results []DiagnosticResult, check string) *DiagnosticResult {
	for i := range results {
		if strings.HasPrefix(results[i].Check, check) {
			return &results[i]
		}
	}
	return nil
}

func TestNewDiagnoseCommand(t *testing.T) {
	cmd := NewDiagnoseCommand()

	if cmd.Use != "diagnose [log-file]" {
		t.Errorf("Unexpected Use: %s", cmd.Use)
	}

	// Check verbose flag exists
	if cmd.Flags().Lookup("verbose") == nil {
		t.Error("Missing verbose flag")
	}
}

func TestCheckConfigExists_NotFound(t *testing.T) {
	result := checkConfigExists("/nonexistent/config.yaml")

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "not found") {
		t.Errorf("Expected 'not found' in message, got: %s", result.Message)
	}
}

func TestCheckConfigExists_Empty(t *testing.T) {
	configPath := writeFile(t, "empty.yaml", "")

	result := checkConfigExists(configPath)

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "empty") {
		t.Errorf("Expected 'empty' in message, got: %s", result.Message)
	}
}

func TestCheckConfigExists_Directory(t *testing.T) {
	result := checkConfigExists(t.TempDir())

	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if !strings.Contains(result.Message, "directory") {
		t.Errorf("Expected 'directory' in message, got: %s", result.Message)
	}
}

func TestCheckConfigExists_Success(t *testing.T) {
	configPath := writeFile(t, "config.yaml", "stage:\n  radius: 10\n")

	if result := checkConfigExists(configPath); result.Status != "ok" {
		t.Errorf("Expected ok status, got %s", result.Status)
	}
}

func TestCheckConfigParseable(t *testing.T) {
	bad := writeFile(t, "invalid.yaml", "invalid: yaml: content: bad")
	if _, result := checkConfigParseable(context.Background(), bad); result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}

	good := writeConfig(t, "stage:\n  radius: 10\n")
	cfg, result := checkConfigParseable(context.Background(), good)
	if result.Status != "ok" {
		t.Errorf("Expected ok status, got %s: %s", result.Status, result.Message)
	}
	if cfg == nil || cfg.Stage.Radius != 10 {
		t.Errorf("Expected config to be returned, got %+v", cfg)
	}
}

func TestRunDiagnose_MissingConfig(t *testing.T) {
	stdout, _, err := run(context.Background(), NewDiagnoseCommand(), "-c", "/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("diagnose should report, not fail: %v", err)
	}
	if !strings.Contains(stdout, "[FAIL] Config File") {
		t.Errorf("expected config failure:\n%s", stdout)
	}
}

func TestRunDiagnose_Track(t *testing.T) {
	track := writeTrack(t)

	stdout, _, err := run(context.Background(), NewDiagnoseCommand(), "-v", track)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"[PASS] Config",
		"[PASS] Log File: " + track,
		"[PASS] Line Filters",
		"4 candidate $GNGGA lines",
		"Dropped, wrong prefix: 2",
		"[WARN] Sentence Decoding",
		"3 positions decoded, 1 lines rejected",
		"empty critical field: 1",
		"[WARN] NMEA Checksum and Fix Quality",
		"3 passed, 1 failed",
		"Fix quality gps: 3",
		"[PASS] Offsets From Observer",
		"Summary:",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestRunDiagnose_MissingLog(t *testing.T) {
	stdout, _, err := run(context.Background(), NewDiagnoseCommand(), "/nonexistent/track.ubx")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "[FAIL] Log File") || !strings.Contains(stdout, "File does not exist") {
		t.Errorf("expected missing log failure:\n%s", stdout)
	}
}

func TestCheckDecoding_SuggestsDetectedPrefix(t *testing.T) {
	gp := strings.Replace(gga("120000", "3911.766", "130.0"), "$GNGGA", "$GPGGA", 1)
	track := writeFile(t, "gp.ubx", gp+"\n"+gp+"\n")

	res, result := checkDecoding(context.Background(), config.DefaultConfig(), track)
	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if res == nil || res.TotalLines != 2 {
		t.Errorf("reader result = %+v", res)
	}
	if len(result.Suggests) == 0 || !strings.Contains(result.Suggests[0], "input.prefix: $GPGGA") {
		t.Errorf("Suggests = %v", result.Suggests)
	}
}

func TestCheckSentences_NoneDecoded(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input.RequireChecksum = true

	_, result := checkSentences(cfg, []string{emptyAltitude})
	if result.Status != "error" {
		t.Errorf("Expected error status, got %s", result.Status)
	}
	if len(result.Suggests) == 0 {
		t.Error("expected checksum hint")
	}
}

func TestCheckNMEA_AllPass(t *testing.T) {
	result := checkNMEA([]string{gga("120000", "3911.766", "130.0")})
	if result.Status != "ok" {
		t.Errorf("Expected ok status, got %s: %s", result.Status, result.Message)
	}
	if !strings.Contains(strings.Join(result.Details, "\n"), "Mean satellites: 8.0") {
		t.Errorf("Details = %v", result.Details)
	}
}

func TestCheckOffsets_OutsideLiveLimits(t *testing.T) {
	cfg := config.DefaultConfig()
	far, err := sentence.Parse(gga("120000", "3921.766", "130.0"))
	if err != nil {
		t.Fatal(err)
	}

	result := checkOffsets(cfg, []sentence.Fix{far})
	if result.Status != "warning" || !strings.Contains(result.Message, "exceed the live offset limits") {
		t.Errorf("result = %+v", result)
	}
}

func TestCheckRender(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PATH", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Render.Outputs = []config.Output{config.OutputImage, config.OutputMQTT, config.OutputPlugin}
	cfg.Render.Image.Path = "/nonexistent/dir/frame.png"
	cfg.Render.Plugin.Name = "missing"

	results := checkRender(cfg)
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if r := findResult(results, "Renderer: image"); r == nil || r.Status != "error" {
		t.Errorf("image result = %+v", r)
	}
	if r := findResult(results, "Renderer: mqtt"); r == nil || r.Status != "ok" {
		t.Errorf("mqtt result = %+v", r)
	}
	if r := findResult(results, "Renderer: plugin"); r == nil || r.Status != "error" {
		t.Errorf("plugin result = %+v", r)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10.", 10, "exactly10."},
		{"this is a long string", 10, "this is..."},
		{"", 10, ""},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

// Webhook diagnose tests

func TestCheckWebhooks_NoWebhooks(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := &DiagnoseOptions{Verbose: false}

	// Without verbose, should return empty
	if results := checkWebhooks(context.Background(), cfg, opts, nil); len(results) != 0 {
		t.Errorf("Expected 0 results without verbose, got %d", len(results))
	}

	// With verbose, should return 1 result
	opts.Verbose = true
	if results := checkWebhooks(context.Background(), cfg, opts, nil); len(results) != 1 {
		t.Errorf("Expected 1 result with verbose, got %d", len(results))
	}
}

func TestCheckWebhooks_ValidWebhook(t *testing.T) {
	configPath := writeConfig(t, `webhooks:
  - name: test-webhook
    url: "https://example.com/webhook"
    trigger: on_skips
    timeout: 10s
`)
	cfg, _ := checkConfigParseable(context.Background(), configPath)

	results := checkWebhooks(context.Background(), cfg, &DiagnoseOptions{}, nil)
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].Status != "ok" {
		t.Errorf("Expected ok status, got %s: %s", results[0].Status, results[0].Message)
	}
}

func TestCheckWebhooks_Issues(t *testing.T) {
	// Config validation rejects these first, so build the config directly.
	tests := []struct {
		name   string
		hook   config.WebhookConfig
		status string
	}{
		{"missing url", config.WebhookConfig{Name: "a"}, "error"},
		{"bad scheme", config.WebhookConfig{Name: "b", URL: "ftp://example.com"}, "error"},
		{"no host", config.WebhookConfig{Name: "c", URL: "https://"}, "error"},
		{"bad trigger", config.WebhookConfig{Name: "d", URL: "https://example.com", Trigger: "on_issues"}, "error"},
		{"unexpanded token", config.WebhookConfig{Name: "e", URL: "https://example.com", Token: "${UNSET_TOKEN}"}, "warning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Webhooks = []config.WebhookConfig{tt.hook}

			results := checkWebhooks(context.Background(), cfg, &DiagnoseOptions{}, nil)
			if len(results) != 1 {
				t.Fatalf("Expected 1 result, got %d", len(results))
			}
			if results[0].Status != tt.status {
				t.Errorf("Status = %s, want %s (%s)", results[0].Status, tt.status, results[0].Message)
			}
		})
	}
}

func TestCheckWebhooks_VerboseMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("connectivity check used %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Webhooks = []config.WebhookConfig{{
		Name:    "verbose-test",
		URL:     server.URL,
		Trigger: config.WebhookTriggerAlways,
		Token:   "secret-token",
	}}

	results := checkWebhooks(context.Background(), cfg, &DiagnoseOptions{Verbose: true}, nil)
	if len(results) != 2 {
		t.Fatalf("Expected config and connectivity results, got %d", len(results))
	}
	if len(results[0].Details) == 0 {
		t.Error("Expected details in verbose mode")
	}
	if r := findResult(results, "Webhook Connectivity"); r == nil || r.Status != "ok" {
		t.Errorf("connectivity result = %+v", r)
	}
}

func TestCheckWebhooks_TriggerForRun(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Webhooks = []config.WebhookConfig{
		{Name: "skips", URL: "https://example.com/a"},
		{Name: "always", URL: "https://example.com/b", Trigger: config.WebhookTriggerAlways},
		{Name: "never", URL: "https://example.com/c", Trigger: config.WebhookTriggerNever},
	}

	tests := []struct {
		name    string
		skipped int
		want    []string
	}{
		{"clean log", 0, []string{"would not fire", "would fire", "would not fire"}},
		{"skipped lines", 3, []string{"would fire", "would fire", "would not fire"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &output.Report{Summary: output.Summary{Candidates: 10, Positions: 10 - tt.skipped, Skipped: tt.skipped}}
			results := checkWebhooks(context.Background(), cfg, &DiagnoseOptions{}, run)
			if len(results) != 3 {
				t.Fatalf("Expected 3 results, got %d", len(results))
			}
			for i, want := range tt.want {
				msg := results[i].Message
				if !strings.Contains(msg, want+" for this log") {
					t.Errorf("%s: message = %q, want %q", results[i].Check, msg, want)
				}
			}
			if !strings.Contains(results[0].Message, "Trigger: on_skips") {
				t.Errorf("default trigger not shown: %q", results[0].Message)
			}
		})
	}

	if cfg.Webhooks[0].Trigger != "" {
		t.Error("checkWebhooks modified the config")
	}
}

func TestRunDiagnose_WebhookFires(t *testing.T) {
	track := writeTrack(t)
	configPath := writeConfig(t, `webhooks:
  - name: ops
    url: "https://example.com/hook"
    trigger: always
`)

	var buf bytes.Buffer
	if err := runDiagnose(context.Background(), &buf, []string{track}, &DiagnoseOptions{ConfigFile: configPath}); err != nil {
		t.Fatalf("runDiagnose failed: %v", err)
	}
	if !strings.Contains(buf.String(), "would fire for this log") {
		t.Errorf("output missing trigger evaluation:\n%s", buf.String())
	}
}

func TestPrintDiagnostics(t *testing.T) {
	results := []DiagnosticResult{
		{Check: "Test1", Status: "ok", Message: "All good", Details: []string{"hidden"}},
		{Check: "Test2", Status: "warning", Message: "Hmm", Details: []string{"detail1"}},
		{Check: "Test3", Status: "error", Message: "Bad", Suggests: []string{"Fix it"}},
	}

	var buf bytes.Buffer
	printDiagnostics(&buf, results, &DiagnoseOptions{})
	out := buf.String()

	for _, want := range []string{"[PASS] Test1", "[WARN] Test2", "- detail1", "Hint: Fix it",
		"Summary: 1 passed, 1 warnings, 1 errors", "Fix the errors above"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("details of passing checks shown without verbose")
	}
}

func TestCheckLogFile(t *testing.T) {
	empty := writeFile(t, "empty.ubx", "")
	track := writeTrack(t)

	tests := []struct {
		path   string
		status string
	}{
		{"/nonexistent/track.ubx", "error"},
		{t.TempDir(), "error"},
		{empty, "warning"},
		{track, "ok"},
	}
	for _, tt := range tests {
		if got := checkLogFile(tt.path).Status; got != tt.status {
			t.Errorf("checkLogFile(%s) = %s, want %s", filepath.Base(tt.path), got, tt.status)
		}
	}

}
