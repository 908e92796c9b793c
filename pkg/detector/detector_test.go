package detector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

var mixedLog = []string{
	"$GNRMC,120000.00,A,3911.766,N,07715.408,W,0.0,0.0,010124,,,A*6C",
	"$GNGGA,120000.00,3911.766,N,07715.408,W,1,08,0.9,130.0,M,46.9,M,,*47",
	"$GPGSV,3,1,11,01,45,120,40,03,30,045,38,04,12,300,30,06,60,200,44*7F",
	"$GNGGA,120001.00,3911.767,N,07715.408,W,1,08,0.9,130.1,M,46.9,M,,*46",
	"\xb5b\x01\x07binary junk",
	"$GPGGA,120002.00,3911.768,N,07715.408,W,1,08,0.9,130.2,M,46.9,M,,*58",
	"$GNGGA,120002.00,3911.768,N,07715.408,W,1,08,0.9,130.2,M,46.9,M,,*45",
	"$broken",
}

func TestDetector_DetectFromLines(t *testing.T) {
	result := New().DetectFromLines(mixedLog)

	if result.SampledLines != 7 {
		t.Errorf("SampledLines = %d, want 7", result.SampledLines)
	}
	if result.TaggedLines != 6 {
		t.Errorf("TaggedLines = %d, want 6", result.TaggedLines)
	}
	if !result.HasMatch() {
		t.Fatal("expected matches")
	}

	top := result.Matches[0]
	if top.Tag != "$GNGGA" || top.Count != 3 {
		t.Errorf("top match = %s x%d, want $GNGGA x3", top.Tag, top.Count)
	}
	if top.TalkerName != "Multi-GNSS" || !top.Positioning() {
		t.Errorf("top match = %+v", top)
	}
	if top.Share != 0.5 {
		t.Errorf("Share = %f, want 0.5", top.Share)
	}

	var gsv *TagMatch
	for i := range result.Matches {
		if result.Matches[i].Tag == "$GPGSV" {
			gsv = &result.Matches[i]
		}
	}
	if gsv == nil || gsv.TypeName != "GNSS satellites in view" || gsv.Positioning() {
		t.Errorf("GSV match = %+v", gsv)
	}
}

func TestDetectionResult_BestPositioning(t *testing.T) {
	result := New().DetectFromLines([]string{
		"$GPRMC,1,2,3",
		"$GPRMC,1,2,3",
		"$GPGGA,1,2,3",
	})
	best := result.BestPositioning()
	if best == nil || best.Tag != "$GPGGA" {
		t.Errorf("BestPositioning() = %+v, want $GPGGA", best)
	}

	if New().DetectFromLines([]string{"$GPRMC,1"}).BestPositioning() != nil {
		t.Error("BestPositioning() should be nil without GGA sentences")
	}
}

func TestDetector_DetectFromLines_Empty(t *testing.T) {
	result := New().DetectFromLines(nil)
	if result.HasMatch() || result.SampledLines != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestDetector_TiesSortByTag(t *testing.T) {
	result := New().DetectFromLines([]string{"$GPVTG,1", "$GAGGA,1"})
	if result.Matches[0].Tag != "$GAGGA" {
		t.Errorf("Matches[0] = %s, want $GAGGA", result.Matches[0].Tag)
	}
}

func TestDetector_WithSampleSize(t *testing.T) {
	if d := New(WithSampleSize(50)); d.sampleSize != 50 {
		t.Errorf("Expected sample size 50, got %d", d.sampleSize)
	}
	if d := New(WithSampleSize(-1)); d.sampleSize != DefaultSampleSize {
		t.Errorf("Expected default sample size, got %d", d.sampleSize)
	}
}

func TestDetector_DetectFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.ubx")
	if err := os.WriteFile(path, []byte(strings.Join(mixedLog, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	result, err := New(WithSampleSize(3)).DetectFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("DetectFromFile failed: %v", err)
	}
	if result.SampledLines != 3 {
		t.Errorf("SampledLines = %d, want 3", result.SampledLines)
	}
}

func TestDetector_DetectFromFile_NotFound(t *testing.T) {
	_, err := New().DetectFromFile(context.Background(), "/nonexistent/file.ubx")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestConfigSnippet(t *testing.T) {
	snippet, err := ConfigSnippet(&TagMatch{Tag: "$GPGGA"})
	if err != nil {
		t.Fatal(err)
	}

	var parsed struct {
		Input struct {
			Prefix string `yaml:"prefix"`
		} `yaml:"input"`
	}
	if err := yaml.Unmarshal([]byte(snippet), &parsed); err != nil {
		t.Fatalf("snippet is not YAML: %v", err)
	}
	if parsed.Input.Prefix != "$GPGGA" {
		t.Errorf("prefix = %q", parsed.Input.Prefix)
	}
}

func TestDefaultTypes(t *testing.T) {
	types := DefaultTypes()
	if !types["GGA"].Positioning {
		t.Error("GGA should be a positioning type")
	}
	if types["RMC"].Positioning {
		t.Error("RMC should not be a positioning type")
	}
}
