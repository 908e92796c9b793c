package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/gnsstage/pkg/reader"
	"github.com/ccollicutt/gnsstage/pkg/sentence"
)

func gga(clock string, lat string, alt string) string {
	return fmt.Sprintf("$GNGGA,%s.00,%s,N,07715.408,W,1,08,0.9,%s,M,46.9,M,,*47", clock, lat, alt)
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.ubx")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseAll_KeepsValidSubsetInOrder(t *testing.T) {
	path := writeLog(t,
		gga("120000", "3911.766", "130.0"),
		"noise",
		gga("120001", "0000.000", "130.0"), // zero latitude
		"$GNRMC,120001.00,A,3911.766,N,07715.408,W,0.0,0.0,010124,,,A*6C",
		gga("120002", "3911.767", "131.0"),
		"$GNGGA,120003.00,\xc3\xa9"+strings.Repeat("x", 60),
		gga("120004", "8975.000", "130.0"), // past the pole after conversion
		gga("120005", "3911.768", "132.0"),
	)

	b, err := New().ParseAll(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseAll() error = %v", err)
	}

	if b.TotalLines != 8 {
		t.Errorf("TotalLines = %d, want 8", b.TotalLines)
	}
	if b.Candidates != 5 {
		t.Errorf("Candidates = %d, want 5", b.Candidates)
	}
	if len(b.Fixes) != 3 {
		t.Fatalf("got %d fixes, want 3", len(b.Fixes))
	}
	wantClocks := []string{"120000", "120002", "120005"}
	for i, want := range wantClocks {
		if b.Fixes[i].Clock() != want {
			t.Errorf("Fixes[%d].Clock() = %q, want %q", i, b.Fixes[i].Clock(), want)
		}
	}
	if b.Rejected() != 2 {
		t.Errorf("Rejected() = %d, want 2", b.Rejected())
	}
	if b.Skipped() != 5 {
		t.Errorf("Skipped() = %d, want 5", b.Skipped())
	}
	if b.Rejections[sentence.ReasonZeroCoordinate] != 1 || b.Rejections[sentence.ReasonRange] != 1 {
		t.Errorf("Rejections = %v", b.Rejections)
	}
	if b.Encoding != "utf-8" {
		t.Errorf("Encoding = %q, want utf-8", b.Encoding)
	}
}

func TestParseAll_LogsSkippedLines(t *testing.T) {
	path := writeLog(t, gga("120000", "0000.000", "130.0"))

	var buf bytes.Buffer
	r := New(WithLogger(log.New(&buf, "", 0)))
	if _, err := r.ParseAll(context.Background(), path); err != nil {
		t.Fatalf("ParseAll() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Skipping invalid line: $GNGGA,120000.00,0000.000") {
		t.Errorf("log output = %q", out)
	}
	if !strings.Contains(out, "zero coordinate") {
		t.Errorf("log output missing reason: %q", out)
	}
}

func TestParseAll_NotFound(t *testing.T) {
	_, err := New().ParseAll(context.Background(), filepath.Join(t.TempDir(), "nope.ubx"))
	if !errors.Is(err, reader.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestParseAll_ContextCanceled(t *testing.T) {
	path := writeLog(t, gga("120000", "3911.766", "130.0"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New().ParseAll(ctx, path); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestLatestValid_ReturnsMostRecent(t *testing.T) {
	path := writeLog(t,
		gga("120000", "3911.766", "130.0"),
		gga("120001", "3911.800", "131.0"),
		gga("120002", "0000.000", "131.0"), // fails validation, skipped
		"trailing noise",
	)

	fix, ok, err := New().LatestValid(path)
	if err != nil {
		t.Fatalf("LatestValid() error = %v", err)
	}
	if !ok {
		t.Fatal("LatestValid() found no fix")
	}
	if fix.Clock() != "120001" {
		t.Errorf("Clock() = %q, want 120001", fix.Clock())
	}
	if math.Abs(fix.Latitude-(39+11.8/60)) > 1e-9 {
		t.Errorf("Latitude = %f", fix.Latitude)
	}
}

func TestLatestValid_StopsAtUndecodableLine(t *testing.T) {
	path := writeLog(t,
		gga("120000", "3911.766", "130.0"),
		gga("120001", "8975.000", "130.0"), // validates, fails conversion
	)

	_, ok, err := New().LatestValid(path)
	if err != nil {
		t.Fatalf("LatestValid() error = %v", err)
	}
	if ok {
		t.Error("LatestValid() returned a fix, want none")
	}

	fix, ok, err := New(WithScanPastParseFailures(true)).LatestValid(path)
	if err != nil {
		t.Fatalf("LatestValid() error = %v", err)
	}
	if !ok || fix.Clock() != "120000" {
		t.Errorf("scan-past LatestValid() = %+v, %v; want 120000 fix", fix, ok)
	}
}

func TestLatestValid_NoCandidates(t *testing.T) {
	path := writeLog(t, "nothing", "to", "see")
	_, ok, err := New().LatestValid(path)
	if err != nil || ok {
		t.Errorf("LatestValid() = ok %v, err %v; want false, nil", ok, err)
	}
}

func TestLatestValid_NotFound(t *testing.T) {
	_, _, err := New().LatestValid(filepath.Join(t.TempDir(), "nope.ubx"))
	if !errors.Is(err, reader.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestResolver_CustomPrefix(t *testing.T) {
	line := strings.Replace(gga("120000", "3911.766", "130.0"), "$GNGGA", "$GPGGA", 1)
	path := writeLog(t, line)

	r := New(
		WithReader(reader.New(reader.WithPrefix("$GPGGA"))),
		WithParser(sentence.NewParser(sentence.WithPrefix("$GPGGA"))),
	)
	b, err := r.ParseAll(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseAll() error = %v", err)
	}
	if len(b.Fixes) != 1 {
		t.Errorf("got %d fixes, want 1", len(b.Fixes))
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("abcdef", 3); got != "abc" {
		t.Errorf("Preview() = %q", got)
	}
	if got := Preview("ab", 3); got != "ab" {
		t.Errorf("Preview() = %q", got)
	}
}
