package main

import (
	"fmt"
	"strings"
	"testing"

	"narrator/internal/deps"
	"narrator/internal/preflight"
	"narrator/internal/testsupport"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "FFmpeg:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "FFmpeg", Command: "ffmpeg", Available: true, Version: "ffmpeg version 7.0"},
		{Name: "FFprobe", Command: "ffprobe", Available: false},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[OK] Ready (ffmpeg version 7.0)") {
		t.Fatalf("unexpected ready line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] not available") {
		t.Fatalf("unexpected missing line %q", lines[1])
	}
	if !strings.Contains(lines[2], "ffprobe") {
		t.Fatalf("expected missing summary, got %q", lines[2])
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "Default border", Passed: true, Detail: "/a/border.png"},
		{Name: "Default background", Detail: "missing"},
	}, false)
	if !strings.Contains(lines[0], "[OK]") || !strings.Contains(lines[1], "[ERROR] missing") {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestDoctorReportsMissingBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Tools.FFprobe = "/nonexistent/ffprobe"
	configPath := writeTestConfig(t, t.TempDir(), cfg)

	out, _, err := runCLI(t, []string{"doctor"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "FFprobe") {
		t.Fatalf("expected doctor to fail on FFprobe, got %v", err)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "== Preflight ==")
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, []columnAlignment{alignRight})
	if !strings.Contains(out, "only") {
		t.Fatalf("row missing from table:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatalf("expected empty output without headers")
	}
}
