package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"narrator/internal/testsupport"
)

func TestBuildCommandEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithHistory())
	cfg.Logging.Level = "error"
	configPath := writeTestConfig(t, t.TempDir(), cfg)

	parent := t.TempDir()
	root := testsupport.WriteAssetTree(t, parent,
		testsupport.FolderSpec{Title: "Opening", Clips: 1},
		testsupport.FolderSpec{Title: "Middle", Clips: 2},
		testsupport.FolderSpec{Title: "Ending", Clips: 1},
	)

	out, _, err := runCLI(t, []string{"build", root, "episode-1", "--workers", "2"}, configPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	final := filepath.Join(parent, "render", "render.mp4")
	requireContains(t, out, "Render complete: "+final)
	if _, err := os.Stat(final); err != nil {
		t.Fatalf("expected final output: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(parent, "timestamps.txt"))
	if err != nil {
		t.Fatalf("read chapters: %v", err)
	}
	chapters := strings.TrimPrefix(string(data), "\ufeff")
	want := "00:00:00 Opening\n00:00:10 Middle\n00:00:30 Ending\n"
	if chapters != want {
		t.Fatalf("chapters = %q, want %q", chapters, want)
	}
	if _, err := os.Stat(filepath.Join(parent, "segment_00.mp4")); !os.IsNotExist(err) {
		t.Fatalf("segments should be cleaned up, stat err = %v", err)
	}

	out, _, err = runCLI(t, []string{"history"}, configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "episode-1")
	requireContains(t, out, "completed")
}

func TestBuildCommandKeepFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Logging.Level = "error"
	cfg.History.Enabled = false
	configPath := writeTestConfig(t, t.TempDir(), cfg)

	parent := t.TempDir()
	root := testsupport.WriteAssetTree(t, parent, testsupport.FolderSpec{Title: "Only", Clips: 1})

	out, _, err := runCLI(t, []string{"build", root, "--keep"}, configPath)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	requireContains(t, out, "kept")
	if _, err := os.Stat(filepath.Join(parent, "segment_00.mp4")); err != nil {
		t.Fatalf("segment should be kept: %v", err)
	}
}

func TestBuildCommandMissingImageFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Logging.Level = "error"
	cfg.History.Enabled = false
	configPath := writeTestConfig(t, t.TempDir(), cfg)

	parent := t.TempDir()
	root := testsupport.WriteAssetTree(t, parent,
		testsupport.FolderSpec{Title: "One", Clips: 1},
		testsupport.FolderSpec{Title: "Two", Clips: 1, NoImage: true},
	)

	_, _, err := runCLI(t, []string{"build", root}, configPath)
	if err == nil || !strings.Contains(err.Error(), "rendering failed") {
		t.Fatalf("expected rendering failure, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(parent, "render", "render.mp4")); !os.IsNotExist(err) {
		t.Fatalf("no output expected after failure, stat err = %v", err)
	}
}

func TestBuildCommandRejectsBadWorkers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, t.TempDir(), cfg)
	if _, _, err := runCLI(t, []string{"build", t.TempDir(), "--workers", "0"}, configPath); err == nil {
		t.Fatalf("expected --workers 0 to be rejected")
	}
}

func TestTimelineCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Logging.Level = "error"
	configPath := writeTestConfig(t, t.TempDir(), cfg)

	parent := t.TempDir()
	root := testsupport.WriteAssetTree(t, parent,
		testsupport.FolderSpec{Title: "First", Clips: 1},
		testsupport.FolderSpec{Title: "Second", Clips: 1, NoImage: true},
	)

	out, _, err := runCLI(t, []string{"timeline", root, "--intro-duration", "8", "--write"}, configPath)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	requireContains(t, out, "First")
	requireContains(t, out, "00:00:18")
	requireContains(t, out, "Total: 00:00:28")
	if _, err := os.Stat(filepath.Join(parent, "audios.txt")); err != nil {
		t.Fatalf("expected audio manifest: %v", err)
	}
}

func TestHistoryDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.Enabled = false
	configPath := writeTestConfig(t, t.TempDir(), cfg)

	_, _, err := runCLI(t, []string{"history"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("expected disabled error, got %v", err)
	}
}
