package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "Audio"},
		},
		Format: Format{Duration: "123.45"},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{Streams: []Stream{{Duration: "4.5"}, {Duration: "bad"}, {Duration: "7.25"}}}
	if got := result.DurationSeconds(); got != 7.25 {
		t.Fatalf("expected longest stream duration, got %v", got)
	}
}

func TestDurationInvalidIsNaN(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN, got %v", result.DurationSeconds())
	}
}

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestProberDuration(t *testing.T) {
	stub := writeStub(t, `cat <<'JSON'
{"streams":[{"index":0,"codec_type":"audio"}],"format":{"duration":"12.500000"}}
JSON
`)
	prober := NewProber(stub, nil)
	if got := prober.Duration(context.Background(), "clip.mp3"); got != 12.5 {
		t.Fatalf("Duration = %v, want 12.5", got)
	}
}

func TestProberDurationSwallowsFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"non-zero exit", "echo 'clip.mp3: Invalid data' >&2\nexit 1\n"},
		{"bad json", "echo 'not json'\n"},
		{"bad duration", `echo '{"format":{"duration":"N/A"}}'` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := NewProber(writeStub(t, tt.body), nil)
			if _, err := prober.Probe(context.Background(), "clip.mp3"); err == nil {
				t.Fatal("expected Probe error")
			}
			if got := prober.Duration(context.Background(), "clip.mp3"); got != 0 {
				t.Fatalf("Duration = %v, want 0", got)
			}
		})
	}
}

func TestProberMissingBinary(t *testing.T) {
	prober := NewProber(filepath.Join(t.TempDir(), "missing-ffprobe"), nil)
	if got := prober.Duration(context.Background(), "clip.mp3"); got != 0 {
		t.Fatalf("Duration = %v, want 0", got)
	}
}

func TestProberHasAudio(t *testing.T) {
	withAudio := writeStub(t, `echo '{"streams":[{"codec_type":"video"},{"codec_type":"audio"}],"format":{"duration":"8"}}'
`)
	ok, err := NewProber(withAudio, nil).HasAudio(context.Background(), "intro.mp4")
	if err != nil || !ok {
		t.Fatalf("expected audio stream, got %v, %v", ok, err)
	}

	silent := writeStub(t, `echo '{"streams":[{"codec_type":"video"}],"format":{"duration":"8"}}'
`)
	ok, err = NewProber(silent, nil).HasAudio(context.Background(), "intro.mp4")
	if err != nil || ok {
		t.Fatalf("expected no audio stream, got %v, %v", ok, err)
	}
}
