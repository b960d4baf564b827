package progress

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleProgress = `frame=10
out_time_us=2000000
out_time_ms=2000000
speed=2.0x
progress=continue
frame=20
out_time_ms=5000000
speed=2.5x
progress=continue
out_time_ms=10000000
progress=end
`

func TestParseAll(t *testing.T) {
	events, err := ParseAll(strings.NewReader(sampleProgress))
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Elapsed != 2 || events[0].Speed != 2 {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Elapsed != 5 || events[1].Speed != 2.5 {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
	if !events[2].Done || events[2].Elapsed != 10 {
		t.Fatalf("unexpected final event: %+v", events[2])
	}
}

func TestParserKeepsPartialLines(t *testing.T) {
	var p parser
	if got := p.feed([]byte("out_time_ms=3000")); len(got) != 0 {
		t.Fatalf("partial line produced events: %+v", got)
	}
	got := p.feed([]byte("000\nprogress=continue\n"))
	if len(got) != 1 || got[0].Elapsed != 3 {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestEventPercentAndETA(t *testing.T) {
	ev := Event{Elapsed: 15, Total: 60, Speed: 3}
	if got := ev.Percent(); got != 25 {
		t.Fatalf("Percent = %v", got)
	}
	if got := ev.ETA(); got != 15*time.Second {
		t.Fatalf("ETA = %v", got)
	}
	if got := (Event{Elapsed: 5}).Percent(); got != -1 {
		t.Fatalf("unknown total should be -1, got %v", got)
	}
	if got := (Event{Elapsed: 90, Total: 60}).Percent(); got != 100 {
		t.Fatalf("percent must clamp, got %v", got)
	}
	if got := (Event{Done: true}).Percent(); got != 100 {
		t.Fatalf("done percent = %v", got)
	}
}

func TestSummary(t *testing.T) {
	got := Summary(Event{Label: "video_concat", Elapsed: 30, Total: 120, Speed: 2})
	want := "Video Concat 25.0% (ETA 45s, @ 2.0x)"
	if got != want {
		t.Fatalf("Summary = %q, want %q", got, want)
	}
	if got := Summary(Event{Label: "final mux", Elapsed: 120, Total: 120, Done: true}); got != "Final Mux 100.0%" {
		t.Fatalf("done summary = %q", got)
	}
}

func TestFormatETA(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, ""},
		{5 * time.Second, "5s"},
		{65 * time.Second, "1m5s"},
		{time.Hour + 2*time.Second, "1h0m2s"},
	}
	for _, tt := range tests {
		if got := formatETA(tt.in); got != tt.want {
			t.Errorf("formatETA(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWatchPublishesUntilEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.txt")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := Watch(ctx, path, "audio_concat", 10, 5*time.Millisecond)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	for _, chunk := range []string{
		"out_time_ms=1000000\nprogress=continue\n",
		"out_time_ms=1000000\nprogress=continue\n",
		"out_time_ms=4000000\nprogress=continue\n",
		"out_time_ms=10000000\nprogress=end\n",
	} {
		if _, err := f.WriteString(chunk); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(15 * time.Millisecond)
	}

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	if len(got) == 0 {
		t.Fatal("expected events")
	}
	last := got[len(got)-1]
	if !last.Done || last.Label != "audio_concat" || last.Total != 10 {
		t.Fatalf("unexpected final event: %+v", last)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Elapsed < got[i-1].Elapsed {
			t.Fatalf("events not monotonic: %+v", got)
		}
		if !got[i].Done && got[i].Elapsed == got[i-1].Elapsed {
			t.Fatalf("duplicate sample published: %+v", got)
		}
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := Watch(ctx, filepath.Join(t.TempDir(), "missing.txt"), "x", 0, 5*time.Millisecond)
	cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected no events from a missing file")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestTrackReturnsOperationResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "progress.txt")
	var buf bytes.Buffer
	r := NewReporter(&buf, nil)

	boom := errors.New("ffmpeg failed")
	err := Track(context.Background(), r, path, "final_mux", 10, 5*time.Millisecond, func() error {
		return os.WriteFile(path, []byte("out_time_ms=2000000\nprogress=continue\n"), 0o644)
	})
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	err = Track(context.Background(), r, path, "final_mux", 10, 5*time.Millisecond, func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("non-terminal writer must not receive status lines: %q", buf.String())
	}
}

func TestTrackWithoutProgressFile(t *testing.T) {
	called := false
	if err := Track(context.Background(), nil, "", "x", 0, 0, func() error { called = true; return nil }); err != nil {
		t.Fatalf("Track: %v", err)
	}
	if !called {
		t.Fatal("fn not called")
	}
}
