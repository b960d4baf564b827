package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"narrator/internal/config"
	"narrator/internal/fetch"
	"narrator/internal/ffmpeg"
	"narrator/internal/history"
	"narrator/internal/notifications"
	"narrator/internal/pipeline"
	"narrator/internal/render"
	"narrator/internal/services"
	"narrator/internal/testsupport"
	"narrator/internal/workspace"
)

type fakeEncoder struct {
	mu    sync.Mutex
	calls []string

	muxAudio     string
	silence      float64
	renderFail   map[string]error
	audioErr     error
	normalizeErr error
	videoErr     error
	muxErr       error
}

func (f *fakeEncoder) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeEncoder) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func touch(path string) error {
	return os.WriteFile(path, []byte("media"), 0o644)
}

func (f *fakeEncoder) ConcatAudio(_ context.Context, _, output, _ string, _ ffmpeg.AudioSettings) error {
	f.record("concat_audio")
	if f.audioErr != nil {
		return f.audioErr
	}
	return touch(output)
}

func (f *fakeEncoder) RenderSegment(_ context.Context, req ffmpeg.SegmentRequest) error {
	f.record("render")
	if err := f.renderFail[filepath.Base(req.Output)]; err != nil {
		return err
	}
	return touch(req.Output)
}

func (f *fakeEncoder) NormalizeIntro(_ context.Context, _, output string, _ ffmpeg.VideoSettings) error {
	f.record("normalize_intro")
	if f.normalizeErr != nil {
		return f.normalizeErr
	}
	return touch(output)
}

func (f *fakeEncoder) ConcatVideo(_ context.Context, _, output, _ string) error {
	f.record("concat_video")
	if f.videoErr != nil {
		return f.videoErr
	}
	return touch(output)
}

func (f *fakeEncoder) ExtractAudio(_ context.Context, _, output string, _ ffmpeg.AudioSettings) error {
	f.record("extract_audio")
	return touch(output)
}

func (f *fakeEncoder) Silence(_ context.Context, seconds float64, output string, _ ffmpeg.AudioSettings) error {
	f.record("silence")
	f.mu.Lock()
	f.silence = seconds
	f.mu.Unlock()
	return touch(output)
}

func (f *fakeEncoder) ConcatCopy(_ context.Context, _, output string) error {
	f.record("concat_copy")
	return touch(output)
}

func (f *fakeEncoder) Mux(_ context.Context, _, audio, output, _, _ string) error {
	f.record("mux")
	f.mu.Lock()
	f.muxAudio = audio
	f.mu.Unlock()
	if f.muxErr != nil {
		return f.muxErr
	}
	return touch(output)
}

// fakeProber keys clip durations by folder name and the intro by file name.
type fakeProber struct {
	durations map[string]float64
	hasAudio  bool
}

func (p *fakeProber) Probe(_ context.Context, path string) (float64, error) {
	if d, ok := p.durations[filepath.Base(path)]; ok {
		return d, nil
	}
	if d, ok := p.durations[filepath.Base(filepath.Dir(path))]; ok {
		return d, nil
	}
	return 0, errors.New("unknown media")
}

func (p *fakeProber) HasAudio(context.Context, string) (bool, error) {
	return p.hasAudio, nil
}

type fakeFetcher struct {
	err error
}

func (f *fakeFetcher) Fetch(_ context.Context, _, dir string, class fetch.Class) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	path := filepath.Join(dir, class.FileName(""))
	if err := touch(path); err != nil {
		return "", false, err
	}
	return path, true, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed int
	failed    []string
}

func (n *fakeNotifier) NotifyBuildCompleted(context.Context, notifications.BuildSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed++
	return nil
}

func (n *fakeNotifier) NotifyBuildFailed(_ context.Context, _, stage string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, stage)
	return nil
}

func (n *fakeNotifier) TestNotification(context.Context) error { return nil }

type fakeRecorder struct {
	records []history.Record
	begun   map[string]bool
	unbegun int
}

func (r *fakeRecorder) Begin(_ context.Context, rec history.Record) error {
	if r.begun == nil {
		r.begun = map[string]bool{}
	}
	r.begun[rec.ID] = true
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRecorder) Finish(_ context.Context, rec history.Record) error {
	if !r.begun[rec.ID] {
		r.unbegun++
		return history.ErrNotFound
	}
	r.records = append(r.records, rec)
	return nil
}

type harness struct {
	cfg      *config.Config
	root     string
	dir      string
	encoder  *fakeEncoder
	prober   *fakeProber
	fetcher  *fakeFetcher
	notifier *fakeNotifier
	recorder *fakeRecorder
}

// newHarness lays out <tmp>/assets/01..NN with an image, a title and one clip
// per folder. Folders listed in noImage get no image.
func newHarness(t *testing.T, durations []float64, noImage ...string) *harness {
	t.Helper()
	dir := t.TempDir()
	specs := make([]testsupport.FolderSpec, 0, len(durations))
	probe := map[string]float64{}
	for i, d := range durations {
		name := fmt.Sprintf("%02d", i+1)
		specs = append(specs, testsupport.FolderSpec{
			Title:   fmt.Sprintf("Part %d", i+1),
			Clips:   1,
			NoImage: slices.Contains(noImage, name),
		})
		probe[name] = d
	}
	root := testsupport.WriteAssetTree(t, dir, specs...)

	return &harness{
		cfg:      testsupport.NewConfig(t, testsupport.WithWorkers(2)),
		root:     root,
		dir:      dir,
		encoder:  &fakeEncoder{},
		prober:   &fakeProber{durations: probe, hasAudio: true},
		fetcher:  &fakeFetcher{},
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
	}
}

func (h *harness) builder() *pipeline.Builder {
	return pipeline.New(h.cfg, pipeline.Dependencies{
		Encoder:          h.encoder,
		Prober:           h.prober,
		Fetcher:          h.fetcher,
		Notifier:         h.notifier,
		History:          h.recorder,
		ProgressInterval: 5 * time.Millisecond,
		NewID:            func() string { return "run-1" },
	}, nil)
}

func (h *harness) chapters(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.dir, "timestamps.txt"))
	if err != nil {
		t.Fatalf("read chapters: %v", err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	return strings.Split(strings.TrimSpace(text), "\n")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestBuildWithoutIntro(t *testing.T) {
	h := newHarness(t, []float64{10, 15, 5})
	run, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root, VideoID: "vid"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if run.State != pipeline.StateDone {
		t.Fatalf("state = %s", run.State)
	}
	want := []string{"00:00:00 Part 1", "00:00:10 Part 2", "00:00:25 Part 3"}
	if got := h.chapters(t); !slices.Equal(got, want) {
		t.Fatalf("chapters = %q, want %q", got, want)
	}
	if run.Narration() != 30 || run.Timeline.Total() != 30 {
		t.Fatalf("narration = %v total = %v", run.Narration(), run.Timeline.Total())
	}
	if n := h.encoder.called("render"); n != 3 {
		t.Fatalf("expected 3 renders, got %d", n)
	}
	if h.encoder.called("normalize_intro") != 0 || h.encoder.called("concat_copy") != 0 {
		t.Fatalf("intro stages ran without an intro: %v", h.encoder.calls)
	}
	if h.encoder.muxAudio != filepath.Join(h.dir, "concat_audio.mp3") {
		t.Fatalf("mux audio = %q", h.encoder.muxAudio)
	}
	if run.Final != filepath.Join(h.dir, "render", "render.mp4") || !exists(run.Final) {
		t.Fatalf("final output missing: %q", run.Final)
	}
	for i := range 3 {
		if exists(filepath.Join(h.dir, render.OutputName(i))) {
			t.Fatalf("segment %d not cleaned up", i)
		}
	}
	for _, kept := range []string{"audios.txt", "timestamps.txt", "concat_audio.mp3"} {
		if !exists(filepath.Join(h.dir, kept)) {
			t.Fatalf("handoff file %s removed", kept)
		}
	}
	relock := flock.New(filepath.Join(h.dir, ".narrator.lock"))
	if locked, err := relock.TryLock(); err != nil || !locked {
		t.Fatalf("workspace lock still held after build: %v", err)
	}
	_ = relock.Unlock()
	if h.notifier.completed != 1 {
		t.Fatalf("expected one completion notification")
	}
	last := h.recorder.records[len(h.recorder.records)-1]
	if last.State != history.StateCompleted || last.SegmentCount != 3 || last.VideoID != "vid" {
		t.Fatalf("unexpected history record %+v", last)
	}
}

func TestBuildWithIntro(t *testing.T) {
	h := newHarness(t, []float64{10, 15, 5})
	h.prober.durations["intro.mp4"] = 8

	run, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root, Intro: "intro.mp4"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"00:00:00 Part 1", "00:00:18 Part 2", "00:00:33 Part 3"}
	if got := h.chapters(t); !slices.Equal(got, want) {
		t.Fatalf("chapters = %q, want %q", got, want)
	}
	if !run.IntroUsed || run.Intro() != 8 || run.Timeline.Total() != 38 {
		t.Fatalf("intro = %v total = %v", run.Intro(), run.Timeline.Total())
	}
	if h.encoder.called("normalize_intro") != 1 || h.encoder.called("extract_audio") != 1 {
		t.Fatalf("unexpected calls %v", h.encoder.calls)
	}
	if h.encoder.muxAudio != filepath.Join(h.dir, "final_concat_audio.mp3") {
		t.Fatalf("mux audio = %q", h.encoder.muxAudio)
	}
	if exists(filepath.Join(h.dir, "intro.mp4")) || exists(filepath.Join(h.dir, "intro_normalized.mp4")) {
		t.Fatalf("intro intermediates not cleaned up")
	}
}

func TestBuildIntroWithoutAudioUsesSilence(t *testing.T) {
	h := newHarness(t, []float64{10})
	h.prober.durations["intro.mp4"] = 8
	h.prober.hasAudio = false

	if _, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root, Intro: "intro.mp4"}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if h.encoder.called("silence") != 1 || h.encoder.silence != 8 {
		t.Fatalf("expected 8s of silence, calls %v", h.encoder.calls)
	}
	if h.encoder.called("extract_audio") != 0 {
		t.Fatalf("extracted audio from an intro without audio")
	}
}

func TestBuildIntroFetchFailureContinues(t *testing.T) {
	h := newHarness(t, []float64{10, 15})
	h.fetcher.err = errors.New("404")

	run, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root, Intro: "missing"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if run.IntroUsed || h.encoder.called("normalize_intro") != 0 {
		t.Fatalf("intro used after failed download")
	}
}

func TestBuildIntroNormalizeFailureDropsIntro(t *testing.T) {
	h := newHarness(t, []float64{10, 15, 5})
	h.prober.durations["intro.mp4"] = 8
	h.encoder.normalizeErr = errors.New("bad intro")
	h.cfg.Output.KeepIntermediates = true

	run, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root, Intro: "intro.mp4"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if run.IntroUsed || run.Intro() != 0 {
		t.Fatalf("intro should be dropped")
	}
	want := []string{"00:00:00 Part 1", "00:00:10 Part 2", "00:00:25 Part 3"}
	if got := h.chapters(t); !slices.Equal(got, want) {
		t.Fatalf("chapters = %q, want %q", got, want)
	}
	list, err := os.ReadFile(filepath.Join(h.dir, "segments.txt"))
	if err != nil {
		t.Fatalf("read segment list: %v", err)
	}
	if strings.Contains(string(list), "intro") {
		t.Fatalf("segment list still references the intro:\n%s", list)
	}
	if h.encoder.called("extract_audio")+h.encoder.called("silence") != 0 {
		t.Fatalf("intro audio prefixed after intro was dropped")
	}
}

func TestBuildMissingImageFailsRendering(t *testing.T) {
	h := newHarness(t, []float64{10, 15, 5}, "02")

	run, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root})
	if err == nil {
		t.Fatalf("expected failure")
	}
	if stage, ok := pipeline.FailedStage(err); !ok || stage != pipeline.StateRendering {
		t.Fatalf("failed stage = %q", stage)
	}
	var renderErr *render.RenderError
	if !errors.As(err, &renderErr) || renderErr.Reason != render.MissingImage || renderErr.Index != 1 {
		t.Fatalf("expected missing image for segment 1, got %v", err)
	}
	if !errors.Is(err, pipeline.ErrIncompleteRender) {
		t.Fatalf("expected ErrIncompleteRender, got %v", err)
	}
	if run.State != pipeline.StateFailed || run.FailedStage != pipeline.StateRendering {
		t.Fatalf("run state = %s/%s", run.State, run.FailedStage)
	}
	if len(run.Segments) != 0 {
		t.Fatalf("no segments should be passed on, got %d", len(run.Segments))
	}
	if h.encoder.called("concat_video") != 0 || h.encoder.called("mux") != 0 {
		t.Fatalf("later stages ran after render failure: %v", h.encoder.calls)
	}
	// Other segments still render and stay on disk.
	if h.encoder.called("render") != 2 {
		t.Fatalf("expected the two other segments to render, calls %v", h.encoder.calls)
	}
	for _, name := range []string{"segment_00.mp4", "segment_02.mp4"} {
		if !exists(filepath.Join(h.dir, name)) {
			t.Fatalf("%s removed after failure", name)
		}
	}
	if !slices.Equal(h.notifier.failed, []string{"rendering"}) {
		t.Fatalf("failure notifications = %v", h.notifier.failed)
	}
	last := h.recorder.records[len(h.recorder.records)-1]
	if last.State != history.StateFailed || last.FailedStage != "rendering" {
		t.Fatalf("unexpected history record %+v", last)
	}
}

func TestBuildRendererFailureIsAllOrNothing(t *testing.T) {
	h := newHarness(t, []float64{10, 15, 5, 7})
	h.encoder.renderFail = map[string]error{"segment_02.mp4": errors.New("exit status 1")}

	_, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root})
	var renderErr *render.RenderError
	if !errors.As(err, &renderErr) || renderErr.Reason != render.RendererFailed {
		t.Fatalf("expected renderer failure, got %v", err)
	}
	if n := h.encoder.called("render"); n != 4 {
		t.Fatalf("all segments should run to completion, got %d", n)
	}
	if h.encoder.called("concat_video") != 0 {
		t.Fatalf("video concat ran after a failed render")
	}
}

func TestBuildAudioConcatFailureStopsBeforeRendering(t *testing.T) {
	h := newHarness(t, []float64{10, 15})
	h.encoder.audioErr = errors.New("exit status 1")

	_, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root})
	if stage, _ := pipeline.FailedStage(err); stage != pipeline.StateAudioConcat {
		t.Fatalf("failed stage = %q (%v)", stage, err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if h.encoder.called("render") != 0 {
		t.Fatalf("rendering started after audio concat failure")
	}
}

func TestBuildWithoutNarrationFails(t *testing.T) {
	h := newHarness(t, nil)
	if err := os.MkdirAll(filepath.Join(h.root, "01"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root})
	if !errors.Is(err, pipeline.ErrNoNarration) {
		t.Fatalf("expected ErrNoNarration, got %v", err)
	}
	if stage, _ := pipeline.FailedStage(err); stage != pipeline.StateAudioConcat {
		t.Fatalf("failed stage = %q", stage)
	}
	if len(h.encoder.calls) != 0 {
		t.Fatalf("ffmpeg invoked without narration: %v", h.encoder.calls)
	}
}

func TestBuildMuxFailureSkipsCleanup(t *testing.T) {
	h := newHarness(t, []float64{10, 15})
	h.encoder.muxErr = errors.New("exit status 1")

	run, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root})
	if stage, _ := pipeline.FailedStage(err); stage != pipeline.StateFinalMux {
		t.Fatalf("failed stage = %q (%v)", stage, err)
	}
	if len(run.Cleanup.Removed) != 0 {
		t.Fatalf("cleanup ran after failure: %+v", run.Cleanup)
	}
	for _, name := range []string{"segment_00.mp4", "segment_01.mp4", "segments.txt", "video_concat.mp4"} {
		if !exists(filepath.Join(h.dir, name)) {
			t.Fatalf("%s removed after failure", name)
		}
	}
}

func TestBuildVideoConcatFailure(t *testing.T) {
	h := newHarness(t, []float64{10})
	h.encoder.videoErr = errors.New("exit status 1")

	_, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root})
	if stage, _ := pipeline.FailedStage(err); stage != pipeline.StateVideoConcat {
		t.Fatalf("failed stage = %q (%v)", stage, err)
	}
	if h.encoder.called("mux") != 0 {
		t.Fatalf("mux ran after video concat failure")
	}
}

func TestBuildKeepIntermediates(t *testing.T) {
	h := newHarness(t, []float64{10, 15})
	h.cfg.Output.KeepIntermediates = true

	run, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(run.Cleanup.Removed) != 0 || !exists(filepath.Join(h.dir, "segment_00.mp4")) {
		t.Fatalf("intermediates removed despite keep_intermediates")
	}
}

func TestBuildZeroDurationFolderKeepsChapter(t *testing.T) {
	h := newHarness(t, []float64{10, 0, 5})

	run, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(run.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(run.Segments))
	}
	want := []string{"00:00:00 Part 1", "00:00:10 Part 2", "00:00:10 Part 3"}
	if got := h.chapters(t); !slices.Equal(got, want) {
		t.Fatalf("chapters = %q, want %q", got, want)
	}
}

func TestBuildKeepsLocalSourcesAlreadyInWorkspace(t *testing.T) {
	h := newHarness(t, []float64{10, 5})
	h.prober.durations["intro.mp4"] = 4
	background := filepath.Join(h.dir, "background.mp4")
	intro := filepath.Join(h.dir, "intro.mp4")
	testsupport.WriteText(t, background, "user background")
	testsupport.WriteText(t, intro, "user intro")

	b := pipeline.New(h.cfg, pipeline.Dependencies{
		Encoder:          h.encoder,
		Prober:           h.prober,
		Fetcher:          fetch.New(fetch.Config{}, nil),
		Notifier:         h.notifier,
		History:          h.recorder,
		ProgressInterval: 5 * time.Millisecond,
		NewID:            func() string { return "run-1" },
	}, nil)
	run, err := b.Build(context.Background(), pipeline.Request{Root: h.root, Background: background, Intro: intro})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if run.Assets.Background != background || run.Assets.BackgroundDownloaded {
		t.Fatalf("background = %q downloaded = %v", run.Assets.Background, run.Assets.BackgroundDownloaded)
	}
	if !run.IntroUsed || run.Assets.IntroDownloaded {
		t.Fatalf("intro used = %v downloaded = %v", run.IntroUsed, run.Assets.IntroDownloaded)
	}
	for _, path := range []string{background, intro} {
		if !exists(path) {
			t.Fatalf("cleanup removed user file %s", path)
		}
	}
	if !exists(run.Final) {
		t.Fatalf("final output missing: %q", run.Final)
	}
}

func TestBuildMissingDefaultBackground(t *testing.T) {
	h := newHarness(t, []float64{10})
	h.cfg.Assets.Background = filepath.Join(h.dir, "absent.mp4")

	_, err := h.builder().Build(context.Background(), pipeline.Request{Root: h.root})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if stage, _ := pipeline.FailedStage(err); stage != pipeline.StateResolving {
		t.Fatalf("failed stage = %q", stage)
	}
	if len(h.encoder.calls) != 0 {
		t.Fatalf("ffmpeg invoked: %v", h.encoder.calls)
	}
}

func TestBuildRejectsBusyWorkspace(t *testing.T) {
	h := newHarness(t, []float64{10})
	lock := flock.New(filepath.Join(h.dir, ".narrator.lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("take lock: %v", err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	_, err = h.builder().Build(context.Background(), pipeline.Request{Root: h.root})
	if !errors.Is(err, workspace.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if h.recorder.unbegun != 0 {
		t.Fatalf("history finished %d run(s) that were never begun", h.recorder.unbegun)
	}
	last := h.recorder.records[len(h.recorder.records)-1]
	if last.State != history.StateFailed || last.FailedStage != string(pipeline.StateResolving) {
		t.Fatalf("unexpected history record %+v", last)
	}
}

func TestBuildCancelledContext(t *testing.T) {
	h := newHarness(t, []float64{10})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := h.builder().Build(ctx, pipeline.Request{Root: h.root})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if run.State != pipeline.StateFailed {
		t.Fatalf("state = %s", run.State)
	}
}
