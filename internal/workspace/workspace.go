package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"narrator/internal/render"
)

const lockFileName = ".narrator.lock"

// ErrBusy is returned when another build holds the workspace lock.
var ErrBusy = errors.New("another build is using this workspace")

// Workspace names every file a build reads or writes. Intermediates live in
// the parent of the asset root, next to the handoff files.
type Workspace struct {
	Root      string
	Dir       string
	OutputDir string
	Output    string

	lock *flock.Flock
}

// New resolves the workspace for an asset root. outputDir is relative to
// the workspace directory.
func New(root, outputDir, outputName string) (*Workspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("asset root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve asset root: %w", err)
	}
	abs = filepath.Clean(abs)
	dir := filepath.Dir(abs)
	if outputDir == "" {
		outputDir = "render"
	}
	if outputName == "" {
		outputName = "render.mp4"
	}
	out := filepath.Join(dir, outputDir)
	return &Workspace{
		Root:      abs,
		Dir:       dir,
		OutputDir: out,
		Output:    filepath.Join(out, outputName),
		lock:      flock.New(filepath.Join(dir, lockFileName)),
	}, nil
}

// Lock takes the exclusive build lock without waiting.
func (w *Workspace) Lock() error {
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrBusy, w.lock.Path())
	}
	return nil
}

// Unlock releases the build lock. The lock file stays on disk so every
// build contends on the same inode.
func (w *Workspace) Unlock() error {
	if w == nil || w.lock == nil || !w.lock.Locked() {
		return nil
	}
	if err := w.lock.Unlock(); err != nil {
		return fmt.Errorf("release workspace lock: %w", err)
	}
	return nil
}

// EnsureOutputDir creates the final output directory.
func (w *Workspace) EnsureOutputDir() error {
	if err := os.MkdirAll(w.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

func (w *Workspace) path(name string) string { return filepath.Join(w.Dir, name) }

// AudioManifest is the concat list of narration clips (handoff file).
func (w *Workspace) AudioManifest() string { return w.path("audios.txt") }

// Chapters is the chapter timestamp file (handoff file).
func (w *Workspace) Chapters() string { return w.path("timestamps.txt") }

func (w *Workspace) ConcatAudio() string      { return w.path("concat_audio.mp3") }
func (w *Workspace) SegmentList() string      { return w.path("segments.txt") }
func (w *Workspace) ConcatVideo() string      { return w.path("video_concat.mp4") }
func (w *Workspace) NormalizedIntro() string  { return w.path("intro_normalized.mp4") }
func (w *Workspace) IntroAudio() string       { return w.path("intro_audio.mp3") }
func (w *Workspace) FinalAudioList() string   { return w.path("final_audio.txt") }
func (w *Workspace) FinalAudio() string       { return w.path("final_concat_audio.mp3") }
func (w *Workspace) AudioProgress() string    { return w.path("progress_audio.txt") }
func (w *Workspace) VideoProgress() string    { return w.path("progress_concat_video.txt") }
func (w *Workspace) MuxProgress() string      { return w.path("progress_final.txt") }
func (w *Workspace) Segment(index int) string { return w.path(render.OutputName(index)) }
