package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"narrator/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The default background and border exist on disk so asset resolution passes.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Assets.Background = filepath.Join(base, "defaults", "loop.mp4")
	cfgVal.Assets.Border = filepath.Join(base, "defaults", "border.png")
	cfgVal.Assets.IntroBaseURL = ""
	cfgVal.Assets.BackgroundBaseURL = ""
	cfgVal.Assets.BorderBaseURL = ""
	cfgVal.Notifications.NtfyTopic = ""
	WriteFile(t, cfgVal.Assets.Background, 16)
	WriteFile(t, cfgVal.Assets.Border, 16)

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkers overrides the render worker limit.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Workers = n
	}
}

// WithHistory enables the run history database under the state directory.
func WithHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = true
		b.cfg.History.Path = filepath.Join(b.baseDir, "state", "history.db")
	}
}

// ffmpegStub creates its last non-flag argument as an empty file and marks any
// -progress file as finished.
const ffmpegStub = `#!/bin/sh
prev=""
for arg in "$@"; do
  if [ "$prev" = "-progress" ]; then
    printf 'out_time_us=0\nprogress=end\n' > "$arg"
  fi
  prev="$arg"
done
case "$prev" in
  ""|-*) ;;
  *) : > "$prev" ;;
esac
exit 0
`

const ffprobeStub = `#!/bin/sh
echo '{"streams":[{"codec_type":"audio"}],"format":{"duration":"10.0"}}'
`

// WithStubbedBinaries points ffmpeg and ffprobe at stub scripts that exit
// successfully. ffprobe reports a 10 second duration for every file.
func WithStubbedBinaries() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		b.cfg.Tools.FFmpeg = writeStub(b.t, binDir, "ffmpeg", ffmpegStub)
		b.cfg.Tools.FFprobe = writeStub(b.t, binDir, "ffprobe", ffprobeStub)
	}
}

func writeStub(t testing.TB, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}
