package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"narrator/internal/assets"
	"narrator/internal/config"
	"narrator/internal/fetch"
	"narrator/internal/ffmpeg"
	"narrator/internal/history"
	"narrator/internal/logging"
	"narrator/internal/media/ffprobe"
	"narrator/internal/notifications"
	"narrator/internal/progress"
	"narrator/internal/render"
)

// Encoder is the ffmpeg surface the pipeline drives.
type Encoder interface {
	render.SegmentEncoder
	ConcatAudio(ctx context.Context, manifest, output, progressFile string, audio ffmpeg.AudioSettings) error
	NormalizeIntro(ctx context.Context, input, output string, video ffmpeg.VideoSettings) error
	ConcatVideo(ctx context.Context, list, output, progressFile string) error
	ExtractAudio(ctx context.Context, input, output string, audio ffmpeg.AudioSettings) error
	Silence(ctx context.Context, seconds float64, output string, audio ffmpeg.AudioSettings) error
	ConcatCopy(ctx context.Context, list, output string) error
	Mux(ctx context.Context, video, audio, output, codec, progressFile string) error
}

// MediaProber measures clips and inspects the intro's streams.
type MediaProber interface {
	assets.Prober
	HasAudio(ctx context.Context, path string) (bool, error)
}

// Fetcher places optional assets in the workspace.
type Fetcher interface {
	Fetch(ctx context.Context, source, dir string, class fetch.Class) (string, bool, error)
}

// Recorder stores the outcome of each run.
type Recorder interface {
	Begin(ctx context.Context, rec history.Record) error
	Finish(ctx context.Context, rec history.Record) error
}

// Dependencies are the pipeline's collaborators. Nil fields are built from
// the configuration.
type Dependencies struct {
	Encoder  Encoder
	Prober   MediaProber
	Fetcher  Fetcher
	Notifier notifications.Service
	History  Recorder
	Reporter *progress.Reporter
	// ProgressInterval is the progress file polling period.
	ProgressInterval time.Duration
	// NewID generates run identifiers.
	NewID func() string
}

// Builder runs the build pipeline for asset trees.
type Builder struct {
	cfg      *config.Config
	encoder  Encoder
	prober   MediaProber
	fetcher  Fetcher
	notifier notifications.Service
	history  Recorder
	reporter *progress.Reporter
	interval time.Duration
	newID    func() string
	logger   *slog.Logger
}

// New constructs a Builder.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Builder {
	logger = logging.NewComponentLogger(logger, "pipeline")
	b := &Builder{
		cfg:      cfg,
		encoder:  deps.Encoder,
		prober:   deps.Prober,
		fetcher:  deps.Fetcher,
		notifier: deps.Notifier,
		history:  deps.History,
		reporter: deps.Reporter,
		interval: deps.ProgressInterval,
		newID:    deps.NewID,
		logger:   logger,
	}
	if b.encoder == nil {
		b.encoder = ffmpeg.NewExecutor(cfg.FFmpegBinary(), logger)
	}
	if b.prober == nil {
		b.prober = ffprobe.NewProber(cfg.FFprobeBinary(), logger)
	}
	if b.fetcher == nil {
		b.fetcher = fetch.New(fetch.Config{
			BaseURLs: map[fetch.Class]string{
				fetch.Intro:      cfg.Assets.IntroBaseURL,
				fetch.Background: cfg.Assets.BackgroundBaseURL,
				fetch.Border:     cfg.Assets.BorderBaseURL,
			},
			Timeout: time.Duration(cfg.Assets.DownloadTimeout) * time.Second,
		}, logger)
	}
	if b.notifier == nil {
		b.notifier = notifications.NewService(cfg)
	}
	if b.newID == nil {
		b.newID = func() string { return uuid.NewString() }
	}
	return b
}

func (b *Builder) audioSettings() ffmpeg.AudioSettings {
	return ffmpeg.AudioSettings{
		Codec:      b.cfg.Audio.Codec,
		Bitrate:    b.cfg.Audio.Bitrate,
		SampleRate: b.cfg.Audio.SampleRate,
		Channels:   b.cfg.Audio.Channels,
	}
}

func (b *Builder) videoSettings() ffmpeg.VideoSettings {
	return ffmpeg.VideoSettings{
		Width:     b.cfg.Render.Width,
		Height:    b.cfg.Render.Height,
		FrameRate: b.cfg.Render.FrameRate,
		Preset:    b.cfg.Render.Preset,
	}
}

func (b *Builder) renderOptions(a Assets) render.Options {
	return render.Options{
		Background: a.Background,
		Border:     a.Border,
		FontFile:   b.cfg.Assets.FontFile,
		Width:      b.cfg.Render.Width,
		Height:     b.cfg.Render.Height,
		FrameRate:  b.cfg.Render.FrameRate,
		Preset:     b.cfg.Render.Preset,
		ImageScale: b.cfg.Render.ImageScale,
		FontSize:   b.cfg.Render.TitleFontSize,
		TitleY:     b.cfg.Render.TitleY,
	}
}
