package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"narrator/internal/ffmpeg"
	"narrator/internal/logging"
	"narrator/internal/services"
)

// Reason classifies a segment render failure.
type Reason string

const (
	MissingImage   Reason = "missing_image"
	RendererFailed Reason = "renderer_failed"
)

// RenderError reports a failed segment render.
type RenderError struct {
	Index  int
	Folder string
	Reason Reason
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("segment %d (%s): %s", e.Index, e.Folder, e.Reason)
	}
	return fmt.Sprintf("segment %d (%s): %s: %v", e.Index, e.Folder, e.Reason, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ErrMissingImage marks folders without a usable image.
var ErrMissingImage = errors.New("no image found")

// SegmentEncoder is the ffmpeg surface used to render one segment.
type SegmentEncoder interface {
	RenderSegment(ctx context.Context, req ffmpeg.SegmentRequest) error
}

// Options holds the shared layout for every segment.
type Options struct {
	Background string
	Border     string
	FontFile   string
	Width      int
	Height     int
	FrameRate  int
	Preset     string
	ImageScale float64
	FontSize   int
	TitleY     int
}

// Renderer renders individual segments. It is safe for concurrent use as
// long as every call targets a distinct segment.
type Renderer struct {
	encoder SegmentEncoder
	opts    Options
	logger  *slog.Logger
}

// NewRenderer constructs a Renderer.
func NewRenderer(encoder SegmentEncoder, opts Options, logger *slog.Logger) *Renderer {
	return &Renderer{
		encoder: encoder,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "render"),
	}
}

// Render writes seg.Output and returns its path.
func (r *Renderer) Render(ctx context.Context, seg Segment) (string, error) {
	ctx = services.WithSegment(ctx, seg.Index)
	logger := logging.WithContext(ctx, r.logger)

	if !seg.Folder.HasImage() {
		err := &RenderError{Index: seg.Index, Folder: seg.Folder.Name, Reason: MissingImage, Err: ErrMissingImage}
		logging.ErrorWithContext(logger, "segment image missing", "segment_missing_image",
			logging.String("folder", seg.Folder.Path),
			logging.String(logging.FieldErrorHint, "add a .jpg, .jpeg or .png to the folder"),
		)
		return "", err
	}

	start := time.Now()
	req := ffmpeg.SegmentRequest{
		Background: r.opts.Background,
		Image:      seg.Folder.ImagePath,
		Border:     r.opts.Border,
		Duration:   seg.Duration,
		Output:     seg.Output,
		Graph: ffmpeg.GraphOptions{
			Width:      r.opts.Width,
			Height:     r.opts.Height,
			ImageScale: r.opts.ImageScale,
			Title:      seg.Folder.Title,
			FontSize:   r.opts.FontSize,
			TitleY:     r.opts.TitleY,
			FontFile:   r.opts.FontFile,
		},
		Video: ffmpeg.VideoSettings{
			Width:     r.opts.Width,
			Height:    r.opts.Height,
			FrameRate: r.opts.FrameRate,
			Preset:    r.opts.Preset,
		},
	}
	if err := r.encoder.RenderSegment(ctx, req); err != nil {
		logging.ErrorWithContext(logger, "segment render failed", "segment_render_failed",
			logging.String("folder", seg.Folder.Name),
			logging.Error(err),
		)
		return "", &RenderError{Index: seg.Index, Folder: seg.Folder.Name, Reason: RendererFailed, Err: err}
	}

	logger.Info("segment rendered",
		logging.String("folder", seg.Folder.Name),
		logging.Seconds("duration", seg.Duration),
		logging.Duration("elapsed", time.Since(start)),
		logging.String("output", seg.Output),
	)
	return seg.Output, nil
}
