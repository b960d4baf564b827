package ffprobe

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"narrator/internal/logging"
)

// Prober reports media durations using the ffprobe binary.
type Prober struct {
	Binary string
	Logger *slog.Logger
}

// NewProber constructs a Prober for binary.
func NewProber(binary string, logger *slog.Logger) *Prober {
	return &Prober{Binary: binary, Logger: logging.NewComponentLogger(logger, "ffprobe")}
}

// Probe returns the duration of path in seconds.
func (p *Prober) Probe(ctx context.Context, path string) (float64, error) {
	result, err := Inspect(ctx, p.Binary, path)
	if err != nil {
		return 0, err
	}
	seconds := result.DurationSeconds()
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0, fmt.Errorf("ffprobe %s: invalid duration %q", path, result.Format.Duration)
	}
	return seconds, nil
}

// Duration returns the duration of path in seconds, or 0 on any failure.
// Callers treat 0 as unknown or empty.
func (p *Prober) Duration(ctx context.Context, path string) float64 {
	seconds, err := p.Probe(ctx, path)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Debug("duration probe failed", logging.String("path", path), logging.Error(err))
		}
		return 0
	}
	return seconds
}

// HasAudio reports whether path carries at least one audio stream.
func (p *Prober) HasAudio(ctx context.Context, path string) (bool, error) {
	result, err := Inspect(ctx, p.Binary, path)
	if err != nil {
		return false, err
	}
	return result.AudioStreamCount() > 0, nil
}
