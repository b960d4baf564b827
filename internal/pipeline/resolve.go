package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"narrator/internal/fetch"
	"narrator/internal/logging"
	"narrator/internal/services"
)

// Request names the inputs of one build.
type Request struct {
	// Root is the asset directory holding one folder per segment.
	Root    string
	VideoID string
	// Intro, Background and Border are optional sources: a URL, a local file,
	// or a bare name resolved against the configured base URL.
	Intro      string
	Background string
	Border     string
}

// Assets is the run configuration resolved once before scanning. It is never
// modified after Resolve returns.
type Assets struct {
	Background           string
	BackgroundDownloaded bool
	Border               string
	BorderDownloaded     bool
	Intro                string
	IntroDuration        float64
	// IntroFile is the fetched intro in the workspace, set even when the
	// intro was dropped. IntroDownloaded is true only when this run created
	// it, so a user file already in place is never cleaned up.
	IntroFile       string
	IntroDownloaded bool
}

// HasIntro reports whether an intro was resolved.
func (a Assets) HasIntro() bool { return a.Intro != "" }

// Resolve fetches the optional assets into dir. Fetch failures fall back to
// the configured defaults (or no intro); a missing default is fatal.
func (b *Builder) Resolve(ctx context.Context, dir string, req Request) (Assets, error) {
	logger := logging.WithContext(ctx, b.logger)
	resolved := Assets{
		Background: b.cfg.Assets.Background,
		Border:     b.cfg.Assets.Border,
	}

	if source := strings.TrimSpace(req.Background); source != "" {
		if path, created, err := b.fetcher.Fetch(ctx, source, dir, fetch.Background); err != nil {
			logging.WarnWithContext(logger, "background download failed; using default", "asset_fetch_failed",
				logging.String("class", string(fetch.Background)),
				logging.String("source", source),
				logging.String("default", resolved.Background),
				logging.Error(err),
				logging.String(logging.FieldImpact, "video uses the default background"),
			)
		} else {
			resolved.Background = path
			resolved.BackgroundDownloaded = created
		}
	}

	if source := strings.TrimSpace(req.Border); source != "" {
		if path, created, err := b.fetcher.Fetch(ctx, source, dir, fetch.Border); err != nil {
			logging.WarnWithContext(logger, "border download failed; using default", "asset_fetch_failed",
				logging.String("class", string(fetch.Border)),
				logging.String("source", source),
				logging.String("default", resolved.Border),
				logging.Error(err),
				logging.String(logging.FieldImpact, "video uses the default border"),
			)
		} else {
			resolved.Border = path
			resolved.BorderDownloaded = created
		}
	}

	for _, check := range []struct{ name, path string }{
		{"background", resolved.Background},
		{"border", resolved.Border},
	} {
		info, err := os.Stat(check.path)
		if err == nil && info.IsDir() {
			err = fmt.Errorf("%s is a directory", check.path)
		}
		if err != nil {
			return resolved, services.Wrap(services.ErrConfiguration, string(StateResolving), "verify "+check.name, check.path, err)
		}
	}

	if source := strings.TrimSpace(req.Intro); source != "" {
		resolved.IntroFile, resolved.IntroDownloaded, resolved.Intro, resolved.IntroDuration = b.resolveIntro(ctx, source, dir)
	}

	logger.Info("assets resolved",
		logging.String("background", resolved.Background),
		logging.Bool("background_downloaded", resolved.BackgroundDownloaded),
		logging.String("border", resolved.Border),
		logging.Bool("border_downloaded", resolved.BorderDownloaded),
		logging.String("intro", resolved.Intro),
		logging.Seconds("intro_duration", resolved.IntroDuration),
	)
	return resolved, nil
}

func (b *Builder) resolveIntro(ctx context.Context, source, dir string) (file string, created bool, intro string, duration float64) {
	logger := logging.WithContext(ctx, b.logger)
	path, created, err := b.fetcher.Fetch(ctx, source, dir, fetch.Intro)
	if err != nil {
		logging.WarnWithContext(logger, "intro download failed; continuing without intro", "intro_fetch_failed",
			logging.String("source", source),
			logging.Error(err),
			logging.String(logging.FieldImpact, "video starts with the first segment"),
		)
		return "", false, "", 0
	}
	duration, err = b.prober.Probe(ctx, path)
	if err != nil || duration <= 0 {
		attrs := []logging.Attr{
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "check that the intro is a playable video"),
			logging.String(logging.FieldImpact, "video starts with the first segment"),
		}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		logging.WarnWithContext(logger, "intro duration unknown; continuing without intro", "intro_probe_failed", attrs...)
		return path, created, "", 0
	}
	return path, created, path, duration
}
