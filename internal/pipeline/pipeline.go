package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"narrator/internal/assets"
	"narrator/internal/cleanup"
	"narrator/internal/ffmpeg"
	"narrator/internal/history"
	"narrator/internal/logging"
	"narrator/internal/notifications"
	"narrator/internal/progress"
	"narrator/internal/render"
	"narrator/internal/services"
	"narrator/internal/timeline"
	"narrator/internal/workpool"
	"narrator/internal/workspace"
)

// Build runs every stage for req.Root. The returned Run is always non-nil
// when the workspace could be resolved; on failure it carries the failed
// stage and every intermediate is left on disk.
func (b *Builder) Build(ctx context.Context, req Request) (*Run, error) {
	ws, err := workspace.New(req.Root, b.cfg.Output.Dir, b.cfg.Output.FileName)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, string(StateResolving), "workspace", req.Root, err)
	}

	run := &Run{
		ID:        b.newID(),
		VideoID:   req.VideoID,
		Workspace: ws,
		StartedAt: time.Now(),
	}
	ctx = services.WithRunID(ctx, run.ID)
	if req.VideoID != "" {
		ctx = services.WithVideoID(ctx, req.VideoID)
	}

	b.begin(ctx, run)
	if err := ws.Lock(); err != nil {
		return run, b.fail(ctx, run, StateResolving, services.Wrap(services.ErrConfiguration, string(StateResolving), "lock workspace", ws.Dir, err))
	}
	defer func() {
		if err := ws.Unlock(); err != nil {
			b.logger.Debug("workspace unlock failed", logging.Error(err))
		}
	}()

	logging.WithContext(ctx, b.logger).Info("build started",
		logging.String("root", ws.Root),
		logging.String("output", ws.Output),
	)

	artifacts := cleanup.NewManager()
	for _, path := range []string{ws.AudioProgress(), ws.VideoProgress(), ws.MuxProgress()} {
		artifacts.Track(path, cleanup.Progress)
	}

	stages := []struct {
		state State
		fn    func(context.Context, *Run, *cleanup.Manager) error
	}{
		{StateResolving, b.resolveStage(req)},
		{StateScanning, b.scan},
		{StateAudioConcat, b.concatAudio},
		{StateRendering, b.render},
		{StateIntroNormalize, b.normalizeIntro},
		{StateVideoConcat, b.concatVideo},
		{StateFinalMux, b.mux},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return run, b.fail(ctx, run, stage.state, err)
		}
		run.State = stage.state
		stageCtx := services.WithStage(ctx, string(stage.state))
		if err := stage.fn(stageCtx, run, artifacts); err != nil {
			return run, b.fail(ctx, run, stage.state, err)
		}
	}

	run.State = StateCleanup
	if b.cfg.Output.KeepIntermediates {
		logging.WithContext(ctx, b.logger).Info("keeping intermediates",
			logging.Int("artifacts", len(artifacts.Tracked())),
		)
	} else {
		run.Cleanup = artifacts.Sweep(services.WithStage(ctx, string(StateCleanup)), b.logger)
	}

	run.State = StateDone
	run.FinishedAt = time.Now()
	logging.WithContext(ctx, b.logger).Info("build completed",
		logging.String("output", run.Final),
		logging.Int("segments", len(run.Segments)),
		logging.Seconds("narration", run.Narration()),
		logging.Seconds("intro", run.Intro()),
		logging.Duration("elapsed", run.Elapsed()),
		logging.Int("removed", len(run.Cleanup.Removed)),
	)
	b.notifyCompleted(ctx, run)
	b.finish(ctx, run)
	return run, nil
}

func (b *Builder) resolveStage(req Request) func(context.Context, *Run, *cleanup.Manager) error {
	return func(ctx context.Context, run *Run, artifacts *cleanup.Manager) error {
		resolved, err := b.Resolve(ctx, run.Workspace.Dir, req)
		// Downloads that landed before a failed check still belong to the run.
		if resolved.IntroDownloaded {
			artifacts.Track(resolved.IntroFile, cleanup.Downloaded)
		}
		if resolved.BackgroundDownloaded {
			artifacts.Track(resolved.Background, cleanup.Downloaded)
		}
		if resolved.BorderDownloaded {
			artifacts.Track(resolved.Border, cleanup.Downloaded)
		}
		if err != nil {
			return err
		}
		run.Assets = resolved
		run.IntroUsed = resolved.HasIntro()
		return nil
	}
}

func (b *Builder) scan(ctx context.Context, run *Run, _ *cleanup.Manager) error {
	scanner := assets.NewScanner(b.prober, b.cfg.Assets.AudioExtensions, logging.WithContext(ctx, b.logger))
	folders, err := scanner.Scan(ctx, run.Workspace.Root)
	if err != nil {
		return err
	}
	run.Folders = folders
	run.Timeline = timeline.Build(folders, run.Assets.IntroDuration)

	if err := timeline.WriteManifest(run.Workspace.AudioManifest(), run.Timeline); err != nil {
		return fmt.Errorf("write audio manifest: %w", err)
	}
	if err := timeline.WriteChapters(run.Workspace.Chapters(), run.Timeline); err != nil {
		return fmt.Errorf("write chapters: %w", err)
	}
	logging.WithContext(ctx, b.logger).Info("timeline built",
		logging.Int("folders", len(folders)),
		logging.Int("clips", len(run.Timeline.AudioClips)),
		logging.Seconds("narration", run.Timeline.Narration),
		logging.Seconds("intro", run.Timeline.Intro),
		logging.String("chapters", run.Workspace.Chapters()),
	)
	return nil
}

func (b *Builder) concatAudio(ctx context.Context, run *Run, _ *cleanup.Manager) error {
	if len(run.Timeline.AudioClips) == 0 {
		return services.Wrap(services.ErrValidation, string(StateAudioConcat), "manifest", run.Workspace.Root, ErrNoNarration)
	}
	output := run.Workspace.ConcatAudio()
	progressFile := run.Workspace.AudioProgress()
	err := progress.Track(ctx, b.reporter, progressFile, "audio concat", run.Timeline.Narration, b.interval, func() error {
		return b.encoder.ConcatAudio(ctx, run.Workspace.AudioManifest(), output, progressFile, b.audioSettings())
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, string(StateAudioConcat), "concat narration", output, err)
	}
	run.ConcatAudio = output
	return nil
}

func (b *Builder) render(ctx context.Context, run *Run, artifacts *cleanup.Manager) error {
	segments := render.Plan(run.Folders, run.Workspace.Dir)
	for _, seg := range segments {
		artifacts.Track(seg.Output, cleanup.Segment)
	}
	logger := logging.WithContext(ctx, b.logger)
	logger.Info("rendering segments",
		logging.Int("segments", len(segments)),
		logging.Int("workers", b.cfg.Render.Workers),
	)

	renderer := render.NewRenderer(b.encoder, b.renderOptions(run.Assets), b.logger)
	results := workpool.Run(ctx, b.cfg.Render.Workers, segments, renderer.Render)
	succeeded := workpool.Succeeded(results)
	if succeeded != len(segments) {
		return fmt.Errorf("%w: %d of %d segments rendered: %w",
			ErrIncompleteRender, succeeded, len(segments), workpool.Errors(results))
	}
	run.Segments = segments
	logger.Info("segments rendered", logging.Int("segments", succeeded))
	return nil
}

func (b *Builder) normalizeIntro(ctx context.Context, run *Run, artifacts *cleanup.Manager) error {
	if !run.IntroUsed {
		return nil
	}
	output := run.Workspace.NormalizedIntro()
	artifacts.Track(output, cleanup.Intro)
	err := b.encoder.NormalizeIntro(ctx, run.Assets.Intro, output, b.videoSettings())
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	logging.WarnWithContext(logging.WithContext(ctx, b.logger), "intro normalization failed; continuing without intro", "intro_normalize_failed",
		logging.String("intro", run.Assets.Intro),
		logging.Error(fmt.Errorf("%w: %w", ErrIntroNormalize, err)),
		logging.String(logging.FieldErrorHint, "check that the intro is a decodable video"),
		logging.String(logging.FieldImpact, "video starts with the first segment; chapters shifted back"),
	)
	run.IntroUsed = false
	run.Timeline = run.Timeline.WithIntro(0)
	if err := timeline.WriteChapters(run.Workspace.Chapters(), run.Timeline); err != nil {
		return fmt.Errorf("rewrite chapters: %w", err)
	}
	return nil
}

func (b *Builder) concatVideo(ctx context.Context, run *Run, artifacts *cleanup.Manager) error {
	inputs := make([]string, 0, len(run.Segments)+1)
	if run.IntroUsed {
		inputs = append(inputs, run.Workspace.NormalizedIntro())
	}
	inputs = append(inputs, render.Outputs(run.Segments)...)

	list := run.Workspace.SegmentList()
	artifacts.Track(list, cleanup.ConcatList)
	if err := ffmpeg.WriteConcatList(list, inputs); err != nil {
		return services.Wrap(services.ErrValidation, string(StateVideoConcat), "write concat list", list, err)
	}

	output := run.Workspace.ConcatVideo()
	artifacts.Track(output, cleanup.ConcatVideo)
	progressFile := run.Workspace.VideoProgress()
	err := progress.Track(ctx, b.reporter, progressFile, "video concat", run.Timeline.Total(), b.interval, func() error {
		return b.encoder.ConcatVideo(ctx, list, output, progressFile)
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, string(StateVideoConcat), "concat segments", output, err)
	}
	run.ConcatVideo = output
	return nil
}

func (b *Builder) mux(ctx context.Context, run *Run, artifacts *cleanup.Manager) error {
	audio := run.ConcatAudio
	if run.IntroUsed {
		prefixed, err := b.prefixIntroAudio(ctx, run, artifacts)
		if err != nil {
			return err
		}
		audio = prefixed
	}
	run.FinalAudio = audio

	if err := run.Workspace.EnsureOutputDir(); err != nil {
		return services.Wrap(services.ErrConfiguration, string(StateFinalMux), "create output dir", run.Workspace.OutputDir, err)
	}
	output := run.Workspace.Output
	progressFile := run.Workspace.MuxProgress()
	err := progress.Track(ctx, b.reporter, progressFile, "final mux", run.Timeline.Total(), b.interval, func() error {
		return b.encoder.Mux(ctx, run.ConcatVideo, audio, output, b.cfg.Audio.FinalCodec, progressFile)
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, string(StateFinalMux), "mux", output, err)
	}
	run.Final = output
	return nil
}

// prefixIntroAudio writes the intro's audio (or silence of the same length)
// followed by the narration.
func (b *Builder) prefixIntroAudio(ctx context.Context, run *Run, artifacts *cleanup.Manager) (string, error) {
	ws := run.Workspace
	introAudio := ws.IntroAudio()
	artifacts.Track(introAudio, cleanup.IntroAudio)

	hasAudio, err := b.prober.HasAudio(ctx, run.Assets.Intro)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, b.logger), "intro stream probe failed; using silence", "intro_audio_probe_failed",
			logging.String("intro", run.Assets.Intro),
			logging.Error(err),
			logging.String(logging.FieldImpact, "intro plays without sound"),
		)
	}
	if hasAudio {
		err = b.encoder.ExtractAudio(ctx, run.Assets.Intro, introAudio, b.audioSettings())
	} else {
		err = b.encoder.Silence(ctx, run.Assets.IntroDuration, introAudio, b.audioSettings())
	}
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, string(StateFinalMux), "intro audio", introAudio, err)
	}

	list := ws.FinalAudioList()
	artifacts.Track(list, cleanup.ConcatList)
	if err := ffmpeg.WriteConcatList(list, []string{introAudio, run.ConcatAudio}); err != nil {
		return "", services.Wrap(services.ErrValidation, string(StateFinalMux), "write audio list", list, err)
	}
	output := ws.FinalAudio()
	artifacts.Track(output, cleanup.IntroAudio)
	if err := b.encoder.ConcatCopy(ctx, list, output); err != nil {
		return "", services.Wrap(services.ErrExternalTool, string(StateFinalMux), "prefix narration", output, err)
	}
	return output, nil
}

// fail records the terminal failure. Intermediates are never swept here.
func (b *Builder) fail(ctx context.Context, run *Run, stage State, err error) error {
	stageErr := &StageError{Stage: stage, Err: err}
	run.State = StateFailed
	run.FailedStage = stage
	run.Err = stageErr
	run.FinishedAt = time.Now()

	logger := logging.WithContext(services.WithStage(ctx, string(stage)), b.logger)
	hint := "see the log for the failing command"
	var renderErr *render.RenderError
	switch {
	case errors.Is(err, context.Canceled):
		hint = "build was interrupted; rerun to start over"
	case errors.As(err, &renderErr), errors.Is(err, ErrIncompleteRender):
		hint = "fix the failing folders and rerun; rendered segments are kept"
	case errors.Is(err, services.ErrConfiguration):
		hint = "check the configured asset paths and that no other build is running"
	case errors.Is(err, ErrNoNarration):
		hint = "add narration clips to the asset folders"
	}
	logging.ErrorWithContext(logger, "build failed", "build_failed",
		logging.String("failed_stage", string(stage)),
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "no output written; intermediates left in place"),
	)
	b.notifyFailed(ctx, run)
	b.finish(ctx, run)
	return stageErr
}

func (b *Builder) notifyCompleted(ctx context.Context, run *Run) {
	if b.notifier == nil {
		return
	}
	summary := notifications.BuildSummary{
		VideoID:   run.VideoID,
		Output:    run.Final,
		Segments:  len(run.Segments),
		Narration: secondsDuration(run.Narration()),
		Intro:     secondsDuration(run.Intro()),
		Elapsed:   run.Elapsed(),
	}
	if err := b.notifier.NotifyBuildCompleted(context.WithoutCancel(ctx), summary); err != nil {
		logging.WithContext(ctx, b.logger).Warn("completion notification failed", logging.Error(err))
	}
}

func (b *Builder) notifyFailed(ctx context.Context, run *Run) {
	if b.notifier == nil {
		return
	}
	if err := b.notifier.NotifyBuildFailed(context.WithoutCancel(ctx), run.VideoID, string(run.FailedStage), run.Err); err != nil {
		logging.WithContext(ctx, b.logger).Warn("failure notification failed", logging.Error(err))
	}
}

func (b *Builder) begin(ctx context.Context, run *Run) {
	if b.history == nil {
		return
	}
	if err := b.history.Begin(ctx, b.record(run)); err != nil {
		logging.WithContext(ctx, b.logger).Debug("history begin failed", logging.Error(err))
	}
}

func (b *Builder) finish(ctx context.Context, run *Run) {
	if b.history == nil {
		return
	}
	if err := b.history.Finish(context.WithoutCancel(ctx), b.record(run)); err != nil {
		logging.WithContext(ctx, b.logger).Debug("history finish failed", logging.Error(err))
	}
}

func (b *Builder) record(run *Run) history.Record {
	rec := history.Record{
		ID:               run.ID,
		VideoID:          run.VideoID,
		AssetRoot:        run.Workspace.Root,
		State:            history.StateRunning,
		FolderCount:      len(run.Folders),
		SegmentCount:     len(run.Segments),
		NarrationSeconds: run.Narration(),
		IntroSeconds:     run.Intro(),
		OutputPath:       run.Final,
		StartedAt:        run.StartedAt,
		FinishedAt:       run.FinishedAt,
	}
	switch run.State {
	case StateDone:
		rec.State = history.StateCompleted
	case StateFailed:
		rec.State = history.StateFailed
		rec.FailedStage = string(run.FailedStage)
		rec.ErrorKind = services.Kind(run.Err)
		if run.Err != nil {
			rec.ErrorMessage = run.Err.Error()
		}
	}
	return rec
}

func secondsDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
