package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"narrator/internal/logging"
	"narrator/internal/pipeline"
	"narrator/internal/progress"
	"narrator/internal/timeline"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var intro, background, border string
	var workers int
	var keep bool

	cmd := &cobra.Command{
		Use:   "build <assets-dir> [video-id]",
		Short: "Render the narrated video for an asset directory",
		Long: "Scan the asset folders, concatenate narration, render one segment per folder,\n" +
			"prepend the optional intro and mux everything into <parent>/render/render.mp4.\n" +
			"Intro, background and border accept a URL, a local file or a bare file name\n" +
			"resolved against the configured base URL.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCfg := *cfg
			if cmd.Flags().Changed("workers") {
				if workers < 1 {
					return fmt.Errorf("--workers must be at least 1, got %d", workers)
				}
				runCfg.Render.Workers = workers
			}
			if keep {
				runCfg.Output.KeepIntermediates = true
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			deps := pipeline.Dependencies{
				Reporter: progress.NewReporter(cmd.ErrOrStderr(), logger),
			}
			store, err := ctx.openHistory()
			if err != nil {
				logging.WarnWithContext(logger, "run history unavailable", "history_unavailable",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check history.path in config.toml"),
					logging.String(logging.FieldImpact, "this run is not recorded"),
				)
			}
			if store != nil {
				defer store.Close()
				deps.History = store
			}

			req := pipeline.Request{
				Root:       args[0],
				Intro:      intro,
				Background: background,
				Border:     border,
			}
			if len(args) > 1 {
				req.VideoID = strings.TrimSpace(args[1])
			}

			run, err := pipeline.New(&runCfg, deps, logger).Build(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderBuildSummary(run))
			return nil
		},
	}

	cmd.Flags().StringVar(&intro, "intro", "", "Intro clip (URL, file, or name under assets.intro_base_url)")
	cmd.Flags().StringVar(&background, "background", "", "Background loop override (URL, file, or name)")
	cmd.Flags().StringVar(&border, "border", "", "Border image override (URL, file, or name)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel segment renders (default from render.workers)")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep intermediate files after a successful build")
	return cmd
}

func renderBuildSummary(run *pipeline.Run) string {
	rows := [][]string{
		{"Output", run.Final},
		{"Segments", fmt.Sprintf("%d of %d folders", len(run.Segments), len(run.Folders))},
		{"Narration", timeline.FormatClock(run.Narration())},
		{"Intro", introLabel(run)},
		{"Chapters", run.Workspace.Chapters()},
		{"Elapsed", run.Elapsed().Round(time.Second).String()},
	}
	if removed := len(run.Cleanup.Removed); removed > 0 {
		rows = append(rows, []string{"Cleaned up", fmt.Sprintf("%d files (%s)", removed, formatBytes(run.Cleanup.BytesFreed))})
	} else {
		rows = append(rows, []string{"Intermediates", "kept"})
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Render complete: %s\n", run.Final)
	b.WriteString(renderTable([]string{"Field", "Value"}, rows, nil))
	b.WriteString("\n")
	return b.String()
}

func introLabel(run *pipeline.Run) string {
	switch {
	case run.IntroUsed:
		return timeline.FormatClock(run.Intro())
	case run.Assets.IntroFile != "":
		return "dropped"
	default:
		return "none"
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
