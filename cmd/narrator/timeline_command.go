package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"narrator/internal/assets"
	"narrator/internal/media/ffprobe"
	"narrator/internal/timeline"
	"narrator/internal/workspace"
)

func newTimelineCommand(ctx *commandContext) *cobra.Command {
	var introSeconds float64
	var write bool

	cmd := &cobra.Command{
		Use:   "timeline <assets-dir>",
		Short: "Scan an asset directory and print its chapters without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if introSeconds < 0 {
				return fmt.Errorf("--intro-duration must not be negative")
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			ws, err := workspace.New(args[0], cfg.Output.Dir, cfg.Output.FileName)
			if err != nil {
				return err
			}

			prober := ffprobe.NewProber(cfg.FFprobeBinary(), logger)
			scanner := assets.NewScanner(prober, cfg.Assets.AudioExtensions, logger)
			folders, err := scanner.Scan(cmd.Context(), ws.Root)
			if err != nil {
				return err
			}
			tl := timeline.Build(folders, introSeconds)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTimeline(folders, tl))
			fmt.Fprintf(out, "Narration: %s  Intro: %s  Total: %s\n",
				timeline.FormatClock(tl.Narration), timeline.FormatClock(tl.Intro), timeline.FormatClock(tl.Total()))

			if !write {
				return nil
			}
			if err := timeline.WriteManifest(ws.AudioManifest(), tl); err != nil {
				return fmt.Errorf("write audio manifest: %w", err)
			}
			if err := timeline.WriteChapters(ws.Chapters(), tl); err != nil {
				return fmt.Errorf("write chapters: %w", err)
			}
			fmt.Fprintf(out, "Wrote %s and %s\n", ws.AudioManifest(), ws.Chapters())
			return nil
		},
	}

	cmd.Flags().Float64Var(&introSeconds, "intro-duration", 0, "Intro length in seconds to offset chapters by")
	cmd.Flags().BoolVar(&write, "write", false, "Write audios.txt and timestamps.txt next to the asset directory")
	return cmd
}

func renderTimeline(folders []assets.Folder, tl timeline.Timeline) string {
	headers := []string{"#", "Start", "Folder", "Title", "Clips", "Duration", "Image"}
	rows := make([][]string, 0, len(folders))
	for i, folder := range folders {
		start := ""
		if i < len(tl.Entries) {
			start = timeline.FormatClock(tl.Entries[i].Offset)
		}
		clips := strconv.Itoa(len(folder.AudioClips))
		if folder.ProbeFailures > 0 {
			clips = fmt.Sprintf("%s (%d failed)", clips, folder.ProbeFailures)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			start,
			folder.Name,
			folder.Title,
			clips,
			fmt.Sprintf("%.1fs", folder.Duration),
			yesNo(folder.HasImage()),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft})
}
