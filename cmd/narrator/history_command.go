package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"narrator/internal/history"
	"narrator/internal/timeline"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				records, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No builds recorded")
					return nil
				}
				fmt.Fprintln(out, renderHistory(records))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one build in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				rec, err := store.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Run", rec.ID},
					{"Video", displayValue(rec.VideoID)},
					{"Assets", rec.AssetRoot},
					{"State", rec.State},
					{"Failed stage", displayValue(rec.FailedStage)},
					{"Error kind", displayValue(rec.ErrorKind)},
					{"Error", displayValue(rec.ErrorMessage)},
					{"Folders", strconv.Itoa(rec.FolderCount)},
					{"Segments", strconv.Itoa(rec.SegmentCount)},
					{"Narration", timeline.FormatClock(rec.NarrationSeconds)},
					{"Intro", timeline.FormatClock(rec.IntroSeconds)},
					{"Output", displayValue(rec.OutputPath)},
					{"Started", formatTimestamp(rec.StartedAt)},
					{"Finished", formatTimestamp(rec.FinishedAt)},
					{"Elapsed", formatElapsed(rec.Elapsed())},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished builds older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return withHistory(ctx, func(store *history.Store) error {
				n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d run(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff, e.g. 720h")
	return cmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	store, err := ctx.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errHistoryDisabled
	}
	defer store.Close()
	return fn(store)
}

func renderHistory(records []history.Record) string {
	headers := []string{"Started", "Video", "State", "Stage", "Segments", "Narration", "Elapsed", "Run"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			formatTimestamp(rec.StartedAt),
			displayValue(rec.VideoID),
			rec.State,
			displayValue(rec.FailedStage),
			strconv.Itoa(rec.SegmentCount),
			timeline.FormatClock(rec.NarrationSeconds),
			formatElapsed(rec.Elapsed()),
			shortID(rec.ID),
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft})
}

func displayValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
