package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"narrator/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [assets-dir]",
		Short: "Check binaries, default assets and configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var assetRoot string
			if len(args) == 1 {
				assetRoot = args[0]
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := renderSectionHeader("Configuration", colorize)
			configPath := ctx.configPath
			if configPath == "" {
				configPath = "(defaults)"
			}
			lines = append(lines, renderStatusLine("Config", statusInfo, configPath, colorize))
			lines = append(lines, renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d", cfg.Render.Workers), colorize))
			lines = append(lines, renderStatusLine("History", statusInfo, yesNo(cfg.History.Enabled), colorize))
			lines = append(lines, renderStatusLine("Notifications", statusInfo, yesNo(cfg.Notifications.NtfyTopic != ""), colorize))

			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			lines = append(lines, dependencyLines(statuses, colorize)...)

			results := preflight.RunAll(cmd.Context(), cfg, assetRoot)
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			lines = append(lines, preflightLines(results, colorize)...)

			fmt.Fprintln(out, strings.Join(lines, "\n"))

			var problems []string
			for _, s := range statuses {
				if !s.Available && !s.Optional {
					problems = append(problems, s.Name)
				}
			}
			for _, r := range preflight.Failed(results) {
				problems = append(problems, r.Name)
			}
			if len(problems) > 0 {
				return fmt.Errorf("doctor found %d problem(s): %s", len(problems), strings.Join(problems, ", "))
			}
			return nil
		},
	}
}
