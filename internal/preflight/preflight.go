package preflight

import (
	"context"

	"narrator/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and service checks for cfg. When assetRoot is
// non-empty the asset tree is checked as well.
func RunAll(ctx context.Context, cfg *config.Config, assetRoot string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFileReadable("Default background", cfg.Assets.Background),
		CheckFileReadable("Default border", cfg.Assets.Border),
	}
	if cfg.Assets.FontFile != "" {
		results = append(results, CheckFileReadable("Title font", cfg.Assets.FontFile))
	}
	if assetRoot != "" {
		results = append(results, CheckAssetRoot(assetRoot))
	}
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
