package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"narrator/internal/logging"
)

// CommandRunner executes an external command and returns an error that
// includes the tool's diagnostic output on failure.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Executor runs ffmpeg invocations for every pipeline stage.
type Executor struct {
	binary string
	logger *slog.Logger
	run    CommandRunner
}

// NewExecutor constructs an Executor for the given ffmpeg binary.
func NewExecutor(binary string, logger *slog.Logger) *Executor {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Executor{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "ffmpeg"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (e *Executor) WithCommandRunner(r CommandRunner) {
	if e != nil && r != nil {
		e.run = r
	}
}

// Run executes ffmpeg with args. Overwrite and banner suppression flags are
// always prepended; when progressFile is set ffmpeg also writes machine
// readable progress there.
func (e *Executor) Run(ctx context.Context, operation, progressFile string, args ...string) error {
	if e == nil {
		return errors.New("ffmpeg executor not initialized")
	}
	full := make([]string, 0, len(args)+6)
	full = append(full, "-y", "-hide_banner", "-nostdin", "-loglevel", "error")
	if progressFile != "" {
		full = append(full, "-progress", progressFile)
	}
	full = append(full, args...)

	logging.WithContext(ctx, e.logger).Debug("running ffmpeg",
		logging.String("operation", operation),
		logging.String("args", strings.Join(full, " ")),
	)
	if err := e.run(ctx, e.binary, full...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("ffmpeg %s: %w", operation, err)
	}
	return nil
}

const maxDiagnosticLines = 12

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, tail(string(output), maxDiagnosticLines))
	}
	return nil
}

func tail(output string, lines int) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return "no output"
	}
	parts := strings.Split(trimmed, "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, " | ")
}
