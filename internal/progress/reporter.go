package progress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"narrator/internal/logging"
)

// Reporter renders progress events either as a rewritten terminal status
// line or as sampled log records.
type Reporter struct {
	out     io.Writer
	tty     bool
	logger  *slog.Logger
	sampler *logging.ProgressSampler
	mu      sync.Mutex
}

// NewReporter writes a status line to out when it is a terminal and falls
// back to logger otherwise.
func NewReporter(out io.Writer, logger *slog.Logger) *Reporter {
	return &Reporter{
		out:     out,
		tty:     isTerminal(out),
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(10),
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Consume drains events until the channel closes.
func (r *Reporter) Consume(ctx context.Context, events <-chan Event) {
	if r == nil {
		for range events {
		}
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sampler.Reset()

	printed := false
	for ev := range events {
		if r.tty && r.out != nil {
			fmt.Fprintf(r.out, "\r\x1b[2K%s", Summary(ev))
			printed = true
			continue
		}
		if r.sampler.ShouldLog(ev.Percent(), ev.Label) {
			logging.WithContext(ctx, r.logger).Info("progress",
				logging.String("operation", ev.Label),
				logging.Float64("percent", roundPercent(ev.Percent())),
				logging.Seconds("elapsed", ev.Elapsed),
				logging.Seconds("total", ev.Total),
			)
		}
	}
	if printed {
		fmt.Fprintln(r.out)
	}
}

func roundPercent(p float64) float64 {
	if p < 0 {
		return p
	}
	return float64(int(p*10)) / 10
}

// Summary renders an event as "Label 42.0% (ETA 1m5s, @ 3.2x)".
func Summary(ev Event) string {
	label := formatLabel(ev.Label)
	pct := ev.Percent()
	if pct < 0 {
		return fmt.Sprintf("%s %s", label, formatETA(time.Duration(ev.Elapsed*float64(time.Second))))
	}
	base := fmt.Sprintf("%s %.1f%%", label, pct)
	extras := make([]string, 0, 2)
	if eta := formatETA(ev.ETA()); eta != "" {
		extras = append(extras, "ETA "+eta)
	}
	if ev.Speed > 0 && !ev.Done {
		extras = append(extras, fmt.Sprintf("@ %.1fx", ev.Speed))
	}
	if len(extras) == 0 {
		return base
	}
	return fmt.Sprintf("%s (%s)", base, strings.Join(extras, ", "))
}

func formatLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "Progress"
	}
	parts := strings.FieldsFunc(label, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func formatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	d = d.Round(time.Second)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || (hours == 0 && minutes == 0) {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, "")
}

func capitalizeASCII(value string) string {
	if value == "" {
		return ""
	}
	lower := strings.ToLower(value)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
