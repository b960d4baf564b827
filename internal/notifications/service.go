package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"narrator/internal/config"
)

const userAgent = "narrator/0.1"

// BuildSummary describes a finished build for notification text.
type BuildSummary struct {
	VideoID   string
	Output    string
	Segments  int
	Narration time.Duration
	Intro     time.Duration
	Elapsed   time.Duration
}

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyBuildCompleted(ctx context.Context, summary BuildSummary) error
	NotifyBuildFailed(ctx context.Context, videoID, stage string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.Completed,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	completed bool
	errors    bool
}

func (n *ntfyService) NotifyBuildCompleted(ctx context.Context, summary BuildSummary) error {
	if !n.completed {
		return nil
	}
	label := displayLabel(summary.VideoID)
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Render complete: %s\n", label)
	fmt.Fprintf(&b, "Segments: %d, narration %s", summary.Segments, formatDuration(summary.Narration))
	if summary.Intro > 0 {
		fmt.Fprintf(&b, ", intro %s", formatDuration(summary.Intro))
	}
	if summary.Elapsed > 0 {
		fmt.Fprintf(&b, "\nBuilt in %s", formatDuration(summary.Elapsed))
	}
	if output := strings.TrimSpace(summary.Output); output != "" {
		fmt.Fprintf(&b, "\nFile: %s", output)
	}
	data := payload{
		title:    "Narrator - Render Complete",
		message:  b.String(),
		tags:     []string{"narrator", "render", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBuildFailed(ctx context.Context, videoID, stage string, err error) error {
	if !n.errors {
		return nil
	}
	var b strings.Builder
	b.WriteString("❌ Build failed")
	if label := strings.TrimSpace(videoID); label != "" {
		b.WriteString(" for ")
		b.WriteString(label)
	}
	if stage = strings.TrimSpace(stage); stage != "" {
		b.WriteString(" during ")
		b.WriteString(stage)
	}
	b.WriteString(": ")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown")
	}
	data := payload{
		title:    "Narrator - Error",
		message:  b.String(),
		tags:     []string{"narrator", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Narrator - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"narrator", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func displayLabel(videoID string) string {
	if label := strings.TrimSpace(videoID); label != "" {
		return label
	}
	return "untitled"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyBuildCompleted(context.Context, BuildSummary) error       { return nil }
func (noopService) NotifyBuildFailed(context.Context, string, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
