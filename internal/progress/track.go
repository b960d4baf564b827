package progress

import (
	"context"
	"time"
)

// Track runs fn while observing progressFile, then stops the observer and
// waits for the reporter to drain. Observation never changes fn's result.
func Track(ctx context.Context, r *Reporter, progressFile, label string, total float64, interval time.Duration, fn func() error) error {
	if progressFile == "" {
		return fn()
	}
	watchCtx, cancel := context.WithCancel(ctx)
	events := Watch(watchCtx, progressFile, label, total, interval)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Consume(ctx, events)
	}()

	err := fn()
	if err == nil {
		// Give the watcher one more poll to pick up the end marker.
		select {
		case <-done:
		case <-time.After(2 * pollInterval(interval)):
		}
	}
	cancel()
	<-done
	return err
}

func pollInterval(interval time.Duration) time.Duration {
	if interval <= 0 {
		return DefaultInterval
	}
	return interval
}
