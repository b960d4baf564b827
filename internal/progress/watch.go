package progress

import (
	"context"
	"os"
	"time"
)

// DefaultInterval is the polling period used when Watch receives zero.
const DefaultInterval = 500 * time.Millisecond

const eventBuffer = 16

// Watch polls the append-only progress file at path and publishes monotonic
// events until ctx is cancelled or ffmpeg reports the end marker. The file
// may not exist yet when Watch starts. Events are dropped rather than
// blocking when the consumer falls behind; the returned channel is closed
// when watching stops.
func Watch(ctx context.Context, path, label string, total float64, interval time.Duration) <-chan Event {
	if interval <= 0 {
		interval = DefaultInterval
	}
	out := make(chan Event, eventBuffer)
	go func() {
		defer close(out)
		w := watcher{path: path, label: label, total: total, out: out}
		defer w.close()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if w.poll() {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

type watcher struct {
	path  string
	label string
	total float64
	out   chan Event

	file    *os.File
	parser  parser
	last    float64
	started bool
}

// poll reads newly appended bytes; it reports true once the end marker has
// been published.
func (w *watcher) poll() bool {
	if w.file == nil {
		f, err := os.Open(w.path)
		if err != nil {
			return false
		}
		w.file = f
	}
	buf := make([]byte, 32*1024)
	for {
		n, err := w.file.Read(buf)
		if n > 0 {
			for _, ev := range w.parser.feed(buf[:n]) {
				if w.publish(ev) {
					return true
				}
			}
		}
		if err != nil {
			// io.EOF means ffmpeg has not appended more yet.
			return false
		}
	}
}

func (w *watcher) publish(ev Event) bool {
	if !ev.Done && w.started && ev.Elapsed <= w.last {
		return false
	}
	if ev.Elapsed > w.last {
		w.last = ev.Elapsed
	}
	ev.Elapsed = w.last
	w.started = true
	ev.Label = w.label
	ev.Total = w.total
	if ev.Done {
		// The end marker must reach the consumer even if the buffer is full.
		select {
		case w.out <- ev:
		default:
			select {
			case <-w.out:
			default:
			}
			select {
			case w.out <- ev:
			default:
			}
		}
		return true
	}
	select {
	case w.out <- ev:
	default:
	}
	return false
}

func (w *watcher) close() {
	if w.file != nil {
		_ = w.file.Close()
	}
}
