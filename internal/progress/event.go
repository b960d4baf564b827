package progress

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// Event is one progress sample reported by ffmpeg.
type Event struct {
	Label   string
	Elapsed float64
	Total   float64
	Speed   float64
	Done    bool
}

// Percent returns completion in [0,100], or -1 when the total is unknown.
func (e Event) Percent() float64 {
	if e.Done {
		return 100
	}
	if e.Total <= 0 {
		return -1
	}
	pct := e.Elapsed / e.Total * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// ETA estimates the remaining wall time from the encode speed.
func (e Event) ETA() time.Duration {
	if e.Done || e.Total <= 0 || e.Speed <= 0 || e.Elapsed >= e.Total {
		return 0
	}
	remaining := (e.Total - e.Elapsed) / e.Speed
	return time.Duration(remaining * float64(time.Second))
}

// block accumulates key=value pairs until a progress= line closes it.
type block struct {
	elapsed float64
	speed   float64
	hasTime bool
}

// parser consumes the -progress stream incrementally. Partial trailing lines
// are kept until the next read completes them.
type parser struct {
	pending string
	current block
}

// feed parses newly appended bytes and returns the closed blocks as events.
func (p *parser) feed(data []byte) []Event {
	text := p.pending + string(data)
	last := strings.LastIndexByte(text, '\n')
	if last < 0 {
		p.pending = text
		return nil
	}
	p.pending = text[last+1:]

	var events []Event
	scanner := bufio.NewScanner(strings.NewReader(text[:last+1]))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// ffmpeg reports both keys in microseconds.
			if us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil && us >= 0 {
				p.current.elapsed = float64(us) / 1e6
				p.current.hasTime = true
			}
		case "speed":
			raw := strings.TrimSuffix(strings.TrimSpace(value), "x")
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				p.current.speed = v
			}
		case "progress":
			ev := Event{Elapsed: p.current.elapsed, Speed: p.current.speed}
			ev.Done = strings.TrimSpace(value) == "end"
			if p.current.hasTime || ev.Done {
				events = append(events, ev)
			}
			p.current = block{}
		}
	}
	return events
}

// ParseAll reads a complete progress file.
func ParseAll(r io.Reader) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var p parser
	return p.feed(data), nil
}
