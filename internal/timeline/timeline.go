package timeline

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"narrator/internal/assets"
	"narrator/internal/fileutil"
	"narrator/internal/textutil"
)

// Entry is one chapter mark in the final video.
type Entry struct {
	// Elapsed is the narration preceding this entry, excluding the intro.
	Elapsed float64
	Offset  float64
	Title   string
}

// Timeline is derived once from the scanned folders and the intro duration.
type Timeline struct {
	// AudioClips lists every narration clip relative to the asset root's parent.
	AudioClips []string
	Entries    []Entry
	// Narration excludes the intro.
	Narration float64
	Intro     float64
}

// Total returns the expected length of the final video.
func (t Timeline) Total() float64 {
	return t.Narration + t.Intro
}

// Build derives the concat manifest, chapter entries and narration length.
// The first entry always starts at 0; entry k starts at the summed duration
// of folders 0..k-1 plus intro. Every folder gets an entry, including folders
// without narration, so entries stay aligned with folder order.
func Build(folders []assets.Folder, intro float64) Timeline {
	if intro < 0 || math.IsNaN(intro) {
		intro = 0
	}
	tl := Timeline{
		Entries: make([]Entry, 0, len(folders)),
		Intro:   intro,
	}
	var elapsed float64
	for i, folder := range folders {
		offset := 0.0
		if i > 0 {
			offset = elapsed + intro
		}
		tl.Entries = append(tl.Entries, Entry{
			Elapsed: elapsed,
			Offset:  offset,
			Title:   textutil.SingleLine(folder.Title),
		})
		for _, clip := range folder.AudioClips {
			tl.AudioClips = append(tl.AudioClips, clip.RelPath)
		}
		elapsed += folder.Duration
	}
	tl.Narration = elapsed
	return tl
}

// WithIntro returns a copy of t whose offsets account for a different intro
// duration. The pipeline uses it when the intro is dropped mid-run.
func (t Timeline) WithIntro(intro float64) Timeline {
	if intro < 0 || math.IsNaN(intro) {
		intro = 0
	}
	out := t
	out.Intro = intro
	out.Entries = make([]Entry, len(t.Entries))
	for i, entry := range t.Entries {
		if i > 0 {
			entry.Offset = entry.Elapsed + intro
		}
		out.Entries[i] = entry
	}
	return out
}

// FormatClock renders seconds as HH:MM:SS, truncating fractional seconds.
// Hours are not wrapped at 24.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// WriteManifest writes the narration concat list, one `file '<path>'`
// directive per clip.
func WriteManifest(path string, tl Timeline) error {
	return writeLines(path, nil, func(w *bufio.Writer) error {
		for _, clip := range tl.AudioClips {
			if _, err := fmt.Fprintln(w, textutil.QuoteConcatPath(clip)); err != nil {
				return err
			}
		}
		return nil
	})
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteChapters writes one `HH:MM:SS <title>` line per entry as UTF-8 with a
// byte-order mark.
func WriteChapters(path string, tl Timeline) error {
	return writeLines(path, utf8BOM, func(w *bufio.Writer) error {
		for _, entry := range tl.Entries {
			if _, err := fmt.Fprintf(w, "%s %s\n", FormatClock(entry.Offset), entry.Title); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeLines(path string, prefix []byte, body func(*bufio.Writer) error) error {
	err := fileutil.WriteFileAtomic(path, 0o644, func(out io.Writer) error {
		w := bufio.NewWriter(out)
		if _, err := w.Write(prefix); err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		return w.Flush()
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
