package ffmpeg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"narrator/internal/fileutil"
	"narrator/internal/textutil"
)

// WriteConcatList writes a concat demuxer list. Entries inside the list's
// directory are written by base name, everything else by absolute path.
func WriteConcatList(path string, files []string) error {
	if len(files) == 0 {
		return errors.New("concat list is empty")
	}
	dir := filepath.Dir(path)
	err := fileutil.WriteFileAtomic(path, 0o644, func(out io.Writer) error {
		w := bufio.NewWriter(out)
		for _, file := range files {
			entry := file
			if filepath.Dir(file) == dir {
				entry = filepath.Base(file)
			} else if abs, err := filepath.Abs(file); err == nil {
				entry = abs
			}
			if _, err := fmt.Fprintln(w, textutil.QuoteConcatPath(entry)); err != nil {
				return err
			}
		}
		return w.Flush()
	})
	if err != nil {
		return fmt.Errorf("write concat list %s: %w", path, err)
	}
	return nil
}
