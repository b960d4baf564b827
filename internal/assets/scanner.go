package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"narrator/internal/logging"
	"narrator/internal/textutil"
)

// TitleFile is the per-folder file holding the segment title.
const TitleFile = "title.txt"

// imageExtensions lists image extensions in lookup priority order.
var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// Prober reports media durations in seconds.
type Prober interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// Clip is one narration file inside an asset folder.
type Clip struct {
	Name string
	Path string
	// RelPath is relative to the parent of the asset root, e.g. "assets/01/a.mp3".
	RelPath  string
	Duration float64
}

// Folder describes one asset folder and the segment it produces.
type Folder struct {
	Name          string
	Path          string
	Title         string
	ImagePath     string
	AudioClips    []Clip
	Duration      float64
	ProbeFailures int
}

// HasImage reports whether an image was located for the folder.
func (f Folder) HasImage() bool {
	return f.ImagePath != ""
}

// ScanError reports an unusable asset root or an unreadable folder.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// Scanner walks an asset root and probes narration clips.
type Scanner struct {
	prober     Prober
	extensions []string
	logger     *slog.Logger
}

// NewScanner constructs a Scanner. Extensions are matched case-insensitively
// and default to ".mp3".
func NewScanner(prober Prober, extensions []string, logger *slog.Logger) *Scanner {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		exts = []string{".mp3"}
	}
	return &Scanner{
		prober:     prober,
		extensions: exts,
		logger:     logging.NewComponentLogger(logger, "scanner"),
	}
}

// Scan lists the immediate sub-directories of root in byte order and
// describes each one. Scanning an unchanged tree yields identical results.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Folder, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ScanError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ScanError{Path: root, Err: errors.New("not a directory")}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &ScanError{Path: root, Err: err}
	}
	// os.ReadDir sorts by file name, which is byte order.
	parentName := filepath.Base(root)

	var folders []Folder
	for _, entry := range entries {
		if !isDir(root, entry) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		folder, err := s.scanFolder(ctx, filepath.Join(root, entry.Name()), parentName)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}

	s.logger.Info("asset tree scanned",
		logging.String("root", root),
		logging.Int("folders", len(folders)),
	)
	return folders, nil
}

func (s *Scanner) scanFolder(ctx context.Context, dir, parentName string) (Folder, error) {
	name := filepath.Base(dir)
	folder := Folder{Name: name, Path: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Folder{}, &ScanError{Path: dir, Err: err}
	}

	folder.Title = readTitle(filepath.Join(dir, TitleFile))

	images := make(map[string]string, len(imageExtensions))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileName := entry.Name()
		ext := strings.ToLower(filepath.Ext(fileName))
		if slices.Contains(imageExtensions, ext) {
			if _, seen := images[ext]; !seen {
				images[ext] = filepath.Join(dir, fileName)
			}
			continue
		}
		if !slices.Contains(s.extensions, ext) {
			continue
		}
		clip := Clip{
			Name:    fileName,
			Path:    filepath.Join(dir, fileName),
			RelPath: filepath.ToSlash(filepath.Join(parentName, name, fileName)),
		}
		seconds, probeErr := s.prober.Probe(ctx, clip.Path)
		if probeErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Folder{}, ctxErr
			}
			folder.ProbeFailures++
			logging.WarnWithContext(s.logger, "narration clip probe failed", "probe_failed",
				logging.String("path", clip.Path),
				logging.Error(probeErr),
				logging.String(logging.FieldErrorHint, "check the clip with ffprobe; it may be corrupt"),
				logging.String(logging.FieldImpact, "clip counted as 0s; the segment will be shorter than its audio"),
			)
			seconds = 0
		}
		clip.Duration = seconds
		folder.AudioClips = append(folder.AudioClips, clip)
		folder.Duration += seconds
	}

	for _, ext := range imageExtensions {
		if path, ok := images[ext]; ok {
			folder.ImagePath = path
			break
		}
	}

	s.logger.Debug("asset folder scanned",
		logging.String("folder", name),
		logging.Int("clips", len(folder.AudioClips)),
		logging.Seconds("duration", folder.Duration),
		logging.Bool("has_image", folder.HasImage()),
	)
	return folder, nil
}

func isDir(root string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, entry.Name()))
	return err == nil && info.IsDir()
}

func readTitle(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return textutil.DecodeText(data)
}

// TotalDuration sums the duration of every folder.
func TotalDuration(folders []Folder) float64 {
	var total float64
	for _, f := range folders {
		total += f.Duration
	}
	return total
}
