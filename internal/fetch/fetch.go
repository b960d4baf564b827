package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"narrator/internal/fileutil"
	"narrator/internal/logging"
)

const (
	userAgent      = "narrator/0.1"
	defaultTimeout = 5 * time.Minute
)

// Class identifies which kind of asset is being fetched. It selects the
// local file name, the accepted extensions and the base URL for bare names.
type Class string

const (
	Intro      Class = "intro"
	Background Class = "background"
	Border     Class = "border"
)

var (
	videoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".flv"}
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}
)

// ErrNoSource is returned when Fetch is called without a source.
var ErrNoSource = errors.New("no asset source given")

// Extensions returns the accepted extensions for the class, in match order.
func (c Class) Extensions() []string {
	if c == Border {
		return imageExtensions
	}
	return videoExtensions
}

// DefaultExtension is used when the source carries no recognised extension.
func (c Class) DefaultExtension() string {
	if c == Border {
		return ".png"
	}
	return ".mp4"
}

// FileName returns the workspace file name for a source path.
func (c Class) FileName(sourcePath string) string {
	return string(c) + c.inferExtension(sourcePath)
}

func (c Class) inferExtension(sourcePath string) string {
	lower := strings.ToLower(sourcePath)
	for _, ext := range c.Extensions() {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return c.DefaultExtension()
}

// Config configures a Fetcher.
type Config struct {
	// BaseURLs resolves bare file names per class.
	BaseURLs   map[Class]string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Fetcher resolves intro, background and border sources into local files.
type Fetcher struct {
	baseURLs map[Class]string
	http     *http.Client
	logger   *slog.Logger
}

// New constructs a Fetcher.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	bases := make(map[Class]string, len(cfg.BaseURLs))
	for class, base := range cfg.BaseURLs {
		bases[class] = strings.TrimRight(strings.TrimSpace(base), "/")
	}
	return &Fetcher{
		baseURLs: bases,
		http:     client,
		logger:   logging.NewComponentLogger(logger, "fetch"),
	}
}

// Fetch places the asset named by source into dir and returns its path.
// Source may be an http(s) URL, an existing local file, or a bare file name
// resolved against the class base URL. created is false only when a local
// source already sits at the target path and was used in place.
func (f *Fetcher) Fetch(ctx context.Context, source, dir string, class Class) (string, bool, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", false, ErrNoSource
	}
	if info, err := os.Stat(source); err == nil && info.Mode().IsRegular() && !isURL(source) {
		return f.copyLocal(source, dir, class)
	}
	rawURL := source
	if !isURL(source) {
		resolved, err := f.Resolve(source, class)
		if err != nil {
			return "", false, err
		}
		rawURL = resolved
	}
	target, err := f.download(ctx, rawURL, dir, class)
	if err != nil {
		return "", false, err
	}
	return target, true, nil
}

// Resolve joins a bare file name onto the class base URL.
func (f *Fetcher) Resolve(name string, class Class) (string, error) {
	if isURL(name) {
		return name, nil
	}
	base := f.baseURLs[class]
	if base == "" {
		return "", fmt.Errorf("no base url configured for %s assets", class)
	}
	return base + "/" + url.PathEscape(strings.TrimLeft(name, "/")), nil
}

func isURL(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (f *Fetcher) download(ctx context.Context, rawURL, dir string, class Class) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse %s url: %w", class, err)
	}
	target := filepath.Join(dir, class.FileName(path.Clean(parsed.Path)))

	logger := logging.WithContext(ctx, f.logger)
	logger.Info("downloading asset",
		logging.String("class", string(class)),
		logging.String("url", rawURL),
	)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", class, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", class, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("download %s failed (%s): %s", class, resp.Status, strings.TrimSpace(string(body)))
	}

	var written int64
	err = fileutil.WriteFileAtomic(target, 0o644, func(w io.Writer) error {
		n, err := io.Copy(w, resp.Body)
		written = n
		return err
	})
	if err != nil {
		return "", fmt.Errorf("save %s: %w", class, err)
	}
	if written == 0 {
		_ = os.Remove(target)
		return "", fmt.Errorf("download %s: empty response", class)
	}

	logger.Info("asset downloaded",
		logging.String("class", string(class)),
		logging.String("path", target),
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(start)),
	)
	return target, nil
}

func (f *Fetcher) copyLocal(source, dir string, class Class) (string, bool, error) {
	target := filepath.Join(dir, class.FileName(source))
	if sameFile(source, target) {
		f.logger.Debug("asset already in workspace",
			logging.String("class", string(class)),
			logging.String("path", target),
		)
		return target, false, nil
	}
	if err := fileutil.CopyFileVerified(source, target); err != nil {
		return "", false, fmt.Errorf("copy %s: %w", class, err)
	}
	f.logger.Debug("asset copied",
		logging.String("class", string(class)),
		logging.String("source", source),
		logging.String("path", target),
	)
	return target, true, nil
}

func sameFile(a, b string) bool {
	infoA, err := os.Stat(a)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}
