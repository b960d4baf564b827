package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"

	"narrator/internal/logging"
)

// Kind labels a tracked artifact in logs.
type Kind string

const (
	Segment     Kind = "segment"
	ConcatList  Kind = "concat_list"
	ConcatVideo Kind = "concat_video"
	Intro       Kind = "intro"
	IntroAudio  Kind = "intro_audio"
	Downloaded  Kind = "downloaded_asset"
	Progress    Kind = "progress"
)

// Artifact is one path registered for removal.
type Artifact struct {
	Path string
	Kind Kind
}

// Error pairs an artifact with its removal error.
type Error struct {
	Artifact Artifact
	Err      error
}

// Result contains the outcome of a sweep.
type Result struct {
	Removed    []Artifact
	Missing    []Artifact
	Errors     []Error
	BytesFreed int64
}

// Manager collects intermediate artifacts during a build and removes them
// on request. Tracking is safe from concurrent render workers.
type Manager struct {
	mu        sync.Mutex
	artifacts []Artifact
	seen      map[string]struct{}
}

// NewManager constructs an empty Manager.
func NewManager() *Manager {
	return &Manager{seen: make(map[string]struct{})}
}

// Track registers path for removal. Blank and duplicate paths are ignored.
func (m *Manager) Track(path string, kind Kind) {
	path = strings.TrimSpace(path)
	if m == nil || path == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[path]; ok {
		return
	}
	m.seen[path] = struct{}{}
	m.artifacts = append(m.artifacts, Artifact{Path: path, Kind: kind})
}

// Tracked returns a copy of the registered artifacts in registration order.
func (m *Manager) Tracked() []Artifact {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Artifact(nil), m.artifacts...)
}

// Sweep removes every tracked artifact. Each removal is independent: a
// failure is recorded and logged and the sweep continues. Artifacts that are
// already gone are reported as missing.
func (m *Manager) Sweep(ctx context.Context, logger *slog.Logger) Result {
	result := Result{}
	if m == nil {
		return result
	}
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "cleanup"))

	for _, artifact := range m.Tracked() {
		info, statErr := os.Lstat(artifact.Path)
		if errors.Is(statErr, os.ErrNotExist) {
			result.Missing = append(result.Missing, artifact)
			continue
		}
		if err := os.Remove(artifact.Path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				result.Missing = append(result.Missing, artifact)
				continue
			}
			result.Errors = append(result.Errors, Error{Artifact: artifact, Err: err})
			logging.WarnWithContext(logger, "failed to remove intermediate file", "cleanup_failed",
				logging.String("path", artifact.Path),
				logging.String("kind", string(artifact.Kind)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the build directory"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		if statErr == nil && info.Mode().IsRegular() {
			result.BytesFreed += info.Size()
		}
		result.Removed = append(result.Removed, artifact)
		logger.Debug("removed intermediate file",
			logging.String("path", artifact.Path),
			logging.String("kind", string(artifact.Kind)),
		)
	}

	m.mu.Lock()
	m.artifacts = nil
	m.seen = make(map[string]struct{})
	m.mu.Unlock()

	logger.Info("cleanup complete",
		logging.Int("removed", len(result.Removed)),
		logging.Int("missing", len(result.Missing)),
		logging.Int("failed", len(result.Errors)),
		logging.Int64("bytes_freed", result.BytesFreed),
		logging.String(logging.FieldEventType, "cleanup"),
	)
	return result
}
