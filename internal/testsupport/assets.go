package testsupport

import (
	"fmt"
	"path/filepath"
	"testing"
)

// FolderSpec describes one asset folder written by WriteAssetTree.
type FolderSpec struct {
	Title   string
	Clips   int
	NoImage bool
}

// WriteAssetTree creates <parent>/assets/01..NN from specs and returns the
// asset root. Clips are named narration_1.mp3, narration_2.mp3 and so on.
func WriteAssetTree(t testing.TB, parent string, specs ...FolderSpec) string {
	t.Helper()

	root := filepath.Join(parent, "assets")
	for i, spec := range specs {
		dir := filepath.Join(root, fmt.Sprintf("%02d", i+1))
		if !spec.NoImage {
			WriteFile(t, filepath.Join(dir, "image.jpg"), 8)
		}
		if spec.Title != "" {
			WriteText(t, filepath.Join(dir, "title.txt"), spec.Title)
		}
		for c := 1; c <= spec.Clips; c++ {
			WriteFile(t, filepath.Join(dir, fmt.Sprintf("narration_%d.mp3", c)), 8)
		}
	}
	return root
}
