package render

import (
	"fmt"
	"path/filepath"

	"narrator/internal/assets"
)

// Segment is one rendered section of the final video.
type Segment struct {
	// Index is 0-based over duration-bearing folders and keys the output name.
	Index       int
	FolderIndex int
	Folder      assets.Folder
	Duration    float64
	Output      string
}

// OutputName returns the file name used for the segment at index.
func OutputName(index int) string {
	return fmt.Sprintf("segment_%02d.mp4", index)
}

// Plan returns one Segment per folder with a positive duration, in folder
// order. Zero-duration folders still own a chapter entry but render nothing.
func Plan(folders []assets.Folder, dir string) []Segment {
	segments := make([]Segment, 0, len(folders))
	for i, folder := range folders {
		if folder.Duration <= 0 {
			continue
		}
		index := len(segments)
		segments = append(segments, Segment{
			Index:       index,
			FolderIndex: i,
			Folder:      folder,
			Duration:    folder.Duration,
			Output:      filepath.Join(dir, OutputName(index)),
		})
	}
	return segments
}

// Outputs lists the output paths of segments in index order.
func Outputs(segments []Segment) []string {
	out := make([]string, len(segments))
	for i, seg := range segments {
		out[i] = seg.Output
	}
	return out
}
