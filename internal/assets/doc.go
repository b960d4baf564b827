// Package assets scans the asset tree a narrated video is assembled from.
//
// The root holds one directory per section. Each directory carries an image
// (.jpg, .jpeg or .png, first match by that priority), an optional title.txt
// and one or more narration clips. Folders and clips are visited in byte
// order of their names; the resulting []Folder is the canonical section order
// of the final video and is never mutated after Scan returns.
//
// A clip whose duration cannot be probed counts as 0 seconds. The scanner
// logs a warning and records the failure in Folder.ProbeFailures so callers
// can surface it.
package assets
