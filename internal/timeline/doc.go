// Package timeline derives the narration manifest and chapter marks from the
// scanned asset folders.
//
// Offsets are plain sums: entry 0 starts at 0 and every later entry starts at
// the narration before it plus the intro duration. With no intro the intro
// term is 0, so there is no separate code path for that case.
//
// WriteManifest and WriteChapters produce the audios.txt and timestamps.txt
// handoff files consumed by ffmpeg and by whoever publishes the video.
package timeline
