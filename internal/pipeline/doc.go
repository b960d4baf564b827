// Package pipeline drives a build from an asset tree to the final video.
//
// A Builder resolves the run's assets, scans the tree, writes the audio
// manifest and chapter file, concatenates narration, renders segments on a
// bounded worker pool, normalizes the optional intro, concatenates the video
// and muxes it with narration. Stages run in order on one goroutine; the
// first fatal error ends the run in StateFailed with the stage recorded in a
// StageError, and every intermediate stays on disk. Intermediates are removed
// only after a successful mux.
//
// ffmpeg, ffprobe, downloads, notifications and history are injected through
// Dependencies so tests can substitute fakes.
package pipeline
