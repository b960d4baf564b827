// Package render plans and renders the per-folder video segments.
//
// Plan turns scanned folders into Segments (one per duration-bearing folder,
// each with its own segment_NN.mp4 output). Renderer.Render produces one
// segment through the ffmpeg executor and reports failures as RenderError
// with a Reason so the orchestrator can tell a missing image from a renderer
// crash.
package render
