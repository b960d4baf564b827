// Package textutil provides the text handling shared by the scanner, the
// timeline writers and the renderer.
//
// The primary use cases are:
//   - Decoding title files that may be UTF-8 or a legacy single-byte encoding
//   - Flattening titles to one line for chapter files
//   - Quoting values for the drawtext filter and the concat demuxer
//   - Reducing labels to filesystem-safe tokens
package textutil
