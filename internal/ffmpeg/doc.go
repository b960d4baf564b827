// Package ffmpeg wraps the ffmpeg invocations used by the build pipeline.
//
// Every call goes through Executor.Run, which prepends the shared flags and,
// when asked, a -progress sink. Command execution is injectable through
// WithCommandRunner so stage logic can be tested without ffmpeg installed.
//
// Operations:
//   - ConcatAudio: narration manifest to one re-encoded track
//   - RenderSegment: background loop, image, border and title composite
//   - NormalizeIntro: intro re-encoded to the segment frame format
//   - ConcatVideo / ConcatCopy: concat demuxer joins by stream copy
//   - ExtractAudio / Silence: intro audio prefix for the final mux
//   - Mux: final video with narration audio
package ffmpeg
