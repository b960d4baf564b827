// Package progress observes ffmpeg's -progress output.
//
// Watch polls the append-only progress file and publishes monotonic Events on
// a buffered channel without ever blocking the ffmpeg process. Reporter turns
// events into a terminal status line or sampled log records, and Track wires
// both around a single long-running operation. Observers only read; they
// never influence whether the observed operation succeeds.
package progress
