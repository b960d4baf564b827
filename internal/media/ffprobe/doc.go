// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Prober: duration lookups used by the asset scanner and intro handling
//
// Inspect executes ffprobe and returns the parsed Result. Prober.Probe
// surfaces failures as errors; Prober.Duration swallows them and reports 0.
package ffprobe
