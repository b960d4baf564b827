// Package services defines shared utilities consumed by the pipeline stages
// and their external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, video labels, stage names, and
//     segment indices for logging.
//   - Structured error markers plus the Wrap helper so stage failures carry a
//     consistent classification into logs and run history.
package services
