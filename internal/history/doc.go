// Package history keeps an audit log of build runs in SQLite.
//
// Each build inserts a running record when it starts and updates it with the
// outcome (state, failed stage, error class, durations, output path) when it
// ends. The CLI lists recent runs; the pipeline itself never reads history.
package history
