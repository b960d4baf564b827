// Package main hosts the narrator CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration once per invocation,
// builds the logger, and hands work to the internal packages: build runs the
// pipeline, timeline dry-runs the scan, doctor runs preflight checks, and
// history reads the run log.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through a command or flag here.
package main
