// Package cleanup removes a build's intermediate files after the final mux
// succeeds. The orchestrator tracks artifacts as it creates them and calls
// Sweep once; nothing else deletes build files.
package cleanup
