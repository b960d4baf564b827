// Package workspace names the files of one build and guards the build
// directory with an exclusive file lock.
package workspace
