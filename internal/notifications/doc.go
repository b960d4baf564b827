// Package notifications delivers build outcomes via ntfy.
//
// The topic URL comes from config.toml (or NARRATOR_NTFY_TOPIC) and the
// service degrades to a no-op when it is unset. Completed and failed builds
// can be toggled independently; the pipeline depends only on the Service
// interface.
package notifications
