// Package config loads, normalizes, and validates narrator configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NARRATOR_NTFY_TOPIC. The Config type centralizes every knob the build
// pipeline and CLI need: default background and border assets, download base
// URLs, render geometry, worker pool size and audio settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
