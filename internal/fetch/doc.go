// Package fetch places the optional intro, background and border assets in
// the build workspace. Sources are URLs, local files, or bare names resolved
// against a per-class base URL; the local file is always named after the
// class with an extension inferred from the source.
package fetch
