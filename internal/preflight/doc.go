// Package preflight provides readiness checks for the binaries, shared assets
// and filesystem paths narrator depends on.
//
// These checks run in two contexts:
//   - "narrator doctor" prints every result in a table.
//   - "narrator build" runs the asset checks before scanning so a missing
//     default background or border fails fast instead of mid-render.
package preflight
