// Package preflight provides readiness checks for the filesystem paths that
// openbst depends on.
//
// These checks run in two contexts:
//   - Commands that mutate a project call RunAll before opening the node
//     store, so permission problems surface before any work starts.
//   - The CLI "config validate" command prints every result.
package preflight
