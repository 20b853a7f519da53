// Package processing runs correction steps against a project.
//
// A Runner owns one provenance session for one invocation: it assembles the
// raw survey from an s7k container when raw decoding has to run, resolves
// per-kind parameters from configuration, dispatches to the correction
// library through the provenance manager, and persists the session pointer
// so the next invocation continues where this one stopped.
package processing
