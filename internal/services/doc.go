// Package services defines shared utilities consumed by the processing chain
// and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp the run identifier, processing kind and
//     provenance node for logging.
//   - Structured error markers plus the Wrap helper that keep failures
//     classifiable (configuration and validation problems versus transient
//     I/O) all the way up to the command exit code.
package services
