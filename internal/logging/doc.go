// Package logging assembles the structured slog loggers used across openbst.
//
// It owns the console and JSON handlers, maps configuration onto output
// writers, and exposes context-aware helpers so processing code tags log
// lines with the run identifier, the processing kind and the provenance node
// being computed. A no-op logger is provided for tests and for wiring code
// that cannot fail.
package logging
