// Package logs reads back the openbst log file for the CLI.
//
// Tail returns the last lines of the log with bounded memory, optionally
// keeping only lines that mention a given text such as a run id, and can
// follow the file as new lines are appended. Callers stop following by
// cancelling the context.
package logs
