// Package main hosts the openbst CLI entrypoint and command graph.
//
// The Cobra-based command tree inspects raw s7k containers, runs correction
// steps against a project's provenance tree, and renders that tree. It
// centralizes configuration resolution, project locking, and structured
// logging setup so subcommands can focus on presentation.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
