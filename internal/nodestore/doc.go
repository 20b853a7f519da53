// Package nodestore persists the provenance tree of a processing project in
// SQLite.
//
// Each node is one applied correction step: its identity (kind and parameter
// hash), the name of its parent (or the ROOT sentinel), its parameter
// attributes and the result grids it produced. Children are kept as ordered
// edges, so the per-node children list is a query rather than a serialized
// string.
//
// A node's row is the commit signal. Commit writes the row, attributes,
// variables and parent edge in one transaction, so readers never observe a
// node with missing arrays. The project directory is guarded by an advisory
// file lock; only one process may hold a store open at a time.
package nodestore
