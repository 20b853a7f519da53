// Package s7k decodes and indexes Reson 7k (.s7k) raw sonar files.
//
// A file is a sequence of Data Record Frames: a 64-byte little-endian header
// carrying a sync pattern, the frame size, a 7KTIME timestamp and the record
// type, followed by the record body and a 32-bit checksum. Scan walks a file
// exactly once and builds an Index of every frame's body offset, timestamp
// and size, realigning byte-by-byte when a header fails the sync check. File
// wraps an on-disk container with a lazily built index and random access to
// decoded records.
//
// Decode turns a record body into one of the typed records in records.go and
// never returns a partially populated record. Encode and WriteFrame produce
// the same layouts and exist so tests and tooling can synthesize files.
//
// Angles are returned in radians exactly as transmitted.
package s7k
