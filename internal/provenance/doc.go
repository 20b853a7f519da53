// Package provenance decides, for each requested correction step, whether it
// must be computed and where its result belongs in the project's processing
// tree.
//
// A Manager is a session over a node store. It tracks the node new work
// attaches under (the parent) and that node's step depth. CheckForProcess
// classifies a request against the persisted tree; StartProcess follows
// short-circuit classifications by moving the parent pointer, and gates
// computing ones on their required predecessor; FinalizeProcess commits the
// computed node and advances the session. Run chains the three.
//
// A Manager is not safe for concurrent use. Projects processed concurrently
// each need their own Manager and store.
package provenance
