// Package resultstore holds the per-run results table: the value each node
// resolved or generated for each of its options, keyed by (node ID, option
// label), together with each node's execution status.
//
// # Concurrency Model
//
// Independent branches of a workflow run on separate workers, and a worker
// reads upstream values while another records its own. The store uses
// sync.Map because keys are written once and read many times by different
// goroutines.
//
// # Write-once values
//
// A value, once recorded, is stable for the remainder of the run. Recording
// the same value again is a no-op; recording a different one is refused
// with ErrConflict.
package resultstore
