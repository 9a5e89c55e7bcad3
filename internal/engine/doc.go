// Package engine orchestrates a workflow run.
//
// A run moves through Validating, PreflightChecking and Executing to one of
// the terminal states Succeeded or Failed. Validation and pre-flight happen
// before any process is spawned; during execution each node is resolved,
// built and run as soon as its dependencies have succeeded. The first
// failure is fatal for the run, and outputs already written are left in
// place.
package engine
