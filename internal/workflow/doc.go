// Package workflow defines the data model submitted for execution: a named
// graph of tool nodes and file pass-through nodes joined by parameter-binding
// edges, plus the tool definitions those nodes carry.
//
// It also owns request decoding and the error taxonomy shared by every stage
// of a run:
//
//   - ErrMalformedRequest: unparsable payload or schema violations
//   - ErrGraphStructure: root count, cycles, disconnection, dangling edges
//   - ErrMissingMandatoryInput: a mandatory option has no value and no edge
//   - ErrSourceFileNotFound: an upstream file is missing at resolution time
//   - ErrToolExecution: a spawned tool failed to launch or exited non-zero
//
// Callers classify failures with errors.Is against these sentinels.
package workflow
