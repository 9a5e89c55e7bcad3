package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error checking via errors.Is().
var (
	// ErrMalformedRequest indicates an unparsable payload or missing required fields.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrGraphStructure indicates a root-count violation, cycle, disconnection,
	// duplicate node id or dangling edge.
	ErrGraphStructure = errors.New("graph structure error")

	// ErrMissingMandatoryInput indicates a mandatory option with neither a
	// literal value nor an incoming edge.
	ErrMissingMandatoryInput = errors.New("missing mandatory input")

	// ErrSourceFileNotFound indicates an upstream file missing at resolution time.
	ErrSourceFileNotFound = errors.New("source file not found")

	// ErrToolExecution indicates a tool that failed to launch or exited non-zero.
	ErrToolExecution = errors.New("tool execution failed")
)

// MalformedRequestError wraps ErrMalformedRequest.
type MalformedRequestError struct {
	Msg string
	Err error // Optional underlying decode or schema error
}

func (e *MalformedRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedRequest, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedRequest, e.Msg)
}

func (e *MalformedRequestError) Unwrap() error { return ErrMalformedRequest }

// MultipleOrMissingRootError reports that the edge-connected subgraph does not
// have exactly one node with in-degree zero.
type MultipleOrMissingRootError struct {
	Roots []string
}

func (e *MultipleOrMissingRootError) Error() string {
	return fmt.Sprintf("%s: workflow must have exactly one starting tool, found %d: [%s]",
		ErrGraphStructure, len(e.Roots), strings.Join(e.Roots, ", "))
}

func (e *MultipleOrMissingRootError) Unwrap() error { return ErrGraphStructure }

// CycleOrDisconnectedGraphError reports connected nodes that a topological
// walk from the root could not reach.
type CycleOrDisconnectedGraphError struct {
	Unreached []string
}

func (e *CycleOrDisconnectedGraphError) Error() string {
	return fmt.Sprintf("%s: workflow contains disconnected or cyclic paths: [%s]",
		ErrGraphStructure, strings.Join(e.Unreached, ", "))
}

func (e *CycleOrDisconnectedGraphError) Unwrap() error { return ErrGraphStructure }

// StructuralError covers the remaining well-formedness violations.
type StructuralError struct {
	Kind string // "duplicate_id", "dangling_edge", "self_reference"
	Msg  string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", ErrGraphStructure, e.Msg)
}

func (e *StructuralError) Unwrap() error { return ErrGraphStructure }

// MissingMandatoryInputError names the tool and option left unsatisfied.
type MissingMandatoryInputError struct {
	Tool   string
	Option string
}

func (e *MissingMandatoryInputError) Error() string {
	return fmt.Sprintf("mandatory input %q is missing for tool %q", e.Option, e.Tool)
}

func (e *MissingMandatoryInputError) Unwrap() error { return ErrMissingMandatoryInput }

// SourceFileNotFoundError names the path an edge resolved to.
type SourceFileNotFoundError struct {
	Node  string
	Param string
	Path  string
}

func (e *SourceFileNotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

func (e *SourceFileNotFoundError) Unwrap() error { return ErrSourceFileNotFound }

// ToolExecutionError describes a failed tool invocation.
type ToolExecutionError struct {
	Node     string
	Command  string
	ExitCode int
	Stderr   string
	Err      error // Launch error; nil when the process ran and exited non-zero
}

func (e *ToolExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to launch %q: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command failed (exit %d): %s", e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *ToolExecutionError) Unwrap() error { return ErrToolExecution }

// IsValidationError reports whether err was raised before any tool ran
// because the request itself is invalid. The HTTP layer maps these to 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMalformedRequest) ||
		errors.Is(err, ErrGraphStructure) ||
		errors.Is(err, ErrMissingMandatoryInput)
}
