package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	// FileLabel is the sentinel label of a pass-through node that refers to
	// an existing artifact rather than a tool invocation.
	FileLabel = "file"
	// FilenameParam is the parameter a file node stores its filename under.
	FilenameParam = "filename"
	// DefaultWorkflowName is used when a request leaves workflow_name empty.
	DefaultWorkflowName = "unnamed_workflow"
)

// OptionType is the declared value type of a tool option.
type OptionType string

const (
	TypeText   OptionType = "text"
	TypeNumber OptionType = "number"
	TypeFile   OptionType = "file"
)

// Valid reports whether t is a known option type. The empty type is
// treated as text.
func (t OptionType) Valid() bool {
	switch t {
	case "", TypeText, TypeNumber, TypeFile:
		return true
	}
	return false
}

// Role is an explicit classification of an option. When empty, the output
// heuristic in Option.IsOutput decides.
type Role string

const (
	RoleUnset  Role = ""
	RoleInput  Role = "input"
	RoleOutput Role = "output"
	RoleFlag   Role = "flag"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUnset, RoleInput, RoleOutput, RoleFlag:
		return true
	}
	return false
}

// Option is a single typed, optionally flag-bearing argument of a tool.
type Option struct {
	Label     string     `json:"label" yaml:"label"`
	Flag      string     `json:"flag,omitempty" yaml:"flag,omitempty"`
	Type      OptionType `json:"type,omitempty" yaml:"type,omitempty"`
	Mandatory bool       `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	Role      Role       `json:"role,omitempty" yaml:"role,omitempty"`
	Default   string     `json:"default,omitempty" yaml:"default,omitempty"`
}

// IsOutput reports whether the option names something the tool produces.
// An explicit role wins; otherwise the flag -o/--output or a label
// containing "output" (any case) marks an output.
func (o Option) IsOutput() bool {
	switch o.Role {
	case RoleOutput:
		return true
	case RoleInput, RoleFlag:
		return false
	}
	if o.Flag == "-o" || o.Flag == "--output" {
		return true
	}
	return strings.Contains(strings.ToLower(o.Label), "output")
}

// ToolDef is the declarative description of a tool: its command and its
// options in declared order. Declared order decides positional argument order.
type ToolDef struct {
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Command     string   `json:"command,omitempty" yaml:"command,omitempty"`
	Options     []Option `json:"options,omitempty" yaml:"options,omitempty"`
}

// IsZero reports whether the definition carries nothing, meaning it should
// be looked up in the tool catalog.
func (d ToolDef) IsZero() bool {
	return d.Command == "" && len(d.Options) == 0
}

// CommandWords returns the argv prefix for the tool. A multi-word command
// such as "samtools sort" is split on whitespace; an empty command falls back
// to the node label.
func (d ToolDef) CommandWords(label string) []string {
	words := strings.Fields(d.Command)
	if len(words) == 0 {
		return []string{label}
	}
	return words
}

// Parameters holds user-entered option values keyed by option label.
type Parameters map[string]string

// UnmarshalJSON accepts any JSON scalar as a parameter value; editors send
// numbers and booleans as-is. Nulls are dropped.
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(Parameters, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case json.Number:
			// Keep the number exactly as written.
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			return fmt.Errorf("parameter %q must be a scalar, got %T", k, v)
		}
	}
	*p = out
	return nil
}

// NodeData is the payload of a node as produced by the graph editor.
type NodeData struct {
	Label      string     `json:"label" yaml:"label"`
	Parameters Parameters `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	ToolDef    ToolDef    `json:"toolDef" yaml:"toolDef"`
}

// Node is one step of a workflow.
type Node struct {
	ID   string   `json:"id" yaml:"id"`
	Data NodeData `json:"data" yaml:"data"`
}

// Label returns the node's tool identifier (or FileLabel).
func (n *Node) Label() string { return n.Data.Label }

// IsFile reports whether the node is a file pass-through node.
func (n *Node) IsFile() bool { return n.Data.Label == FileLabel }

// Param returns the literal value entered for the option label.
func (n *Node) Param(label string) string { return n.Data.Parameters[label] }

// EdgeData carries the target option an edge feeds.
type EdgeData struct {
	Param string `json:"param" yaml:"param"`
}

// Edge binds the output of Source to the option Data.Param of Target.
type Edge struct {
	ID     string   `json:"id,omitempty" yaml:"id,omitempty"`
	Source string   `json:"source" yaml:"source"`
	Target string   `json:"target" yaml:"target"`
	Data   EdgeData `json:"data" yaml:"data"`
}

// Param returns the option label of the target this edge feeds.
func (e Edge) Param() string { return e.Data.Param }

// Graph is a set of nodes and edges.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// Request is a graph submitted for execution under a workflow name.
type Request struct {
	WorkflowName string `json:"workflow_name"`
	Nodes        []Node `json:"nodes"`
	Edges        []Edge `json:"edges"`
}

// Graph returns the request's node and edge sets.
func (r *Request) Graph() Graph {
	return Graph{Nodes: r.Nodes, Edges: r.Edges}
}

// NewRequest builds an execution request for a stored graph.
func NewRequest(name string, g Graph) *Request {
	if name == "" {
		name = DefaultWorkflowName
	}
	return &Request{WorkflowName: name, Nodes: g.Nodes, Edges: g.Edges}
}
