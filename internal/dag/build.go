package dag

import (
	"fmt"

	"github.com/specialistvlad/toolgrid/internal/workflow"
)

// Build constructs the graph for a submitted node and edge set, rejecting
// duplicate node IDs and edges that reference unknown nodes.
func Build(nodes []workflow.Node, edges []workflow.Edge) (*Graph, error) {
	g := New()
	for _, n := range nodes {
		if !g.AddNode(n.ID) {
			return nil, &workflow.StructuralError{
				Kind: "duplicate_id",
				Msg:  fmt.Sprintf("duplicate node ID: %q", n.ID),
			}
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e.Source, e.Target); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Validate checks the structure of a workflow and returns its execution order.
func Validate(nodes []workflow.Node, edges []workflow.Edge) ([]string, error) {
	g, err := Build(nodes, edges)
	if err != nil {
		return nil, err
	}
	return g.Order()
}
