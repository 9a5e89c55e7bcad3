package dag

import (
	"fmt"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/specialistvlad/toolgrid/internal/workflow"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[string]*node),
		ids:       linkedhashset.New(),
		connected: linkedhashset.New(),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing and returns false.
func (g *Graph) AddNode(id string) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return false
	}

	g.nodes[id] = &node{
		id:     id,
		depSet: make(map[string]struct{}),
	}
	g.ids.Add(id)
	return true
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. Repeated edges
// between the same pair (binding different parameters) count once.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return &workflow.StructuralError{
			Kind: "self_reference",
			Msg:  fmt.Sprintf("self-referential edge not allowed: %s -> %s", fromID, toID),
		}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return &workflow.StructuralError{
			Kind: "dangling_edge",
			Msg:  fmt.Sprintf("edge references unknown node: %q", fromID),
		}
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return &workflow.StructuralError{
			Kind: "dangling_edge",
			Msg:  fmt.Sprintf("edge references unknown node: %q", toID),
		}
	}

	g.connected.Add(fromID, toID)
	if _, dup := toNode.depSet[fromID]; dup {
		return nil
	}
	toNode.depSet[fromID] = struct{}{}
	toNode.deps = append(toNode.deps, fromNode)
	fromNode.dependents = append(fromNode.dependents, toNode)

	return nil
}

// Dependencies returns the IDs the given node depends on, in edge order.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return idsOf(n.deps), nil
}

// Dependents returns the IDs that depend on the given node, in edge order.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return idsOf(n.dependents), nil
}

// Connected returns the nodes touched by at least one edge, in discovery order.
func (g *Graph) Connected() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return stringsOf(g.connected.Values())
}

// Isolated returns the nodes that no edge touches, in insertion order.
func (g *Graph) Isolated() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var out []string
	for _, v := range g.ids.Values() {
		if !g.connected.Contains(v) {
			out = append(out, v.(string))
		}
	}
	return out
}

// Roots returns the connected nodes with in-degree zero.
func (g *Graph) Roots() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.roots()
}

func (g *Graph) roots() []string {
	var roots []string
	for _, v := range g.connected.Values() {
		id := v.(string)
		if len(g.nodes[id].deps) == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// Order computes the execution order of the connected subgraph. Exactly one
// connected node must have in-degree zero; Kahn's algorithm then walks from
// it, and any connected node left unvisited means a cycle or a component
// unreachable from the root.
func (g *Graph) Order() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	roots := g.roots()
	if len(roots) != 1 {
		return nil, &workflow.MultipleOrMissingRootError{Roots: roots}
	}

	inDegree := make(map[string]int, g.connected.Size())
	for _, v := range g.connected.Values() {
		id := v.(string)
		inDegree[id] = len(g.nodes[id].deps)
	}

	order := make([]string, 0, g.connected.Size())
	queue := linkedlistqueue.New()
	queue.Enqueue(roots[0])
	for !queue.Empty() {
		v, _ := queue.Dequeue()
		current := g.nodes[v.(string)]
		order = append(order, current.id)
		for _, dependent := range current.dependents {
			inDegree[dependent.id]--
			if inDegree[dependent.id] == 0 {
				queue.Enqueue(dependent.id)
			}
		}
	}

	if len(order) != g.connected.Size() {
		visited := make(map[string]struct{}, len(order))
		for _, id := range order {
			visited[id] = struct{}{}
		}
		var unreached []string
		for _, v := range g.connected.Values() {
			if _, ok := visited[v.(string)]; !ok {
				unreached = append(unreached, v.(string))
			}
		}
		return nil, &workflow.CycleOrDisconnectedGraphError{Unreached: unreached}
	}
	return order, nil
}

func idsOf(nodes []*node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.id)
	}
	return out
}

func stringsOf(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.(string))
	}
	return out
}
