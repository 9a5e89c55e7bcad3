package workflow

// Index gives constant-time access to nodes by id and to each node's
// incoming edges, in submission order.
type Index struct {
	nodes    map[string]*Node
	incoming map[string][]Edge
}

// NewIndex indexes the graph. Later duplicates of a node id are ignored;
// structural validation rejects them before an Index is used for execution.
func NewIndex(nodes []Node, edges []Edge) *Index {
	ix := &Index{
		nodes:    make(map[string]*Node, len(nodes)),
		incoming: make(map[string][]Edge),
	}
	for i := range nodes {
		n := &nodes[i]
		if _, ok := ix.nodes[n.ID]; !ok {
			ix.nodes[n.ID] = n
		}
	}
	for _, e := range edges {
		ix.incoming[e.Target] = append(ix.incoming[e.Target], e)
	}
	return ix
}

// Node returns the node with the given id.
func (ix *Index) Node(id string) (*Node, bool) {
	n, ok := ix.nodes[id]
	return n, ok
}

// Incoming returns the edges targeting id.
func (ix *Index) Incoming(id string) []Edge {
	return ix.incoming[id]
}

// Bound reports whether some incoming edge of id feeds the option label.
func (ix *Index) Bound(id, label string) bool {
	for _, e := range ix.incoming[id] {
		if e.Param() == label {
			return true
		}
	}
	return false
}
