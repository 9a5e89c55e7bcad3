package dag

import (
	"sync"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

// Graph is a collection of nodes and their dependencies, representing a DAG.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the node maps during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// ids remembers node insertion order.
	ids *linkedhashset.Set
	// connected holds endpoints of at least one edge, in discovery order.
	connected *linkedhashset.Set
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	id string
	// deps holds the predecessors in edge order; depSet dedupes parallel edges.
	deps   []*node
	depSet map[string]struct{}
	// dependents holds the successors in edge order.
	dependents []*node
}
