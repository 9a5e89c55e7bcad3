// Package dag is the structural layer of a run. It builds a directed graph
// from a submitted workflow, enforces the single-root rule over the subgraph
// of edge-connected nodes, and produces a deterministic topological order
// with Kahn's algorithm.
//
// Ties between simultaneously ready nodes are broken by discovery order:
// nodes are discovered in the order edges were submitted (source before
// target), and each node's dependents are visited in edge order.
package dag
