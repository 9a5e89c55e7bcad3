// Package runlog accumulates the user-facing execution log of a run.
//
// Each node writes into its own segment, so concurrent branches never
// interleave. Lines renders the log deterministically: the run-level
// preamble first, then each node's segment in execution order.
package runlog

import "sync"

// Observer is told about every line as it is appended. node is empty for
// preamble lines.
type Observer func(node, line string)

// Log is the execution log of one run.
type Log struct {
	mu       sync.Mutex
	preamble []string
	segments map[string]*Segment
	observe  Observer
}

// Segment holds the lines of a single node.
type Segment struct {
	log   *Log
	node  string
	lines []string
}

// New creates an empty Log. observe may be nil.
func New(observe Observer) *Log {
	return &Log{segments: make(map[string]*Segment), observe: observe}
}

// Preamble appends run-level lines that precede every node's output.
func (l *Log) Preamble(lines ...string) {
	l.mu.Lock()
	l.preamble = append(l.preamble, lines...)
	l.mu.Unlock()
	l.notify("", lines)
}

// Segment returns the segment of node, creating it on first use.
func (l *Log) Segment(node string) *Segment {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.segments[node]
	if !ok {
		s = &Segment{log: l, node: node}
		l.segments[node] = s
	}
	return s
}

// Append adds lines to the segment.
func (s *Segment) Append(lines ...string) {
	s.log.mu.Lock()
	s.lines = append(s.lines, lines...)
	s.log.mu.Unlock()
	s.log.notify(s.node, lines)
}

// Lines merges the log: preamble, then segments in the given order. Nodes
// without a segment contribute nothing.
func (l *Log) Lines(order []string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.preamble))
	out = append(out, l.preamble...)
	for _, id := range order {
		if s, ok := l.segments[id]; ok {
			out = append(out, s.lines...)
		}
	}
	return out
}

func (l *Log) notify(node string, lines []string) {
	if l.observe == nil {
		return
	}
	for _, line := range lines {
		l.observe(node, line)
	}
}
