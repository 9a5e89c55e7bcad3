package resultstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrConflict is returned when a key already holds a different value.
var ErrConflict = errors.New("result already recorded")

// Status is the execution state of a single node within a run.
type Status int32

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return fmt.Sprintf("Status(%d)", int32(s))
}

// Key addresses one option of one node.
type Key struct {
	Node   string
	Option string
}

// Store is the results table of one run.
type Store struct {
	values sync.Map // Key -> string
	states sync.Map // node ID -> Status
}

// New creates a new, empty results table.
func New() *Store {
	return &Store{}
}

// Set records the value of an option of a node.
func (s *Store) Set(ctx context.Context, node, option, value string) error {
	key := Key{Node: node, Option: option}
	prev, loaded := s.values.LoadOrStore(key, value)
	if loaded && prev.(string) != value {
		return fmt.Errorf("%w: %s.%s is %q, refusing %q", ErrConflict, node, option, prev, value)
	}
	return nil
}

// Get returns the recorded value of an option of a node.
func (s *Store) Get(ctx context.Context, node, option string) (string, bool) {
	v, ok := s.values.Load(Key{Node: node, Option: option})
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Node returns a snapshot of every value recorded for the node.
func (s *Store) Node(ctx context.Context, node string) map[string]string {
	out := make(map[string]string)
	s.values.Range(func(k, v any) bool {
		key := k.(Key)
		if key.Node == node {
			out[key.Option] = v.(string)
		}
		return true
	})
	return out
}

// Keys returns every recorded key, sorted by node then option.
func (s *Store) Keys() []Key {
	var keys []Key
	s.values.Range(func(k, _ any) bool {
		keys = append(keys, k.(Key))
		return true
	})
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Node != keys[j].Node {
			return keys[i].Node < keys[j].Node
		}
		return keys[i].Option < keys[j].Option
	})
	return keys
}

// SetStatus updates the execution status of a node.
func (s *Store) SetStatus(ctx context.Context, node string, status Status) {
	s.states.Store(node, status)
}

// Status returns the execution status of a node. Nodes never touched are pending.
func (s *Store) Status(ctx context.Context, node string) Status {
	v, ok := s.states.Load(node)
	if !ok {
		return StatusPending
	}
	return v.(Status)
}
