// Package resolver turns a node's incoming edges into concrete file paths.
//
// An edge carries the file its source produced. For a tool node that is the
// output name recorded in the results table when it ran; for a file
// pass-through node it is the node's own filename parameter, re-rooted under
// whichever tool produced it upstream (or the shared area when nothing did).
package resolver

import (
	"context"
	"fmt"

	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/workflow"
)

// Files is the subset of file storage the resolver needs.
type Files interface {
	ToolPath(workflow, label, filename string) (string, error)
	SharedPath(filename string) (string, error)
	Exists(path string) bool
}

// Results reads values recorded by nodes that already ran.
type Results interface {
	Get(ctx context.Context, node, option string) (string, bool)
}

// Resolution is the outcome of resolving one node's incoming edges.
type Resolution struct {
	// Params maps option labels to absolute paths.
	Params map[string]string
	// Warnings are log lines for edges that contributed nothing.
	Warnings []string
}

// Resolver resolves incoming edges against file storage.
type Resolver struct {
	files   Files
	results Results
}

// New creates a Resolver.
func New(files Files, results Results) *Resolver {
	return &Resolver{files: files, results: results}
}

// Resolve computes the path every incoming edge of n supplies. A path that
// does not exist aborts with a SourceFileNotFoundError; this can only be
// known once the upstream tools have actually run.
func (r *Resolver) Resolve(ctx context.Context, workflowName string, n *workflow.Node, ix *workflow.Index) (*Resolution, error) {
	logger := ctxlog.FromContext(ctx).With("node", n.ID)
	res := &Resolution{Params: make(map[string]string)}

	for _, e := range ix.Incoming(n.ID) {
		producer, ok := ix.Node(e.Source)
		if !ok {
			return nil, fmt.Errorf("edge %q references unknown node %q", e.ID, e.Source)
		}

		filename := r.filenameOf(ctx, producer)
		if filename == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"[WARN] No file available from '%s' for parameter '%s' of tool '%s'",
				producer.Label(), e.Param(), n.Label()))
			continue
		}

		path, err := r.locate(workflowName, producer, filename, ix)
		if err != nil {
			return nil, err
		}
		if !r.files.Exists(path) {
			return nil, &workflow.SourceFileNotFoundError{Node: n.ID, Param: e.Param(), Path: path}
		}

		logger.Debug("Resolved edge.", "param", e.Param(), "producer", producer.ID, "path", path)
		res.Params[e.Param()] = path
	}
	return res, nil
}

// filenameOf returns the basename the producer hands downstream.
func (r *Resolver) filenameOf(ctx context.Context, producer *workflow.Node) string {
	if producer.IsFile() {
		return producer.Param(workflow.FilenameParam)
	}
	for _, opt := range producer.Data.ToolDef.Options {
		if !opt.IsOutput() {
			continue
		}
		if v, ok := r.results.Get(ctx, producer.ID, opt.Label); ok && v != "" {
			return v
		}
		break
	}
	return producer.Param(workflow.FilenameParam)
}

// locate picks the directory the producer's file lives in.
func (r *Resolver) locate(workflowName string, producer *workflow.Node, filename string, ix *workflow.Index) (string, error) {
	if !producer.IsFile() {
		return r.files.ToolPath(workflowName, producer.Label(), filename)
	}

	upstream := ix.Incoming(producer.ID)
	if len(upstream) == 0 {
		return r.files.SharedPath(filename)
	}
	origin, ok := ix.Node(upstream[0].Source)
	if !ok {
		return "", fmt.Errorf("edge %q references unknown node %q", upstream[0].ID, upstream[0].Source)
	}
	return r.files.ToolPath(workflowName, origin.Label(), filename)
}
