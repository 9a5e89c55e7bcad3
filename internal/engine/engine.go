package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/toolgrid/internal/command"
	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/dag"
	"github.com/specialistvlad/toolgrid/internal/executor"
	"github.com/specialistvlad/toolgrid/internal/notify"
	"github.com/specialistvlad/toolgrid/internal/preflight"
	"github.com/specialistvlad/toolgrid/internal/resolver"
	"github.com/specialistvlad/toolgrid/internal/resultstore"
	"github.com/specialistvlad/toolgrid/internal/runlog"
	"github.com/specialistvlad/toolgrid/internal/workflow"
)

// RunningPrefix starts the log line recorded before a tool is spawned.
const RunningPrefix = "Running: "

// Catalog supplies definitions for nodes submitted without one.
type Catalog interface {
	Lookup(id string) (workflow.ToolDef, bool)
}

// Storage is the file storage a run writes into.
type Storage interface {
	resolver.Files
	command.Files
	OutputDir(workflow, label string) (string, error)
}

// Engine executes workflows. It is safe for concurrent use; every call to
// Execute is an independent run.
type Engine struct {
	storage  Storage
	catalog  Catalog
	runner   executor.Runner
	pool     *executor.Pool
	notifier notify.Notifier
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets how many nodes may run at once. The default of one runs
// nodes strictly one after another in topological order.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.pool = executor.NewPool(n) }
}

// WithNotifier publishes run events to n.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithCatalog resolves empty tool definitions by node label.
func WithCatalog(c Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// New creates an Engine.
func New(storage Storage, runner executor.Runner, opts ...Option) *Engine {
	e := &Engine{
		storage:  storage,
		runner:   runner,
		pool:     executor.NewPool(1),
		notifier: notify.Nop{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of a run. It always carries the execution log
// accumulated so far, whether the run succeeded or not.
type Result struct {
	RunID    string
	Workflow string
	State    State
	// FailedIn is the state the run was in when it failed.
	FailedIn State
	Order    []string
	Log      []string
	// Statuses holds the final status of every scheduled node.
	Statuses map[string]resultstore.Status
}

// Success reports whether the run completed every node.
func (r *Result) Success() bool { return r.State == StateSucceeded }

// run is the state of one Execute call.
type run struct {
	*Result
	engine  *Engine
	index   *workflow.Index
	results *resultstore.Store
	log     *runlog.Log
	resolve *resolver.Resolver
	build   *command.Builder
}

// Execute validates and runs a workflow. The returned error is one of the
// workflow error types; the Result is non-nil either way.
func (e *Engine) Execute(ctx context.Context, req *workflow.Request) (*Result, error) {
	name := req.WorkflowName
	if name == "" {
		name = workflow.DefaultWorkflowName
	}

	r := &run{
		Result:  &Result{RunID: e.newID(), Workflow: name, State: StateValidating, Log: []string{}},
		engine:  e,
		results: resultstore.New(),
	}
	r.log = runlog.New(func(node, line string) {
		e.notifier.Publish(ctx, notify.EventRunLog, notify.RunLog{RunID: r.RunID, Node: node, Line: line})
	})
	r.resolve = resolver.New(e.storage, r.results)
	r.build = command.New(e.storage, command.NewReserver())

	ctx, logger := ctxlog.With(ctx, "run_id", r.RunID, "workflow", name)
	logger.Info("Run started.", "nodes", len(req.Nodes), "edges", len(req.Edges))

	err := r.execute(ctx, req)
	r.Log = r.log.Lines(r.Order)
	if err != nil {
		r.FailedIn = r.State
		r.transition(ctx, StateFailed)
		logger.Error("Run failed.", "in", r.FailedIn, "error", err)
	} else {
		r.transition(ctx, StateSucceeded)
		logger.Info("Run succeeded.", "nodes", len(r.Order))
	}

	finished := notify.RunFinished{RunID: r.RunID, Workflow: name, State: r.State.String(), Success: err == nil}
	if err != nil {
		finished.Error = err.Error()
	}
	e.notifier.Publish(ctx, notify.EventRunFinished, finished)

	return r.Result, err
}

func (r *run) transition(ctx context.Context, s State) {
	ctxlog.FromContext(ctx).Debug("Run state changed.", "from", r.State, "to", s)
	r.State = s
}

// Validate runs the structural and pre-flight checks of Execute without
// spawning anything. It returns the execution order and the warnings the
// run would log up front.
func (e *Engine) Validate(ctx context.Context, req *workflow.Request) ([]string, []string, error) {
	r := &run{Result: &Result{Workflow: req.WorkflowName}, engine: e, log: runlog.New(nil)}
	if _, err := r.prepare(ctx, req); err != nil {
		return nil, r.log.Lines(nil), err
	}
	return r.Order, r.log.Lines(nil), nil
}

// prepare validates the graph and runs the pre-flight checks.
func (r *run) prepare(ctx context.Context, req *workflow.Request) (*dag.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	nodes := r.withToolDefs(ctx, req.Nodes)
	g, err := dag.Build(nodes, req.Edges)
	if err != nil {
		return nil, err
	}
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	if isolated := g.Isolated(); len(isolated) > 0 {
		logger.Warn("Nodes without edges are not executed.", "nodes", isolated)
	}
	r.Order = order
	r.index = workflow.NewIndex(nodes, req.Edges)

	r.transition(ctx, StatePreflightChecking)
	warnings, err := preflight.Check(ctx, order, r.index)
	r.log.Preamble(warnings...)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *run) execute(ctx context.Context, req *workflow.Request) error {
	g, err := r.prepare(ctx, req)
	if err != nil {
		return err
	}

	r.transition(ctx, StateExecuting)
	order := r.Order
	r.engine.notifier.Publish(ctx, notify.EventRunStarted, notify.RunStarted{RunID: r.RunID, Workflow: r.Workflow, Order: order})

	plan, err := r.plan(g)
	if err != nil {
		return err
	}
	err = r.engine.pool.Run(ctx, plan, r.runNode, r.results)

	r.Statuses = make(map[string]resultstore.Status, len(order))
	for _, id := range order {
		r.Statuses[id] = r.results.Status(ctx, id)
	}

	var runErr *executor.RunError
	if errors.As(err, &runErr) {
		return runErr.Err
	}
	return err
}

// withToolDefs copies the submitted nodes, filling empty tool definitions
// from the catalog.
func (r *run) withToolDefs(ctx context.Context, in []workflow.Node) []workflow.Node {
	nodes := append([]workflow.Node(nil), in...)
	if r.engine.catalog == nil {
		return nodes
	}
	for i := range nodes {
		n := &nodes[i]
		if n.IsFile() || !n.Data.ToolDef.IsZero() {
			continue
		}
		if def, ok := r.engine.catalog.Lookup(n.Label()); ok {
			ctxlog.FromContext(ctx).Debug("Using catalog definition.", "node", n.ID, "tool", n.Label())
			n.Data.ToolDef = def
		}
	}
	return nodes
}

// plan derives the scheduling dependencies: every edge, plus an ordering
// edge between consecutive nodes of the same tool label. Such nodes share
// an output directory, and running them in topological order keeps output
// name generation deterministic.
func (r *run) plan(g *dag.Graph) (executor.Plan, error) {
	plan := executor.Plan{Order: r.Order, Deps: make(map[string][]string, len(r.Order))}
	lastByLabel := make(map[string]string)

	for _, id := range r.Order {
		deps, err := g.Dependencies(id)
		if err != nil {
			return plan, err
		}
		n, _ := r.index.Node(id)
		if !n.IsFile() {
			if prev, ok := lastByLabel[n.Label()]; ok && !contains(deps, prev) {
				deps = append(deps, prev)
			}
			lastByLabel[n.Label()] = id
		}
		plan.Deps[id] = deps
	}
	return plan, nil
}

// runNode resolves, builds and runs one node. File nodes are data and
// produce nothing.
func (r *run) runNode(ctx context.Context, id string) error {
	n, ok := r.index.Node(id)
	if !ok {
		return fmt.Errorf("node %q not found", id)
	}
	if n.IsFile() {
		return nil
	}
	ctx, logger := ctxlog.With(ctx, "node", id, "tool", n.Label())
	seg := r.log.Segment(id)

	resolution, err := r.resolve.Resolve(ctx, r.Workflow, n, r.index)
	if err != nil {
		return err
	}
	seg.Append(resolution.Warnings...)

	outputDir, err := r.engine.storage.OutputDir(r.Workflow, n.Label())
	if err != nil {
		return err
	}
	if err := r.engine.storage.EnsureDir(outputDir); err != nil {
		return err
	}

	cmd, err := r.build.Build(ctx, n, resolution.Params, outputDir)
	if err != nil {
		return err
	}
	seg.Append(cmd.Warnings...)
	for label, value := range cmd.Values {
		if err := r.results.Set(ctx, id, label, value); err != nil {
			return err
		}
	}

	line := cmd.Line()
	seg.Append(RunningPrefix + line)
	logger.Info("Running tool.", "argv", cmd.Argv, "dir", cmd.Dir)

	res, err := r.engine.runner.Run(ctx, cmd.Argv, cmd.Dir)
	if err != nil {
		seg.Append(err.Error())
		return &workflow.ToolExecutionError{Node: id, Command: line, ExitCode: -1, Err: err}
	}
	seg.Append(res.Stdout)
	if res.Stderr != "" {
		seg.Append(res.Stderr)
	}
	if res.ExitCode != 0 {
		return &workflow.ToolExecutionError{Node: id, Command: line, ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	logger.Debug("Tool finished.")
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
