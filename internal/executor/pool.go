package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/resultstore"
)

// Task executes one node.
type Task func(ctx context.Context, id string) error

// StatusSink receives node state transitions.
type StatusSink interface {
	SetStatus(ctx context.Context, node string, status resultstore.Status)
}

// Plan is the set of nodes to run and what each waits for.
type Plan struct {
	// Order lists every node to run in a valid topological order. Roots are
	// dispatched in this order.
	Order []string
	// Deps maps a node to the nodes that must succeed before it may start.
	Deps map[string][]string
}

// RunError reports the nodes that failed and the first failure in plan order.
type RunError struct {
	Failed []string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("execution failed for %s: %v", strings.Join(e.Failed, ", "), e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Pool runs a Plan on a fixed number of workers.
type Pool struct {
	numWorkers int
}

// NewPool creates a Pool. Fewer than one worker means one.
func NewPool(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{numWorkers: numWorkers}
}

type job struct {
	id         string
	dependents []*job
	depCount   atomic.Int32
	state      atomic.Int32
	err        error
	skipOnce   sync.Once
}

type run struct {
	jobs  map[string]*job
	wg    sync.WaitGroup
	task  Task
	sink  StatusSink
	ready chan *job
}

// Run executes the plan and blocks until every node has either run or been
// skipped. Tasks receive ctx itself, so stopping after a failure never
// interrupts a node that is already running.
func (p *Pool) Run(ctx context.Context, plan Plan, task Task, sink StatusSink) error {
	logger := ctxlog.FromContext(ctx)
	if len(plan.Order) == 0 {
		return nil
	}

	r := &run{
		jobs:  make(map[string]*job, len(plan.Order)),
		task:  task,
		sink:  sink,
		ready: make(chan *job, len(plan.Order)),
	}
	for _, id := range plan.Order {
		r.jobs[id] = &job{id: id}
		sink.SetStatus(ctx, id, resultstore.StatusPending)
	}
	for _, id := range plan.Order {
		for _, dep := range plan.Deps[id] {
			parent, ok := r.jobs[dep]
			if !ok {
				return fmt.Errorf("node %q depends on %q, which is not in the plan", id, dep)
			}
			parent.dependents = append(parent.dependents, r.jobs[id])
			r.jobs[id].depCount.Add(1)
		}
	}

	dispatchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	roots := 0
	for _, id := range plan.Order {
		if j := r.jobs[id]; j.depCount.Load() == 0 {
			r.ready <- j
			roots++
		}
	}
	logger.Debug("Dispatching root nodes.", "count", roots)

	r.wg.Add(len(plan.Order))
	logger.Debug("Starting worker pool.", "workers", p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		go r.worker(ctx, dispatchCtx, cancel, i)
	}

	r.wg.Wait()
	close(r.ready)

	var failed []string
	var rootCause error
	skipped := 0
	for _, id := range plan.Order {
		j := r.jobs[id]
		switch resultstore.Status(j.state.Load()) {
		case resultstore.StatusFailed:
			failed = append(failed, id)
			if rootCause == nil {
				rootCause = j.err
			}
		case resultstore.StatusSkipped:
			skipped++
		}
	}
	if rootCause != nil {
		return &RunError{Failed: failed, Err: rootCause}
	}
	if skipped > 0 {
		return fmt.Errorf("run stopped with %d node(s) not executed: %w", skipped, context.Cause(ctx))
	}
	return nil
}

func (r *run) setState(ctx context.Context, j *job, s resultstore.Status) {
	j.state.Store(int32(s))
	r.sink.SetStatus(ctx, j.id, s)
}

// skipDependents recursively marks all downstream nodes as skipped and
// releases them from the WaitGroup.
func (r *run) skipDependents(ctx context.Context, j *job) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range j.dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.", "node", dependent.id, "dependency", j.id)
			r.setState(ctx, dependent, resultstore.StatusSkipped)
			r.wg.Done()
			r.skipDependents(ctx, dependent)
		})
	}
}

// worker is the processing loop of a single worker.
func (r *run) worker(ctx, dispatchCtx context.Context, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)

	for j := range r.ready {
		workerLogger := logger.With("workerID", workerID, "node", j.id)

		if dispatchCtx.Err() != nil {
			j.skipOnce.Do(func() {
				workerLogger.Warn("Run stopped, skipping node.")
				r.setState(ctx, j, resultstore.StatusSkipped)
				r.skipDependents(ctx, j)
				r.wg.Done()
			})
			continue
		}

		workerLogger.Debug("Worker picked up node.")
		r.setState(ctx, j, resultstore.StatusRunning)

		if err := r.task(ctx, j.id); err != nil {
			workerLogger.Error("Node failed.", "error", err)
			j.err = err
			r.setState(ctx, j, resultstore.StatusFailed)
			cancel()
			r.skipDependents(ctx, j)
			r.wg.Done()
			continue
		}

		r.setState(ctx, j, resultstore.StatusSucceeded)
		for _, dependent := range j.dependents {
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependent", dependent.id)
				r.ready <- dependent
			}
		}
		r.wg.Done()
	}
}
