package engine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/toolgrid/internal/catalog"
	"github.com/specialistvlad/toolgrid/internal/executor"
	"github.com/specialistvlad/toolgrid/internal/notify"
	"github.com/specialistvlad/toolgrid/internal/resultstore"
	"github.com/specialistvlad/toolgrid/internal/storage"
	"github.com/specialistvlad/toolgrid/internal/testutil"
	"github.com/specialistvlad/toolgrid/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	files  *storage.Local
	runner *testutil.FakeRunner
	engine *Engine
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	runner := &testutil.FakeRunner{Handler: testutil.WriteFlagOutputs("-o")}
	e := New(files, runner, opts...)
	e.newID = func() string { return "run-1" }
	return &fixture{files: files, runner: runner, engine: e}
}

func alignSortRequest() *workflow.Request {
	return &workflow.Request{
		WorkflowName: "wf",
		Nodes: []workflow.Node{
			testutil.ToolNode("A", "align", workflow.Parameters{"input": "reads.fq", "output": "aligned.bam"}, testutil.AlignTool()),
			testutil.ToolNode("B", "sort", workflow.Parameters{"output": "sort_out"}, testutil.SortTool()),
		},
		Edges: []workflow.Edge{testutil.Edge("A", "B", "in")},
	}
}

func runningLines(log []string) []string {
	var out []string
	for _, l := range log {
		if strings.HasPrefix(l, "Running: ") {
			out = append(out, l)
		}
	}
	return out
}

func TestExecute_AlignThenSort(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.Execute(context.Background(), alignSortRequest())
	require.NoError(t, err)

	root := f.files.Root()
	alignOut := filepath.Join(root, "wf", "align", "aligned.bam")
	sortOut := filepath.Join(root, "wf", "sort", "sort_out")

	assert.Equal(t, StateSucceeded, res.State)
	assert.True(t, res.Success())
	assert.Equal(t, []string{"A", "B"}, res.Order)
	assert.Equal(t, "run-1", res.RunID)

	calls := f.runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"align", "reads.fq", "-o", alignOut}, calls[0].Argv)
	assert.Equal(t, filepath.Join(root, "wf", "align"), calls[0].Dir)
	assert.Equal(t, []string{"sort", "-o", sortOut, alignOut}, calls[1].Argv)
	assert.Equal(t, filepath.Join(root, "wf", "sort"), calls[1].Dir)
	assert.DirExists(t, sortOut)

	want := []string{
		"Running: align reads.fq -o " + alignOut,
		"ok\n",
		"Running: sort -o " + sortOut + " " + alignOut,
		"ok\n",
	}
	if diff := cmp.Diff(want, res.Log); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, resultstore.StatusSucceeded, res.Statuses["B"])
}

func TestExecute_MissingMandatorySpawnsNothing(t *testing.T) {
	f := newFixture(t)
	req := alignSortRequest()
	// No literal and no edge for sort's mandatory "in".
	req.Edges = []workflow.Edge{testutil.Edge("A", "B", "output")}

	res, err := f.engine.Execute(context.Background(), req)

	var missing *workflow.MissingMandatoryInputError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "in", missing.Option)
	assert.Equal(t, "sort", missing.Tool)
	assert.True(t, workflow.IsValidationError(err))

	assert.Empty(t, f.runner.Calls())
	assert.Empty(t, runningLines(res.Log))
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StatePreflightChecking, res.FailedIn)
	assert.NoDirExists(t, filepath.Join(f.files.Root(), "wf"))
}

func TestExecute_NonZeroExitStopsDownstream(t *testing.T) {
	f := newFixture(t)
	f.runner.Handler = func(argv []string, dir string) (*executor.Result, error) {
		if argv[0] == "sort" {
			return &executor.Result{Stdout: "partial\n", Stderr: "sort: invalid header\n", ExitCode: 2}, nil
		}
		return testutil.WriteFlagOutputs("-o")(argv, dir)
	}
	req := alignSortRequest()
	req.Nodes = append(req.Nodes, testutil.ToolNode("C", "index", workflow.Parameters{}, workflow.ToolDef{
		Command: "index",
		Options: []workflow.Option{{Label: "bam", Mandatory: true}},
	}))
	req.Edges = append(req.Edges, testutil.Edge("B", "C", "bam"))

	res, err := f.engine.Execute(context.Background(), req)

	var toolErr *workflow.ToolExecutionError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 2, toolErr.ExitCode)
	assert.Equal(t, "B", toolErr.Node)
	assert.False(t, workflow.IsValidationError(err))
	assert.Contains(t, err.Error(), "sort: invalid header")

	running := runningLines(res.Log)
	require.Len(t, running, 2)
	assert.True(t, strings.HasPrefix(running[1], "Running: sort -o "))
	assert.Contains(t, res.Log, "sort: invalid header\n")
	assert.Contains(t, res.Log, "partial\n")
	for _, l := range res.Log {
		assert.NotContains(t, l, "Running: index")
	}

	assert.Len(t, f.runner.Calls(), 2)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateExecuting, res.FailedIn)
	assert.Equal(t, resultstore.StatusFailed, res.Statuses["B"])
	assert.Equal(t, resultstore.StatusSkipped, res.Statuses["C"])
}

func TestExecute_LaunchFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.Handler = func([]string, string) (*executor.Result, error) {
		return nil, errors.New("executable file not found")
	}

	res, err := f.engine.Execute(context.Background(), alignSortRequest())
	assert.ErrorIs(t, err, workflow.ErrToolExecution)
	assert.Contains(t, err.Error(), "failed to launch")
	assert.Len(t, runningLines(res.Log), 1)
}

func TestExecute_SourceFileNotFound(t *testing.T) {
	f := newFixture(t)
	// The tool reports success but never writes its output.
	f.runner.Handler = nil

	res, err := f.engine.Execute(context.Background(), alignSortRequest())

	var notFound *workflow.SourceFileNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, filepath.Join(f.files.Root(), "wf", "align", "aligned.bam"), notFound.Path)
	assert.Equal(t, "file not found: "+notFound.Path, err.Error())

	assert.Len(t, f.runner.Calls(), 1)
	assert.Len(t, runningLines(res.Log), 1)
}

func TestExecute_StructuralErrors(t *testing.T) {
	f := newFixture(t)
	req := &workflow.Request{
		WorkflowName: "wf",
		Nodes: []workflow.Node{
			testutil.ToolNode("A", "align", nil, testutil.AlignTool()),
			testutil.ToolNode("B", "align", nil, testutil.AlignTool()),
			testutil.ToolNode("C", "sort", nil, testutil.SortTool()),
		},
		Edges: []workflow.Edge{testutil.Edge("A", "C", "in"), testutil.Edge("B", "C", "in")},
	}

	res, err := f.engine.Execute(context.Background(), req)

	var rootErr *workflow.MultipleOrMissingRootError
	require.True(t, errors.As(err, &rootErr))
	assert.Equal(t, []string{"A", "B"}, rootErr.Roots)
	assert.Equal(t, StateValidating, res.FailedIn)
	assert.Empty(t, res.Log)
	assert.NotNil(t, res.Log)
	assert.Empty(t, f.runner.Calls())
}

func TestExecute_LabelCannotLeaveToolDirectory(t *testing.T) {
	f := newFixture(t)
	req := alignSortRequest()
	req.Nodes[1].Data.Label = "../other_wf"

	res, err := f.engine.Execute(context.Background(), req)

	assert.ErrorIs(t, err, storage.ErrInvalidName)
	assert.Equal(t, StateFailed, res.State)
	require.Len(t, f.runner.Calls(), 1)
	assert.Equal(t, "align", f.runner.Calls()[0].Argv[0])
	assert.NoDirExists(t, filepath.Join(f.files.Root(), "other_wf"))
}

func TestExecute_CatalogFallbackAndDefaultName(t *testing.T) {
	cat := catalog.New()
	require.NoError(t, cat.Add("align", testutil.AlignTool()))
	f := newFixture(t, WithCatalog(cat))

	req := alignSortRequest()
	req.WorkflowName = ""
	req.Nodes[0].Data.ToolDef = workflow.ToolDef{}

	res, err := f.engine.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, workflow.DefaultWorkflowName, res.Workflow)

	calls := f.runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "align", calls[0].Argv[0])
	assert.Equal(t, filepath.Join(f.files.Root(), workflow.DefaultWorkflowName, "align"), calls[0].Dir)
}

func TestExecute_FileNodeFromSharedArea(t *testing.T) {
	f := newFixture(t)
	upload := filepath.Join(f.files.Root(), "reads.fq")
	require.NoError(t, os.WriteFile(upload, []byte("@r1"), 0o644))

	req := &workflow.Request{
		WorkflowName: "wf",
		Nodes: []workflow.Node{
			testutil.FileNode("F", "reads.fq"),
			testutil.ToolNode("A", "align", workflow.Parameters{"output": "out.bam"}, testutil.AlignTool()),
		},
		Edges: []workflow.Edge{testutil.Edge("F", "A", "input")},
	}

	res, err := f.engine.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"F", "A"}, res.Order)

	calls := f.runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, upload, calls[0].Argv[1])
}

func TestExecute_ParallelBranchesKeepLogOrder(t *testing.T) {
	f := newFixture(t, WithWorkers(4))

	req := &workflow.Request{
		WorkflowName: "wf",
		Nodes: []workflow.Node{
			testutil.FileNode("F", "reads.fq"),
			testutil.ToolNode("X", "align", workflow.Parameters{"output": "out.bam"}, testutil.AlignTool()),
			testutil.ToolNode("Y", "align", workflow.Parameters{"output": "out.bam"}, testutil.AlignTool()),
			testutil.ToolNode("Z", "trim", workflow.Parameters{"output": "trimmed.fq"}, workflow.ToolDef{
				Command: "trim",
				Options: []workflow.Option{{Label: "in", Mandatory: true}, {Label: "output", Flag: "-o"}},
			}),
		},
		Edges: []workflow.Edge{
			testutil.Edge("F", "X", "input"),
			testutil.Edge("F", "Y", "input"),
			testutil.Edge("F", "Z", "in"),
		},
	}
	require.NoError(t, os.WriteFile(filepath.Join(f.files.Root(), "reads.fq"), []byte("@r1"), 0o644))

	res, err := f.engine.Execute(context.Background(), req)
	require.NoError(t, err)

	// X and Y share an output directory, so X runs first and keeps the name.
	dir := filepath.Join(f.files.Root(), "wf", "align")
	running := runningLines(res.Log)
	require.Len(t, running, 3)
	assert.True(t, strings.HasSuffix(running[0], "-o "+filepath.Join(dir, "out.bam")))
	assert.True(t, strings.HasSuffix(running[1], "-o "+filepath.Join(dir, "out_1.bam")))
	assert.True(t, strings.HasPrefix(running[2], "Running: trim "))
}

func TestExecute_PreflightWarningsComeFirst(t *testing.T) {
	f := newFixture(t)
	req := alignSortRequest()
	def := testutil.AlignTool()
	def.Options = append(def.Options,
		workflow.Option{Label: "threads", Flag: "-t", Type: workflow.TypeNumber},
		workflow.Option{Label: "quality", Flag: "-q"},
	)
	req.Nodes[0].Data.ToolDef = def
	req.Nodes[0].Data.Parameters["threads"] = "many"

	res, err := f.engine.Execute(context.Background(), req)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(res.Log), 3)
	assert.Equal(t, `[WARN] Parameter 'threads' for tool 'align' is not a number: "many"`, res.Log[0])
	assert.Equal(t, "[WARN] Missing parameter 'quality' for tool 'align'", res.Log[1])
	assert.True(t, strings.HasPrefix(res.Log[2], "Running: align reads.fq -o "))
	assert.Contains(t, res.Log[2], " -t many")
}

func TestExecute_PublishesEvents(t *testing.T) {
	rec := &testutil.NotifyRecorder{}
	f := newFixture(t, WithNotifier(rec))

	_, err := f.engine.Execute(context.Background(), alignSortRequest())
	require.NoError(t, err)

	names := rec.Names()
	require.NotEmpty(t, names)
	assert.Equal(t, notify.EventRunStarted, names[0])
	assert.Equal(t, notify.EventRunFinished, names[len(names)-1])
	assert.Equal(t, 4, strings.Count(strings.Join(names, ","), notify.EventRunLog))

	events := rec.Events()
	finished := events[len(events)-1].Payload.(notify.RunFinished)
	assert.True(t, finished.Success)
	assert.Equal(t, "succeeded", finished.State)
	assert.Equal(t, "run-1", finished.RunID)
}

func TestExecute_RealProcess(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	e := New(files, executor.NewProcessRunner())

	req := &workflow.Request{
		WorkflowName: "wf",
		Nodes: []workflow.Node{
			testutil.ToolNode("W", "writer", workflow.Parameters{"script": `echo "a;b" > "$1"`, "name": "x", "output": "note.txt"}, workflow.ToolDef{
				Command: "sh",
				Options: []workflow.Option{{Label: "script", Flag: "-c"}, {Label: "name"}, {Label: "output"}},
			}),
			testutil.ToolNode("R", "reader", workflow.Parameters{}, workflow.ToolDef{
				Command: "cat",
				Options: []workflow.Option{{Label: "in", Mandatory: true}},
			}),
		},
		Edges: []workflow.Edge{testutil.Edge("W", "R", "in")},
	}

	res, err := e.Execute(context.Background(), req)
	require.NoError(t, err, "log: %v", res.Log)
	assert.Contains(t, res.Log, "a;b\n")
}

func TestValidate_DoesNotRun(t *testing.T) {
	f := newFixture(t)

	order, warnings, err := f.engine.Validate(context.Background(), alignSortRequest())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, order)
	assert.Empty(t, warnings)
	assert.Empty(t, f.runner.Calls())

	req := alignSortRequest()
	req.Edges = nil
	_, _, err = f.engine.Validate(context.Background(), req)
	assert.ErrorIs(t, err, workflow.ErrGraphStructure)
}
