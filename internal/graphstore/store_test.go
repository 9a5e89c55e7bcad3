package graphstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/toolgrid/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() workflow.Graph {
	return workflow.Graph{
		Nodes: []workflow.Node{
			{ID: "a", Data: workflow.NodeData{
				Label:      "align",
				Parameters: workflow.Parameters{"input": "reads.fq", "threads": "4"},
				ToolDef: workflow.ToolDef{Command: "bwa mem", Options: []workflow.Option{
					{Label: "input", Type: workflow.TypeFile, Mandatory: true},
					{Label: "output", Flag: "-o"},
				}},
			}},
			{ID: "b", Data: workflow.NodeData{Label: "sort"}},
		},
		Edges: []workflow.Edge{{ID: "e1", Source: "a", Target: "b", Data: workflow.EdgeData{Param: "in"}}},
	}
}

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "graphs"))
	require.NoError(t, err)
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, err := s.Save(ctx, "align & sort", sampleGraph())
	require.NoError(t, err)
	assert.True(t, created)

	rec, err := s.Load(ctx, "align & sort")
	require.NoError(t, err)
	assert.Equal(t, "align & sort", rec.Name)
	assert.False(t, rec.CreatedAt.IsZero())
	if diff := cmp.Diff(sampleGraph(), rec.Graph); diff != "" {
		t.Errorf("graph mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_UpsertKeepsCreatedAt(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return first }

	_, err := s.Save(ctx, "wf", sampleGraph())
	require.NoError(t, err)

	s.now = func() time.Time { return first.Add(time.Hour) }
	updated := sampleGraph()
	updated.Edges = nil
	created, err := s.Save(ctx, "wf", updated)
	require.NoError(t, err)
	assert.False(t, created)

	rec, err := s.Load(ctx, "wf")
	require.NoError(t, err)
	assert.True(t, first.Equal(rec.CreatedAt))
	assert.Empty(t, rec.Graph.Edges)
}

func TestList_NewestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"old", "middle", "new"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		s.now = func() time.Time { return ts }
		_, err := s.Save(ctx, name, sampleGraph())
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "broken.yaml"), []byte(":\n\t- ["), 0o644))

	records, err := s.List(ctx)
	require.NoError(t, err)

	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"new", "middle", "old"}, names)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "wf", sampleGraph())
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "wf"))

	_, err = s.Load(ctx, "wf")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Delete(ctx, "wf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvalidNames(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err := s.Save(ctx, name, sampleGraph())
		assert.Error(t, err, name)
		_, err = s.Load(ctx, name)
		assert.Error(t, err, name)
	}
}
