package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/toolgrid/internal/app"
	"github.com/specialistvlad/toolgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// copyCatalog declares two tools backed by cp and one that always fails.
// All options are positional.
const copyCatalog = `
tool "copy" {
  description = "Copies a file."
  command     = "cp"

  option "input" {
    type      = "file"
    mandatory = true
  }

  option "output" {
    role = "output"
  }
}

tool "backup" {
  command = "cp"

  option "source" {
    type      = "file"
    mandatory = true
  }

  option "target" {
    role = "output"
  }
}

tool "reject" {
  command = "false"

  option "input" {
    type      = "file"
    mandatory = true
  }

  option "output" {
    role = "output"
  }
}
`

// harness is a running API server backed by a temporary media root.
type harness struct {
	baseURL string
	media   string
	logs    *testutil.SafeBuffer
}

// newHarness starts the full application on a loopback port. It is shut
// down when the test ends.
func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, bin := range []string{"cp", "false"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not available", bin)
		}
	}

	dir := t.TempDir()
	media := filepath.Join(dir, "media")
	catalogPath := filepath.Join(dir, "tools.hcl")
	require.NoError(t, os.WriteFile(catalogPath, []byte(copyCatalog), 0o644))

	cfg, err := app.NewConfig(app.Config{
		MediaRoot:    media,
		CatalogPaths: []string{catalogPath},
		LogFormat:    "text",
		LogLevel:     "debug",
		WorkerCount:  4,
	})
	require.NoError(t, err)

	logs := &testutil.SafeBuffer{}
	a, err := app.NewApp(context.Background(), logs, cfg, nil)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.ServeListener(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
		_ = a.Close()
	})

	return &harness{baseURL: "http://" + ln.Addr().String(), media: media, logs: logs}
}

// shared writes a file into the shared my_files area.
func (h *harness) shared(t *testing.T, name, content string) {
	t.Helper()
	p := filepath.Join(h.media, "my_files", name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

// output reads a file a tool produced.
func (h *harness) output(t *testing.T, workflow, label, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(h.media, "my_files", workflow, label, name))
	require.NoError(t, err)
	return string(b)
}

// do sends a request and decodes the JSON response into out.
func (h *harness) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, h.baseURL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type runResponse struct {
	Success bool     `json:"success"`
	RunID   string   `json:"run_id"`
	Error   string   `json:"error"`
	Log     []string `json:"log"`
}

func node(id, label string, params map[string]any) map[string]any {
	return map[string]any{"id": id, "data": map[string]any{"label": label, "parameters": params}}
}

func edge(source, target, param string) map[string]any {
	return map[string]any{"source": source, "target": target, "data": map[string]any{"param": param}}
}

// copyChain is file -> copy -> backup.
func copyChain() map[string]any {
	return map[string]any{
		"nodes": []any{
			node("F", "file", map[string]any{"filename": "reads.txt"}),
			node("C", "copy", map[string]any{"output": "copy.txt"}),
			node("B", "backup", map[string]any{"target": "final.txt"}),
		},
		"edges": []any{
			edge("F", "C", "input"),
			edge("C", "B", "source"),
		},
	}
}
