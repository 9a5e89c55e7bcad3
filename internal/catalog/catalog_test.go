package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/toolgrid/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alignHCL = `
tool "align" {
  description = "Aligns reads."
  command     = "bwa mem"

  option "input" {
    type      = "file"
    mandatory = true
  }

  option "threads" {
    flag    = "-t"
    type    = "number"
    default = 4
  }

  option "output" {
    flag = "-o"
    role = "output"
  }
}
`

const toolsJSON = `{
  "sort": {
    "description": "Sorts alignments.",
    "install_command": "apt-get install samtools",
    "command": "samtools sort",
    "options": [
      {"label": "output", "flag": "-o", "type": "text", "mandatory": false},
      {"label": "in", "type": "file", "mandatory": true}
    ]
  }
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestNew_HasFileTool(t *testing.T) {
	c := New()
	def, ok := c.Lookup(workflow.FileLabel)
	require.True(t, ok)
	assert.Equal(t, []workflow.Option{{Label: "filename", Type: workflow.TypeText}}, def.Options)
	assert.Equal(t, []string{"file"}, c.IDs())
}

func TestLoad_HCLAndJSONFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tools/align.hcl", alignHCL)
	writeFile(t, dir, "tools.json", toolsJSON)
	writeFile(t, dir, "README.md", "ignored")

	c, err := Load(context.Background(), dir, filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, []string{"align", "file", "sort"}, c.IDs())

	align, ok := c.Lookup("align")
	require.True(t, ok)
	assert.Equal(t, "bwa mem", align.Command)
	assert.Equal(t, "Aligns reads.", align.Description)
	assert.Equal(t, []workflow.Option{
		{Label: "input", Type: workflow.TypeFile, Mandatory: true},
		{Label: "threads", Flag: "-t", Type: workflow.TypeNumber, Default: "4"},
		{Label: "output", Flag: "-o", Role: workflow.RoleOutput},
	}, align.Options)

	sortDef, ok := c.Lookup("sort")
	require.True(t, ok)
	assert.Equal(t, []string{"samtools", "sort"}, sortDef.CommandWords("sort"))
	require.Len(t, sortDef.Options, 2)
	assert.True(t, sortDef.Options[0].IsOutput())
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"bad hcl", "x.hcl", `tool "a" {`, "failed to parse HCL file"},
		{"unknown attribute", "x.hcl", `tool "a" { colour = "red" }`, "failed to decode HCL file"},
		{"bad type", "x.hcl", `tool "a" {
  option "o" {
    type = "blob"
  }
}`, `unknown type "blob"`},
		{"bad role", "x.hcl", `tool "a" {
  option "o" {
    role = "sink"
  }
}`, `unknown role "sink"`},
		{"list default", "x.hcl", `tool "a" {
  option "o" {
    default = [1]
  }
}`, "default must be"},
		{"duplicate option", "x.hcl", `tool "a" {
  option "o" {}
  option "o" {}
}`, `duplicate option "o"`},
		{"reserved id", "x.hcl", `tool "file" {}`, "reserved"},
		{"bad json", "tools.json", `{"a": [}`, "failed to decode catalog"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := writeFile(t, t.TempDir(), tc.file, tc.content)
			_, err := Load(context.Background(), p)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLookup_ReturnsCopy(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("t", workflow.ToolDef{Command: "t", Options: []workflow.Option{{Label: "a"}}}))

	def, _ := c.Lookup("t")
	def.Options[0].Label = "mutated"

	again, _ := c.Lookup("t")
	assert.Equal(t, "a", again.Options[0].Label)

	_, ok := c.Lookup("nope")
	assert.False(t, ok)
	assert.Len(t, c.All(), 2)
}
