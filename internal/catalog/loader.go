package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/workflow"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// fileRoot decodes the top-level blocks of a manifest.
type fileRoot struct {
	Tools  []*toolBlock `hcl:"tool,block"`
	Remain hcl.Body     `hcl:",remain"`
}

type toolBlock struct {
	ID          string         `hcl:"id,label"`
	Description string         `hcl:"description,optional"`
	Command     string         `hcl:"command,optional"`
	Options     []*optionBlock `hcl:"option,block"`
}

type optionBlock struct {
	Label     string         `hcl:"label,label"`
	Flag      string         `hcl:"flag,optional"`
	Type      string         `hcl:"type,optional"`
	Mandatory bool           `hcl:"mandatory,optional"`
	Role      string         `hcl:"role,optional"`
	Default   hcl.Expression `hcl:"default,optional"`
}

// jsonTool is one entry of a tools.json document.
type jsonTool struct {
	Description    string            `json:"description"`
	InstallCommand string            `json:"install_command,omitempty"`
	Command        string            `json:"command"`
	Options        []workflow.Option `json:"options"`
}

// Load builds a catalog from the given files and directories. Directories
// are walked for *.hcl and *.json files; paths that do not exist are ignored.
func Load(ctx context.Context, paths ...string) (*Catalog, error) {
	logger := ctxlog.FromContext(ctx)
	c := New()

	files, err := findCatalogFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered catalog files.", "count", len(files))

	parser := hclparse.NewParser()
	for _, file := range files {
		switch filepath.Ext(file) {
		case ".hcl":
			err = c.loadHCL(parser, file)
		case ".json":
			err = c.loadJSON(file)
		}
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Catalog loading complete.", "tools", len(c.tools))
	return c, nil
}

func (c *Catalog) loadHCL(parser *hclparse.Parser, file string) error {
	hclFile, diags := parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	for _, t := range root.Tools {
		def := workflow.ToolDef{Description: t.Description, Command: t.Command}
		for _, o := range t.Options {
			dflt, err := defaultString(o.Default)
			if err != nil {
				return fmt.Errorf("in %s, tool '%s', option '%s': %w", file, t.ID, o.Label, err)
			}
			def.Options = append(def.Options, workflow.Option{
				Label:     o.Label,
				Flag:      o.Flag,
				Type:      workflow.OptionType(o.Type),
				Mandatory: o.Mandatory,
				Role:      workflow.Role(o.Role),
				Default:   dflt,
			})
		}
		if err := c.Add(t.ID, def); err != nil {
			return fmt.Errorf("in %s: %w", file, err)
		}
	}
	return nil
}

// defaultString evaluates a default expression to its string form. Absent
// and null defaults are empty.
func defaultString(expr hcl.Expression) (string, error) {
	if expr == nil {
		return "", nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", fmt.Errorf("invalid default value: %w", diags)
	}
	if val.IsNull() {
		return "", nil
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("default must be a string, number or bool: %w", err)
	}
	return str.AsString(), nil
}

func (c *Catalog) loadJSON(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read catalog %s: %w", file, err)
	}
	var doc map[string]jsonTool
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode catalog %s: %w", file, err)
	}
	for id, t := range doc {
		def := workflow.ToolDef{Description: t.Description, Command: t.Command, Options: t.Options}
		if err := c.Add(id, def); err != nil {
			return fmt.Errorf("in %s: %w", file, err)
		}
	}
	return nil
}

// findCatalogFiles walks all given paths and returns a flat, de-duplicated
// list of manifest files.
func findCatalogFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if isCatalogFile(path) {
				add(path)
			}
			continue
		}
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && isCatalogFile(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return allFiles, nil
}

func isCatalogFile(p string) bool {
	ext := filepath.Ext(p)
	return ext == ".hcl" || ext == ".json"
}
