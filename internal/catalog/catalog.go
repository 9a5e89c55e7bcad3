// Package catalog is the registry of tool definitions a workflow can refer
// to by label. Definitions are loaded from HCL manifests (*.hcl) and from
// tools.json documents (*.json); the file pass-through pseudo-tool is always
// present.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/toolgrid/internal/workflow"
)

// FileTool is the definition of the file pass-through pseudo-tool.
var FileTool = workflow.ToolDef{
	Description: "An existing file used as input to downstream tools.",
	Options: []workflow.Option{
		{Label: workflow.FilenameParam, Type: workflow.TypeText},
	},
}

// Catalog maps tool identifiers to definitions. It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]workflow.ToolDef
}

// New creates a catalog holding only the file pseudo-tool.
func New() *Catalog {
	c := &Catalog{tools: make(map[string]workflow.ToolDef)}
	c.tools[workflow.FileLabel] = FileTool
	return c
}

// Add registers def under id after validating its options. A later
// definition of the same id replaces the earlier one.
func (c *Catalog) Add(id string, def workflow.ToolDef) error {
	if id == "" {
		return fmt.Errorf("tool identifier is required")
	}
	if id == workflow.FileLabel {
		return fmt.Errorf("tool identifier %q is reserved", id)
	}
	seen := make(map[string]struct{}, len(def.Options))
	for _, opt := range def.Options {
		if opt.Label == "" {
			return fmt.Errorf("tool %q: option without a label", id)
		}
		if _, dup := seen[opt.Label]; dup {
			return fmt.Errorf("tool %q: duplicate option %q", id, opt.Label)
		}
		seen[opt.Label] = struct{}{}
		if !opt.Type.Valid() {
			return fmt.Errorf("tool %q, option %q: unknown type %q", id, opt.Label, opt.Type)
		}
		if !opt.Role.Valid() {
			return fmt.Errorf("tool %q, option %q: unknown role %q", id, opt.Label, opt.Role)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tools[id] = def
	return nil
}

// Lookup returns the definition registered under id.
func (c *Catalog) Lookup(id string) (workflow.ToolDef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.tools[id]
	if !ok {
		return workflow.ToolDef{}, false
	}
	def.Options = append([]workflow.Option(nil), def.Options...)
	return def, true
}

// IDs returns every registered identifier, sorted.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.tools))
	for id := range c.tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns a copy of the catalog keyed by identifier.
func (c *Catalog) All() map[string]workflow.ToolDef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]workflow.ToolDef, len(c.tools))
	for id, def := range c.tools {
		def.Options = append([]workflow.Option(nil), def.Options...)
		out[id] = def
	}
	return out
}
