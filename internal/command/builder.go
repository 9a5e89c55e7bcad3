// Package command translates a node's resolved parameters and tool
// definition into an argument vector. Commands are never passed through a
// shell.
package command

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/workflow"
)

// DefaultOutputName replaces an output name that sanitizes to nothing.
const DefaultOutputName = "output"

// Files is the subset of file storage the builder needs.
type Files interface {
	EnsureDir(dir string) error
	Exists(path string) bool
}

// Command is a built invocation of one node.
type Command struct {
	Argv []string
	// Dir is the working directory of the process.
	Dir string
	// Values holds the effective value of each option that made it onto the
	// command line. Outputs are recorded by basename only.
	Values map[string]string
	// Outputs maps output option labels to the absolute paths handed to the tool.
	Outputs map[string]string
	// Warnings are log lines for options that were skipped.
	Warnings []string
}

// Line renders the argument vector for the execution log.
func (c *Command) Line() string {
	return strings.Join(c.Argv, " ")
}

// Builder builds commands. One Builder serves one run.
type Builder struct {
	files Files
	names *Reserver
}

// New creates a Builder whose output names are unique across the run.
func New(files Files, names *Reserver) *Builder {
	if names == nil {
		names = NewReserver()
	}
	return &Builder{files: files, names: names}
}

// Build walks the tool's options in declared order. Each option takes the
// value resolved from an incoming edge, else the literal parameter, else the
// catalog default; an option with none of these is skipped with a warning.
func (b *Builder) Build(ctx context.Context, n *workflow.Node, resolved map[string]string, outputDir string) (*Command, error) {
	logger := ctxlog.FromContext(ctx).With("node", n.ID)
	def := n.Data.ToolDef

	cmd := &Command{
		Argv:    append([]string(nil), def.CommandWords(n.Label())...),
		Dir:     outputDir,
		Values:  make(map[string]string),
		Outputs: make(map[string]string),
	}

	for _, opt := range def.Options {
		val := resolved[opt.Label]
		if val == "" {
			val = n.Param(opt.Label)
		}
		if val == "" {
			val = opt.Default
		}
		if val == "" {
			cmd.Warnings = append(cmd.Warnings, fmt.Sprintf("[WARN] Missing parameter '%s' for tool '%s'", opt.Label, n.Label()))
			continue
		}

		switch {
		case opt.IsOutput():
			name, path, err := b.output(outputDir, val)
			if err != nil {
				return nil, err
			}
			logger.Debug("Generated output path.", "option", opt.Label, "path", path)
			cmd.Argv = appendArg(cmd.Argv, opt.Flag, path)
			cmd.Values[opt.Label] = name
			cmd.Outputs[opt.Label] = path
		case opt.Role == workflow.RoleFlag:
			on, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				cmd.Warnings = append(cmd.Warnings, fmt.Sprintf("[WARN] Flag '%s' for tool '%s' is not a boolean: %q", opt.Label, n.Label(), val))
				continue
			}
			cmd.Values[opt.Label] = strconv.FormatBool(on)
			if on && opt.Flag != "" {
				cmd.Argv = append(cmd.Argv, opt.Flag)
			}
		default:
			cmd.Argv = appendArg(cmd.Argv, opt.Flag, val)
			cmd.Values[opt.Label] = val
		}
	}
	return cmd, nil
}

// output turns a user-supplied output value into a collision-free path
// inside dir and creates what the tool needs to exist before it runs.
func (b *Builder) output(dir, val string) (name, path string, err error) {
	base := filepath.Base(val)

	if hasExtension(base) {
		name = sanitizeFile(base)
		if name == "" {
			name = DefaultOutputName
		}
		name = b.unique(dir, name)
		path = filepath.Join(dir, name)
		err = b.files.EnsureDir(filepath.Dir(path))
		return name, path, err
	}

	name = sanitizeDir(base)
	if name == "" {
		name = DefaultOutputName
	}
	name = b.unique(dir, name)
	path = filepath.Join(dir, name)
	err = b.files.EnsureDir(path)
	return name, path, err
}

// unique returns name, or name with _1, _2, ... inserted before the
// extension, whichever first neither exists in dir nor was handed out
// earlier in the run.
func (b *Builder) unique(dir, name string) string {
	base, ext := splitExt(name)
	candidate := name
	for i := 1; ; i++ {
		path := filepath.Join(dir, candidate)
		if !b.files.Exists(path) && b.names.Reserve(path) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
}

func appendArg(argv []string, flag, value string) []string {
	if flag != "" {
		return append(argv, flag, value)
	}
	return append(argv, value)
}
