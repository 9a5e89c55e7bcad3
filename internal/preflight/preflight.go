// Package preflight checks a validated workflow before any process is
// spawned, so a missing required input late in the pipeline never leaves
// partial side effects from the nodes ahead of it.
package preflight

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/toolgrid/internal/ctxlog"
	"github.com/specialistvlad/toolgrid/internal/workflow"
	"github.com/zclconf/go-cty/cty"
)

// Check walks the ordered nodes and verifies that every mandatory option is
// satisfied by a non-blank literal value or an incoming edge. File nodes are
// data, not invocations, and are skipped.
//
// Literal values of number options that do not parse as numbers are not
// fatal; they come back as warning lines for the execution log.
func Check(ctx context.Context, order []string, ix *workflow.Index) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	var warnings []string

	for _, id := range order {
		n, ok := ix.Node(id)
		if !ok {
			return warnings, fmt.Errorf("node %q is in the execution order but not in the graph", id)
		}
		if n.IsFile() {
			continue
		}

		for _, opt := range n.Data.ToolDef.Options {
			literal := n.Param(opt.Label)
			bound := ix.Bound(id, opt.Label)

			if opt.Mandatory && strings.TrimSpace(literal) == "" && !bound {
				logger.Debug("Mandatory option unsatisfied.", "node", id, "tool", n.Label(), "option", opt.Label)
				return warnings, &workflow.MissingMandatoryInputError{Tool: n.Label(), Option: opt.Label}
			}

			if opt.Type == workflow.TypeNumber && !bound && strings.TrimSpace(literal) != "" {
				if _, err := cty.ParseNumberVal(strings.TrimSpace(literal)); err != nil {
					warnings = append(warnings, fmt.Sprintf(
						"[WARN] Parameter '%s' for tool '%s' is not a number: %q", opt.Label, n.Label(), literal))
				}
			}
		}
	}
	return warnings, nil
}
