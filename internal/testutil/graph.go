package testutil

import "github.com/specialistvlad/toolgrid/internal/workflow"

// ToolNode builds a tool node.
func ToolNode(id, label string, params workflow.Parameters, def workflow.ToolDef) workflow.Node {
	return workflow.Node{ID: id, Data: workflow.NodeData{Label: label, Parameters: params, ToolDef: def}}
}

// FileNode builds a file pass-through node.
func FileNode(id, filename string) workflow.Node {
	return workflow.Node{ID: id, Data: workflow.NodeData{
		Label:      workflow.FileLabel,
		Parameters: workflow.Parameters{workflow.FilenameParam: filename},
	}}
}

// Edge builds an edge feeding the target option param.
func Edge(source, target, param string) workflow.Edge {
	return workflow.Edge{ID: source + "->" + target + ":" + param, Source: source, Target: target, Data: workflow.EdgeData{Param: param}}
}

// AlignTool is a tool with a mandatory file input and an -o output.
func AlignTool() workflow.ToolDef {
	return workflow.ToolDef{
		Command: "align",
		Options: []workflow.Option{
			{Label: "input", Type: workflow.TypeFile, Mandatory: true},
			{Label: "output", Flag: "-o", Type: workflow.TypeText},
		},
	}
}

// SortTool is a tool with an -o output followed by a mandatory positional input.
func SortTool() workflow.ToolDef {
	return workflow.ToolDef{
		Command: "sort",
		Options: []workflow.Option{
			{Label: "output", Flag: "-o", Type: workflow.TypeText},
			{Label: "in", Type: workflow.TypeFile, Mandatory: true},
		},
	}
}
