package workflow

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/execute_request.schema.json
var requestSchemaSource string

const requestSchemaURL = "execute_request.schema.json"

var requestSchema = jsonschema.MustCompileString(requestSchemaURL, requestSchemaSource)

// ParseRequest decodes and validates an execution request payload. Any
// failure is a *MalformedRequestError; no graph processing happens here.
func ParseRequest(body []byte) (*Request, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &MalformedRequestError{Msg: "empty request body"}
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &MalformedRequestError{Msg: "invalid JSON", Err: err}
	}
	if err := requestSchema.Validate(doc); err != nil {
		return nil, &MalformedRequestError{Msg: "request does not match schema", Err: err}
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &MalformedRequestError{Msg: "invalid request", Err: err}
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}
	return &req, nil
}

// normalize applies defaults and rejects workflow names that cannot be used
// as a single directory name.
func (r *Request) normalize() error {
	r.WorkflowName = strings.TrimSpace(r.WorkflowName)
	if r.WorkflowName == "" {
		r.WorkflowName = DefaultWorkflowName
	}
	if !ValidName(r.WorkflowName) {
		return &MalformedRequestError{Msg: "workflow_name must be a single path segment: " + r.WorkflowName}
	}
	for i := range r.Nodes {
		if r.Nodes[i].Data.Parameters == nil {
			r.Nodes[i].Data.Parameters = Parameters{}
		}
	}
	return nil
}

// ValidName reports whether s can be used as one directory name under the
// media root.
func ValidName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`) && !strings.ContainsRune(s, 0)
}
