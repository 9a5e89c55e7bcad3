// Package notify publishes run events to interested observers, such as the
// workflow editor showing a run's progress live.
package notify

import "context"

// Event names.
const (
	EventRunStarted  = "run_started"
	EventRunLog      = "run_log"
	EventRunFinished = "run_finished"
)

// RunStarted is published once a run has passed validation.
type RunStarted struct {
	RunID    string   `json:"run_id"`
	Workflow string   `json:"workflow"`
	Order    []string `json:"order"`
}

// RunLog carries one execution log line as it is produced.
type RunLog struct {
	RunID string `json:"run_id"`
	Node  string `json:"node,omitempty"`
	Line  string `json:"line"`
}

// RunFinished is published when a run reaches a terminal state.
type RunFinished struct {
	RunID    string `json:"run_id"`
	Workflow string `json:"workflow"`
	State    string `json:"state"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// Notifier publishes events. Publishing never fails a run, so
// implementations report delivery problems through their own logging.
type Notifier interface {
	Publish(ctx context.Context, event string, payload any)
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) {}

func (Nop) Close() error { return nil }
