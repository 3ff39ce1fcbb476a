package models

import "time"

// ExecutionStatus represents the lifecycle state of one workflow run.
type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted ||
		s == ExecutionStatusFailed ||
		s == ExecutionStatusCancelled
}

// ExecutionLogEntry is one step event in an execution's append-only log.
type ExecutionLogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	NodeID    string         `json:"node_id"`
	NodeName  string         `json:"node_name"`
	Status    NodeStatus     `json:"status"`
	Output    map[string]any `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Execution is one timed, logged run of a workflow. It is owned exclusively
// by the execution engine while running and becomes immutable once it
// reaches a terminal status.
type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	TriggeredBy string          `json:"triggered_by"`
	InputData   map[string]any  `json:"input_data,omitempty"`

	// OutputData holds the final per-node outputs, keyed by node id. Set
	// only on a Completed transition; a failed or cancelled run keeps its
	// partial record in Log.
	OutputData map[string]any `json:"output_data,omitempty"`

	Log          []ExecutionLogEntry `json:"execution_log"`
	ErrorMessage string              `json:"error_message,omitempty"`
}

// AppendLog adds a step event to the execution log.
func (e *Execution) AppendLog(entry ExecutionLogEntry) {
	e.Log = append(e.Log, entry)
}

// Clone returns a deep copy of the execution.
func (e *Execution) Clone() *Execution {
	clone := *e
	clone.InputData = CopyMap(e.InputData)
	clone.OutputData = CopyMap(e.OutputData)

	clone.Log = make([]ExecutionLogEntry, len(e.Log))
	copy(clone.Log, e.Log)

	if e.CompletedAt != nil {
		at := *e.CompletedAt
		clone.CompletedAt = &at
	}

	return &clone
}

// ExecutionContext is the mutable per-run state threaded through node
// execution: the workflow variables snapshot, the caller's input data and
// the accumulated node outputs.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Variables   map[string]any `json:"variables,omitempty"`
	InputData   map[string]any `json:"input_data,omitempty"`
	NodeOutputs map[string]any `json:"node_outputs,omitempty"`
}

// NewExecutionContext seeds a context with copies of the workflow variables
// and the caller's input data, so concurrent executions never share state.
func NewExecutionContext(executionID string, workflow *Workflow, inputData map[string]any) *ExecutionContext {
	return &ExecutionContext{
		ExecutionID: executionID,
		WorkflowID:  workflow.ID,
		Variables:   CopyMap(workflow.Variables),
		InputData:   CopyMap(inputData),
		NodeOutputs: make(map[string]any),
	}
}
