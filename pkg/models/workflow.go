package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft   WorkflowStatus = "draft"   // Editable, not executable
	WorkflowStatusActive  WorkflowStatus = "active"  // Executable
	WorkflowStatusPaused  WorkflowStatus = "paused"  // Temporarily not executable
	WorkflowStatusStopped WorkflowStatus = "stopped" // Retired
	WorkflowStatusError   WorkflowStatus = "error"   // Flagged broken by an operator
)

// WorkflowStatuses lists every recognized workflow status.
func WorkflowStatuses() []WorkflowStatus {
	return []WorkflowStatus{
		WorkflowStatusDraft,
		WorkflowStatusActive,
		WorkflowStatusPaused,
		WorkflowStatusStopped,
		WorkflowStatusError,
	}
}

// Workflow is the authored artifact: a graph of nodes and connections plus
// trigger and variable configuration.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	CreatedBy   string         `json:"created_by"`
	Status      WorkflowStatus `json:"status"      validate:"required"`
	Nodes       []*Node        `json:"nodes"`
	Connections []*Connection  `json:"connections"`

	// TriggerConfig describes how runs are initiated (manual, schedule,
	// queue, webhook). It is interpreted by trigger dispatchers, never by
	// the execution engine itself.
	TriggerConfig map[string]any `json:"trigger_config,omitempty"`

	// Variables are the initial bindings copied into every run's
	// execution context.
	Variables map[string]any `json:"variables,omitempty"`

	ExecutionCount int64      `json:"execution_count"`
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NodeByID returns the node with the given id, if present.
func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node, true
		}
	}

	return nil, false
}

// AttachNode appends a node to the workflow.
func (w *Workflow) AttachNode(node *Node) {
	w.Nodes = append(w.Nodes, node)
}

// Link appends a connection and updates both endpoints' input/output
// mirrors. The caller must have checked that both endpoints exist.
func (w *Workflow) Link(conn *Connection) {
	if conn.SourceOutput == "" {
		conn.SourceOutput = DefaultPort
	}

	if conn.TargetInput == "" {
		conn.TargetInput = DefaultPort
	}

	w.Connections = append(w.Connections, conn)

	if source, ok := w.NodeByID(conn.SourceNodeID); ok {
		source.addOutput(conn.TargetNodeID)
	}

	if target, ok := w.NodeByID(conn.TargetNodeID); ok {
		target.addInput(conn.SourceNodeID)
	}
}

// Clone returns a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	clone := *w

	clone.Nodes = make([]*Node, len(w.Nodes))
	for i, node := range w.Nodes {
		clone.Nodes[i] = node.Clone()
	}

	clone.Connections = make([]*Connection, len(w.Connections))
	for i, conn := range w.Connections {
		clone.Connections[i] = conn.Clone()
	}

	clone.TriggerConfig = CopyMap(w.TriggerConfig)
	clone.Variables = CopyMap(w.Variables)

	if w.LastExecutedAt != nil {
		at := *w.LastExecutedAt
		clone.LastExecutedAt = &at
	}

	return &clone
}

// CopyMap creates a copy of a map[string]any. Values are copied shallowly.
func CopyMap(original map[string]any) map[string]any {
	if original == nil {
		return nil
	}

	result := make(map[string]any, len(original))
	for k, v := range original {
		result[k] = v
	}

	return result
}
