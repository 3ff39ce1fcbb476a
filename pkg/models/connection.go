package models

// DefaultPort is the port name used when a node has a single logical
// input or output.
const DefaultPort = "default"

// Connection is a directed edge between two nodes in the same workflow.
type Connection struct {
	ID           string `json:"id"             validate:"required"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	SourceOutput string `json:"source_output"`
	TargetInput  string `json:"target_input"`

	// Condition is an optional predicate evaluated at execution time to
	// decide whether the edge is live for a given run.
	Condition string `json:"condition,omitempty"`
}

// Clone returns a copy of the connection.
func (c *Connection) Clone() *Connection {
	clone := *c

	return &clone
}
