// Package models defines the core domain models for node-based workflow automation.
package models

import (
	"slices"
	"time"
)

// NodeKind identifies the execution semantics of a node.
type NodeKind string

const (
	NodeKindTrigger     NodeKind = "trigger"
	NodeKindAction      NodeKind = "action"
	NodeKindCondition   NodeKind = "condition"
	NodeKindTransform   NodeKind = "transform"
	NodeKindIntegration NodeKind = "integration"
	NodeKindWebhook     NodeKind = "webhook"
	NodeKindTimer       NodeKind = "timer"
	NodeKindEmail       NodeKind = "email"
	NodeKindStorage     NodeKind = "storage"
	NodeKindAPICall     NodeKind = "apicall"
)

// NodeKinds lists every recognized node kind.
func NodeKinds() []NodeKind {
	return []NodeKind{
		NodeKindTrigger,
		NodeKindAction,
		NodeKindCondition,
		NodeKindTransform,
		NodeKindIntegration,
		NodeKindWebhook,
		NodeKindTimer,
		NodeKindEmail,
		NodeKindStorage,
		NodeKindAPICall,
	}
}

// IsValidNodeKind reports whether kind is part of the closed kind set.
func IsValidNodeKind(kind NodeKind) bool {
	return slices.Contains(NodeKinds(), kind)
}

// Position is a canvas coordinate. Presentation only; it carries no
// execution semantics.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Node is a single unit of work in a workflow graph.
//
// Inputs and Outputs mirror the workflow's connections: Inputs holds the ids
// of nodes with a connection targeting this node, Outputs the ids of nodes
// this node connects to. They are maintained by Workflow.Link and must never
// be mutated directly.
type Node struct {
	ID          string         `json:"id"          validate:"required"`
	Kind        NodeKind       `json:"kind"        validate:"required"`
	Name        string         `json:"name"        validate:"required,min=1"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
	Position    Position       `json:"position"`
	Inputs      []string       `json:"inputs"`
	Outputs     []string       `json:"outputs"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// addInput records an inbound neighbor, keeping the set free of duplicates.
func (n *Node) addInput(nodeID string) {
	if !slices.Contains(n.Inputs, nodeID) {
		n.Inputs = append(n.Inputs, nodeID)
	}
}

// addOutput records an outbound neighbor, keeping the set free of duplicates.
func (n *Node) addOutput(nodeID string) {
	if !slices.Contains(n.Outputs, nodeID) {
		n.Outputs = append(n.Outputs, nodeID)
	}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	clone := *n
	clone.Config = CopyMap(n.Config)
	clone.Inputs = slices.Clone(n.Inputs)
	clone.Outputs = slices.Clone(n.Outputs)

	return &clone
}

// NodeResult is the outcome of a single node execution.
type NodeResult struct {
	NodeID string         `json:"node_id"`
	Status NodeStatus     `json:"status"`
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// NodeStatus defines the possible states of a node execution.
type NodeStatus string

const (
	NodeStatusStarted   NodeStatus = "started"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusError     NodeStatus = "error"
)
