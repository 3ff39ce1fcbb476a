// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/google/uuid"
	"github.com/loomflow/loom/pkg/models"
)

// CreateTestNode creates a test node with default values that can be
// overridden.
func CreateTestNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:       uuid.New().String(),
		Kind:     models.NodeKindAction,
		Name:     "Test Node",
		Config:   map[string]any{},
		Position: models.Position{X: 100, Y: 200},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node id.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithKind sets the node kind.
func WithKind(kind models.NodeKind) func(*models.Node) {
	return func(n *models.Node) {
		n.Kind = kind
	}
}

// WithName sets the node name.
func WithName(name string) func(*models.Node) {
	return func(n *models.Node) {
		n.Name = name
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// CreateTestWorkflow creates an active workflow with default values that
// can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        "Test Workflow",
		Description: "Workflow used in tests",
		CreatedBy:   "tester",
		Status:      models.WorkflowStatusActive,
		Variables:   map[string]any{},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithVariables sets the workflow variables.
func WithVariables(variables map[string]any) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Variables = variables
	}
}

// WithNodes attaches the given nodes.
func WithNodes(nodes ...*models.Node) func(*models.Workflow) {
	return func(w *models.Workflow) {
		for _, node := range nodes {
			w.AttachNode(node)
		}
	}
}

// WithChain links the given node ids in sequence over default ports.
func WithChain(nodeIDs ...string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		for i := 0; i+1 < len(nodeIDs); i++ {
			w.Link(&models.Connection{
				ID:           uuid.New().String(),
				SourceNodeID: nodeIDs[i],
				TargetNodeID: nodeIDs[i+1],
			})
		}
	}
}

// WithConnection links two node ids over default ports.
func WithConnection(sourceID, targetID string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Link(&models.Connection{
			ID:           uuid.New().String(),
			SourceNodeID: sourceID,
			TargetNodeID: targetID,
		})
	}
}
