// Package noop provides the fallback executor for node kinds that carry no
// side effect of their own (trigger, action, integration, webhook, timer).
package noop

import (
	"context"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/protocol"
)

// Executor completes immediately without side effects.
type Executor struct {
	nodeID string
	kind   models.NodeKind
}

// Factory creates noop executors for any kind.
type Factory struct{}

// NewFactory creates the fallback factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Kind returns the action kind; the factory is normally installed as the
// registry fallback and serves every unregistered kind.
func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindAction
}

// Create builds a noop executor for the node.
func (f *Factory) Create(node *models.Node) (protocol.NodeExecutor, error) {
	return &Executor{nodeID: node.ID, kind: node.Kind}, nil
}

// Execute returns a completed result without doing anything.
func (e *Executor) Execute(_ context.Context, _ *models.ExecutionContext) (models.NodeResult, error) {
	return models.NodeResult{
		NodeID: e.nodeID,
		Status: models.NodeStatusCompleted,
		Output: map[string]any{
			"output": "Node executed successfully",
			"kind":   string(e.kind),
		},
	}, nil
}
