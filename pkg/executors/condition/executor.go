// Package condition provides the condition node executor.
package condition

import (
	"context"
	"fmt"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/protocol"
)

// Executor evaluates the configured boolean expression against the
// execution context.
type Executor struct {
	nodeID string
	config models.ConditionConfig
}

// Factory creates condition executors.
type Factory struct{}

// NewFactory creates a condition executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindCondition
}

// Create builds a condition executor. An absent expression is allowed and
// evaluates to true.
func (f *Factory) Create(node *models.Node) (protocol.NodeExecutor, error) {
	return &Executor{nodeID: node.ID, config: models.ParseConditionConfig(node.Config)}, nil
}

// Execute evaluates the expression and shapes the result. Evaluation
// failures are node-level errors.
func (e *Executor) Execute(_ context.Context, executionCtx *models.ExecutionContext) (models.NodeResult, error) {
	result, err := models.EvaluateCondition(e.config.Expression, executionCtx)
	if err != nil {
		return models.NodeResult{
			NodeID: e.nodeID,
			Status: models.NodeStatusError,
			Error:  fmt.Sprintf("condition evaluation failed: %v", err),
		}, nil
	}

	return models.NodeResult{
		NodeID: e.nodeID,
		Status: models.NodeStatusCompleted,
		Output: map[string]any{
			"conditionResult": result,
			"condition":       e.config.Expression,
		},
	}, nil
}
