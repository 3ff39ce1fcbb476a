// Package transform provides the transform node executor.
package transform

import (
	"context"
	"strings"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/protocol"
)

// Executor applies a named transform to the execution context's input data.
// Unrecognized transform types pass data through unchanged.
type Executor struct {
	nodeID string
	config models.TransformConfig
}

// Factory creates transform executors.
type Factory struct{}

// NewFactory creates a transform executor factory.
func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindTransform
}

// Create builds a transform executor.
func (f *Factory) Create(node *models.Node) (protocol.NodeExecutor, error) {
	return &Executor{nodeID: node.ID, config: models.ParseTransformConfig(node.Config)}, nil
}

// Execute applies the transform to every string value of the input data.
func (e *Executor) Execute(_ context.Context, executionCtx *models.ExecutionContext) (models.NodeResult, error) {
	transformType := e.config.Type
	if transformType == "" {
		transformType = "passthrough"
	}

	transformed := make(map[string]any, len(executionCtx.InputData))
	for key, value := range executionCtx.InputData {
		transformed[key] = applyTransform(transformType, value)
	}

	return models.NodeResult{
		NodeID: e.nodeID,
		Status: models.NodeStatusCompleted,
		Output: map[string]any{
			"transformedData": transformed,
			"transformType":   transformType,
		},
	}, nil
}

func applyTransform(transformType string, value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}

	switch transformType {
	case "uppercase":
		return strings.ToUpper(str)
	case "lowercase":
		return strings.ToLower(str)
	default:
		return str
	}
}
