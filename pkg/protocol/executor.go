// Package protocol defines the interfaces and contracts for pluggable node executors.
package protocol

import (
	"context"

	"github.com/loomflow/loom/pkg/models"
)

// NodeExecutor runs one node against an execution context and returns a
// shaped result. Executors must report node-level failures through the
// result's error status rather than aborting the run; a returned error is
// treated the same way by the engine but never propagates to the caller of
// Execute.
type NodeExecutor interface {
	Execute(ctx context.Context, executionCtx *models.ExecutionContext) (models.NodeResult, error)
}

// ExecutorFactory creates executor instances for one node kind from the
// node's untyped config. Create fails when the config is missing required
// fields, which surfaces before any node side effect happens.
type ExecutorFactory interface {
	Kind() models.NodeKind
	Create(node *models.Node) (NodeExecutor, error)
}
