// Package storage provides the storage node executor. Query execution is
// delegated to an injected runner.
package storage

import (
	"context"
	"fmt"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/protocol"
)

// Executor runs one storage query through the injected runner.
type Executor struct {
	nodeID string
	config models.StorageConfig
	runner protocol.QueryRunner
}

// Factory creates storage executors bound to a query runner.
type Factory struct {
	runner protocol.QueryRunner
}

// NewFactory creates a storage executor factory.
func NewFactory(runner protocol.QueryRunner) *Factory {
	return &Factory{runner: runner}
}

func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindStorage
}

// Create parses the node config, failing on missing connection/query.
func (f *Factory) Create(node *models.Node) (protocol.NodeExecutor, error) {
	config, err := models.ParseStorageConfig(node.Config)
	if err != nil {
		return nil, err
	}

	return &Executor{nodeID: node.ID, config: config, runner: f.runner}, nil
}

// Execute runs the query and shapes the completed result.
func (e *Executor) Execute(ctx context.Context, _ *models.ExecutionContext) (models.NodeResult, error) {
	if e.runner == nil {
		return models.NodeResult{
			NodeID: e.nodeID,
			Status: models.NodeStatusError,
			Error:  "no query runner configured",
		}, nil
	}

	affectedRows, err := e.runner.Run(ctx, e.config.Connection, e.config.Query, e.config.Parameters)
	if err != nil {
		return models.NodeResult{
			NodeID: e.nodeID,
			Status: models.NodeStatusError,
			Error:  fmt.Sprintf("query failed: %v", err),
		}, nil
	}

	return models.NodeResult{
		NodeID: e.nodeID,
		Status: models.NodeStatusCompleted,
		Output: map[string]any{
			"queryExecuted": true,
			"connection":    e.config.Connection,
			"affectedRows":  affectedRows,
		},
	}, nil
}
