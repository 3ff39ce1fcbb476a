// Package registry maps node kinds to executor factories.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/protocol"
)

// Registry is a capability-indexed set of per-kind execution strategies.
// Kinds without a registered factory fall back to the default executor, so
// a workflow never fails just because a node kind carries no side effect.
type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeKind]protocol.ExecutorFactory
	fallback  protocol.ExecutorFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.NodeKind]protocol.ExecutorFactory),
	}
}

// Register binds a factory to its node kind, replacing any previous binding.
func (r *Registry) Register(factory protocol.ExecutorFactory) {
	r.factories[factory.Kind()] = factory
}

// SetFallback sets the factory used for unregistered kinds.
func (r *Registry) SetFallback(factory protocol.ExecutorFactory) {
	r.fallback = factory
}

// CreateExecutor builds an executor for the node's kind. Config parsing
// happens here, so missing required fields fail before execution starts.
func (r *Registry) CreateExecutor(node *models.Node) (protocol.NodeExecutor, error) {
	factory, ok := r.factories[node.Kind]
	if !ok {
		if r.fallback == nil {
			return nil, fmt.Errorf("node kind '%s' not registered and no fallback configured", node.Kind)
		}

		factory = r.fallback
	}

	executor, err := factory.Create(node)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor for node %s (%s): %w", node.ID, node.Kind, err)
	}

	return executor, nil
}

// Kinds returns the registered kinds.
func (r *Registry) Kinds() []models.NodeKind {
	kinds := make([]models.NodeKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}
