// Package email provides the email node executor. The actual transport is
// an injected dependency; this executor validates input and shapes results.
package email

import (
	"context"
	"fmt"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/protocol"
)

// Executor sends one email through the injected sender.
type Executor struct {
	nodeID string
	config models.EmailConfig
	sender protocol.EmailSender
}

// Factory creates email executors bound to a sender.
type Factory struct {
	sender protocol.EmailSender
}

// NewFactory creates an email executor factory. A nil sender is allowed;
// execution then fails with a node-level error instead of panicking.
func NewFactory(sender protocol.EmailSender) *Factory {
	return &Factory{sender: sender}
}

func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindEmail
}

// Create parses the node config, failing on missing to/subject/body.
func (f *Factory) Create(node *models.Node) (protocol.NodeExecutor, error) {
	config, err := models.ParseEmailConfig(node.Config)
	if err != nil {
		return nil, err
	}

	return &Executor{nodeID: node.ID, config: config, sender: f.sender}, nil
}

// Execute delivers the email and shapes the completed result.
func (e *Executor) Execute(ctx context.Context, _ *models.ExecutionContext) (models.NodeResult, error) {
	if e.sender == nil {
		return errorResult(e.nodeID, "no email sender configured"), nil
	}

	err := e.sender.Send(ctx, e.config.To, e.config.Subject, e.config.Body, e.config.From)
	if err != nil {
		return errorResult(e.nodeID, fmt.Sprintf("failed to send email: %v", err)), nil
	}

	return models.NodeResult{
		NodeID: e.nodeID,
		Status: models.NodeStatusCompleted,
		Output: map[string]any{
			"emailSent": true,
			"recipient": e.config.To,
			"subject":   e.config.Subject,
		},
	}, nil
}

func errorResult(nodeID, message string) models.NodeResult {
	return models.NodeResult{
		NodeID: nodeID,
		Status: models.NodeStatusError,
		Error:  message,
	}
}
