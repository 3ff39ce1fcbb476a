package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
)

// Materializer converts plans into stored workflows.
type Materializer struct {
	persistence persistence.Persistence
}

// NewMaterializer creates a new plan materializer.
func NewMaterializer(persistence persistence.Persistence) *Materializer {
	return &Materializer{
		persistence: persistence,
	}
}

// MaterializePlan creates a draft workflow from the plan: each node
// descriptor becomes a real node with a fresh id, and the edges are
// connected through a temp-id to real-id map. Edges referencing a temp id
// with no matching node descriptor fail with ErrUnknownTempID.
func (m *Materializer) MaterializePlan(ctx context.Context, p *Plan, createdBy string) (*models.Workflow, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("%w: plan name is required", ErrInvalidPlan)
	}

	if len(p.Nodes) == 0 {
		return nil, fmt.Errorf("%w: plan has no nodes", ErrInvalidPlan)
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   createdBy,
		Status:      models.WorkflowStatusDraft,
		Nodes:       []*models.Node{},
		Connections: []*models.Connection{},
		Variables:   models.CopyMap(p.Variables),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	realIDs := make(map[string]string, len(p.Nodes))

	for _, pn := range p.Nodes {
		kind := models.NodeKind(pn.Kind)
		if !models.IsValidNodeKind(kind) {
			return nil, fmt.Errorf("%w: node %s has unknown kind '%s'", ErrInvalidPlan, pn.TempID, pn.Kind)
		}

		node := &models.Node{
			ID:          uuid.New().String(),
			Kind:        kind,
			Name:        pn.Name,
			Description: pn.Description,
			Config:      models.CopyMap(pn.Config),
			Position:    pn.Position,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if node.Config == nil {
			node.Config = make(map[string]any)
		}

		realIDs[pn.TempID] = node.ID
		workflow.AttachNode(node)
	}

	for _, pc := range p.Connections {
		sourceID, ok := realIDs[pc.SourceTempID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTempID, pc.SourceTempID)
		}

		targetID, ok := realIDs[pc.TargetTempID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTempID, pc.TargetTempID)
		}

		workflow.Link(&models.Connection{
			ID:           uuid.New().String(),
			SourceNodeID: sourceID,
			TargetNodeID: targetID,
			SourceOutput: pc.SourceOutput,
			TargetInput:  pc.TargetInput,
		})
	}

	if err := m.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}
