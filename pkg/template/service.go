// Package template converts workflows into reusable parameterized templates
// and materializes templates back into fresh workflows.
package template

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
)

var ErrTemplateNotFound = persistence.ErrTemplateNotFound

// Service handles template snapshot and materialization operations.
type Service struct {
	persistence persistence.Persistence
}

// NewService creates a new template service.
func NewService(persistence persistence.Persistence) *Service {
	return &Service{
		persistence: persistence,
	}
}

// CreateTemplateRequest carries the template metadata supplied alongside
// the source workflow.
type CreateTemplateRequest struct {
	Name            string   `json:"name" validate:"required,min=3"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	UseCases        []string `json:"use_cases"`
	DifficultyLevel string   `json:"difficulty_level"`
	Tags            []string `json:"tags"`
}

// CreateTemplateFromWorkflow snapshots a workflow's structure under
// workflow-local temporary ids. Setup time is estimated at two minutes per
// node plus one per connection.
func (s *Service) CreateTemplateFromWorkflow(ctx context.Context, workflowID string, req CreateTemplateRequest) (*models.Template, error) {
	workflow, err := s.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	tempIDs := make(map[string]string, len(workflow.Nodes))
	nodes := make([]models.TemplateNode, 0, len(workflow.Nodes))

	for i, node := range workflow.Nodes {
		tempID := fmt.Sprintf("n%d", i+1)
		tempIDs[node.ID] = tempID

		nodes = append(nodes, models.TemplateNode{
			TempID:      tempID,
			Kind:        node.Kind,
			Name:        node.Name,
			Description: node.Description,
			Config:      models.CopyMap(node.Config),
			Position:    node.Position,
		})
	}

	connections := make([]models.TemplateConnection, 0, len(workflow.Connections))

	for _, conn := range workflow.Connections {
		connections = append(connections, models.TemplateConnection{
			SourceTempID: tempIDs[conn.SourceNodeID],
			TargetTempID: tempIDs[conn.TargetNodeID],
			SourceOutput: conn.SourceOutput,
			TargetInput:  conn.TargetInput,
			Condition:    conn.Condition,
		})
	}

	template := &models.Template{
		ID:                    uuid.New().String(),
		Name:                  req.Name,
		Description:           req.Description,
		Category:              req.Category,
		UseCases:              req.UseCases,
		Nodes:                 nodes,
		Connections:           connections,
		Variables:             models.CopyMap(workflow.Variables),
		TriggerConfig:         models.CopyMap(workflow.TriggerConfig),
		EstimatedSetupMinutes: 2*len(nodes) + len(connections),
		DifficultyLevel:       req.DifficultyLevel,
		Tags:                  req.Tags,
		CreatedAt:             time.Now().UTC(),
	}

	if err := s.persistence.Templates().Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	return template, nil
}

// MaterializeTemplate creates a fresh draft workflow from a stored
// template. Every node and connection id is regenerated and the temporary
// endpoint references are remapped, so the result never collides with a
// live workflow.
func (s *Service) MaterializeTemplate(ctx context.Context, templateID, createdBy string) (*models.Workflow, error) {
	template, err := s.persistence.Templates().GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:            uuid.New().String(),
		Name:          template.Name,
		Description:   template.Description,
		CreatedBy:     createdBy,
		Status:        models.WorkflowStatusDraft,
		Nodes:         []*models.Node{},
		Connections:   []*models.Connection{},
		Variables:     models.CopyMap(template.Variables),
		TriggerConfig: models.CopyMap(template.TriggerConfig),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	realIDs := make(map[string]string, len(template.Nodes))

	for _, tn := range template.Nodes {
		node := &models.Node{
			ID:          uuid.New().String(),
			Kind:        tn.Kind,
			Name:        tn.Name,
			Description: tn.Description,
			Config:      models.CopyMap(tn.Config),
			Position:    tn.Position,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if node.Config == nil {
			node.Config = make(map[string]any)
		}

		realIDs[tn.TempID] = node.ID
		workflow.AttachNode(node)
	}

	for _, tc := range template.Connections {
		workflow.Link(&models.Connection{
			ID:           uuid.New().String(),
			SourceNodeID: realIDs[tc.SourceTempID],
			TargetNodeID: realIDs[tc.TargetTempID],
			SourceOutput: tc.SourceOutput,
			TargetInput:  tc.TargetInput,
			Condition:    tc.Condition,
		})
	}

	if err := s.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// FetchByID retrieves a template by its ID.
func (s *Service) FetchByID(ctx context.Context, id string) (*models.Template, error) {
	return s.persistence.Templates().GetByID(ctx, id)
}

// List retrieves all stored templates.
func (s *Service) List(ctx context.Context) ([]*models.Template, error) {
	return s.persistence.Templates().List(ctx)
}
