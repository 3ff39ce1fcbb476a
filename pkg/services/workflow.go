package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loomflow/loom/pkg/graph"
	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow handles workflow authoring business operations.
type Workflow struct {
	persistence persistence.Persistence
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence) *Workflow {
	return &Workflow{
		persistence: persistence,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateWorkflowRequest contains the fields for creating a workflow.
type CreateWorkflowRequest struct {
	Name          string         `json:"name"           validate:"required,min=3"`
	Description   string         `json:"description"`
	CreatedBy     string         `json:"created_by"`
	Variables     map[string]any `json:"variables"`
	TriggerConfig map[string]any `json:"trigger_config"`
}

// Create adds a new workflow in draft status.
func (w *Workflow) Create(ctx context.Context, req CreateWorkflowRequest) (*models.Workflow, error) {
	if req.Name == "" {
		return nil, NewValidationError("Create", "WORKFLOW_NAME_REQUIRED", "workflow name is required", ErrWorkflowNameRequired)
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Description:   req.Description,
		CreatedBy:     req.CreatedBy,
		Status:        models.WorkflowStatusDraft,
		Nodes:         []*models.Node{},
		Connections:   []*models.Connection{},
		Variables:     models.CopyMap(req.Variables),
		TriggerConfig: models.CopyMap(req.TriggerConfig),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// List retrieves all stored workflows.
func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.Workflows().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// AddNodeRequest contains the fields for adding a node to a workflow.
type AddNodeRequest struct {
	Kind        string          `json:"kind" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Config      map[string]any  `json:"config"`
	Position    models.Position `json:"position"`
}

// AddNode appends a new node to the workflow and returns it with its
// generated id.
func (w *Workflow) AddNode(ctx context.Context, workflowID string, req AddNodeRequest) (*models.Node, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	kind := models.NodeKind(req.Kind)
	if !models.IsValidNodeKind(kind) {
		return nil, NewValidationError("AddNode", "INVALID_NODE_KIND",
			fmt.Sprintf("invalid node kind '%s'", req.Kind), ErrInvalidNodeKind)
	}

	now := time.Now().UTC()
	node := &models.Node{
		ID:          uuid.New().String(),
		Kind:        kind,
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
		Position:    req.Position,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if node.Config == nil {
		node.Config = make(map[string]any)
	}

	workflow.AttachNode(node)
	workflow.UpdatedAt = now

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return node, nil
}

// ConnectRequest contains the fields for connecting two workflow nodes.
type ConnectRequest struct {
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	SourceOutput string `json:"source_output"`
	TargetInput  string `json:"target_input"`
	Condition    string `json:"condition"`
}

// Connect links two existing nodes and returns the new connection. Both
// endpoints must already belong to the workflow.
func (w *Workflow) Connect(ctx context.Context, workflowID string, req ConnectRequest) (*models.Connection, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if _, ok := workflow.NodeByID(req.SourceNodeID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, req.SourceNodeID)
	}

	if _, ok := workflow.NodeByID(req.TargetNodeID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, req.TargetNodeID)
	}

	conn := &models.Connection{
		ID:           uuid.New().String(),
		SourceNodeID: req.SourceNodeID,
		TargetNodeID: req.TargetNodeID,
		SourceOutput: req.SourceOutput,
		TargetInput:  req.TargetInput,
		Condition:    req.Condition,
	}

	workflow.Link(conn)
	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return conn, nil
}

// UpdateConfig applies the recognized top-level workflow fields (status,
// variables, trigger_config, name, description) from the given updates.
// Unknown fields are ignored, not errors.
func (w *Workflow) UpdateConfig(ctx context.Context, workflowID string, updates map[string]any) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if raw, ok := updates["status"]; ok {
		status, ok := raw.(string)
		if !ok || !isValidWorkflowStatus(models.WorkflowStatus(status)) {
			return nil, NewValidationError("UpdateConfig", "INVALID_STATUS",
				fmt.Sprintf("invalid status '%v'", raw), ErrInvalidStatus)
		}

		workflow.Status = models.WorkflowStatus(status)
	}

	if raw, ok := updates["name"]; ok {
		if name, ok := raw.(string); ok && name != "" {
			workflow.Name = name
		}
	}

	if raw, ok := updates["description"]; ok {
		if description, ok := raw.(string); ok {
			workflow.Description = description
		}
	}

	if raw, ok := updates["variables"]; ok {
		if variables, ok := raw.(map[string]any); ok {
			workflow.Variables = models.CopyMap(variables)
		}
	}

	if raw, ok := updates["trigger_config"]; ok {
		if triggerConfig, ok := raw.(map[string]any); ok {
			workflow.TriggerConfig = models.CopyMap(triggerConfig)
		}
	}

	workflow.UpdatedAt = time.Now().UTC()

	if err := w.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Validate runs graph validation against the stored workflow.
func (w *Workflow) Validate(ctx context.Context, workflowID string) (*graph.ValidationResult, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	result := graph.Validate(workflow)

	return &result, nil
}

func isValidWorkflowStatus(status models.WorkflowStatus) bool {
	for _, s := range models.WorkflowStatuses() {
		if s == status {
			return true
		}
	}

	return false
}
