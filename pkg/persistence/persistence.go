// Package persistence provides the data storage abstraction for workflows,
// executions and templates.
package persistence

import (
	"context"
	"time"

	"github.com/loomflow/loom/pkg/models"
)

// Persistence groups the repositories behind one connection-scoped handle.
type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	Templates() TemplateRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow records.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context) ([]*models.Workflow, error)

	// RecordExecution bumps the workflow's execution counter and last-run
	// timestamp in one atomic operation relative to concurrent callers.
	RecordExecution(ctx context.Context, id string, at time.Time) error
}

// ExecutionRepository stores execution records.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, id string) (*models.Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error)
}

// TemplateRepository stores workflow templates.
type TemplateRepository interface {
	Save(ctx context.Context, template *models.Template) error
	GetByID(ctx context.Context, id string) (*models.Template, error)
	List(ctx context.Context) ([]*models.Template, error)
}
