// Package memory provides an in-memory persistence implementation for
// development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
)

// Persistence implements persistence.Persistence with mutex-guarded maps.
// Records are deep-copied on the way in and out, so callers never share
// mutable state with the store.
type Persistence struct {
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	templateRepo  *TemplateRepository
}

// NewPersistence creates an empty in-memory store.
func NewPersistence() *Persistence {
	return &Persistence{
		workflowRepo:  &WorkflowRepository{workflows: make(map[string]*models.Workflow)},
		executionRepo: &ExecutionRepository{executions: make(map[string]*models.Execution)},
		templateRepo:  &TemplateRepository{templates: make(map[string]*models.Template)},
	}
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) Executions() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) Templates() persistence.TemplateRepository {
	return p.templateRepo
}

// HealthCheck always succeeds for the in-memory store.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// WorkflowRepository stores workflows in a map.
type WorkflowRepository struct {
	mu        sync.RWMutex
	workflows map[string]*models.Workflow
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.workflows[workflow.ID] = workflow.Clone()

	return nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow, ok := r.workflows[id]
	if !ok {
		return nil, persistence.ErrWorkflowNotFound
	}

	return workflow.Clone(), nil
}

func (r *WorkflowRepository) List(_ context.Context) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(r.workflows))
	for _, workflow := range r.workflows {
		workflows = append(workflows, workflow.Clone())
	}

	slices.SortFunc(workflows, func(a, b *models.Workflow) int {
		return strings.Compare(a.ID, b.ID)
	})

	return workflows, nil
}

func (r *WorkflowRepository) RecordExecution(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, ok := r.workflows[id]
	if !ok {
		return persistence.ErrWorkflowNotFound
	}

	workflow.ExecutionCount++
	workflow.LastExecutedAt = &at

	return nil
}

// ExecutionRepository stores executions in a map.
type ExecutionRepository struct {
	mu         sync.RWMutex
	executions map[string]*models.Execution
}

func (r *ExecutionRepository) Save(_ context.Context, execution *models.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.executions[execution.ID] = execution.Clone()

	return nil
}

func (r *ExecutionRepository) GetByID(_ context.Context, id string) (*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	execution, ok := r.executions[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	return execution.Clone(), nil
}

func (r *ExecutionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var executions []*models.Execution

	for _, execution := range r.executions {
		if execution.WorkflowID == workflowID {
			executions = append(executions, execution.Clone())
		}
	}

	slices.SortFunc(executions, func(a, b *models.Execution) int {
		return a.StartedAt.Compare(b.StartedAt)
	})

	return executions, nil
}

// TemplateRepository stores templates in a map.
type TemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]*models.Template
}

func (r *TemplateRepository) Save(_ context.Context, template *models.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.templates[template.ID] = template.Clone()

	return nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	template, ok := r.templates[id]
	if !ok {
		return nil, persistence.ErrTemplateNotFound
	}

	return template.Clone(), nil
}

func (r *TemplateRepository) List(_ context.Context) ([]*models.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	templates := make([]*models.Template, 0, len(r.templates))

	for _, template := range r.templates {
		templates = append(templates, template.Clone())
	}

	slices.SortFunc(templates, func(a, b *models.Template) int {
		return strings.Compare(a.ID, b.ID)
	})

	return templates, nil
}
