// Package postgres provides PostgreSQL persistence for workflows,
// executions and templates.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"

	"github.com/loomflow/loom/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of PostgreSQL.
// Workflow, execution and template documents are stored as JSONB with the
// columns needed for atomic counters and indexed lookups pulled out.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
	templateRepo  *TemplateRepository
}

// NewPersistence opens a connection, verifies it and runs migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Persistence{
		db:            db,
		logger:        logger.With("module", "postgres_persistence"),
		workflowRepo:  &WorkflowRepository{db: db},
		executionRepo: &ExecutionRepository{db: db},
		templateRepo:  &TemplateRepository{db: db},
	}

	if err := p.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return p, nil
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

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// migrate applies the idempotent schema.
func (p *Persistence) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			execution_count BIGINT NOT NULL DEFAULT 0,
			last_executed_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			data JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_workflow_id ON executions (workflow_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			data JSONB NOT NULL
		)`,
	}

	for _, statement := range statements {
		if _, err := p.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migration statement failed: %w", err)
		}
	}

	p.logger.DebugContext(ctx, "Migrations applied", "statements", len(statements))

	return nil
}
