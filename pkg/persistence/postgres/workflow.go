package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
)

// WorkflowRepository stores workflow documents. The execution counter lives
// in its own column so RecordExecution can bump it atomically without
// rewriting the document.
type WorkflowRepository struct {
	db *sql.DB
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	data, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %s: %w", workflow.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflows (id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, workflow.ID, data, workflow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT data, execution_count, last_executed_at FROM workflows WHERE id = $1
	`, id)

	var (
		data           []byte
		executionCount int64
		lastExecutedAt sql.NullTime
	)

	err := row.Scan(&data, &executionCount, &lastExecutedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrWorkflowNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get workflow %s: %w", id, err)
	}

	workflow := &models.Workflow{}
	if err := json.Unmarshal(data, workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %s: %w", id, err)
	}

	workflow.ExecutionCount = executionCount
	if lastExecutedAt.Valid {
		at := lastExecutedAt.Time
		workflow.LastExecutedAt = &at
	}

	return workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data, execution_count, last_executed_at FROM workflows ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var workflows []*models.Workflow

	for rows.Next() {
		var (
			data           []byte
			executionCount int64
			lastExecutedAt sql.NullTime
		)

		if err := rows.Scan(&data, &executionCount, &lastExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workflow row: %w", err)
		}

		workflow := &models.Workflow{}
		if err := json.Unmarshal(data, workflow); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
		}

		workflow.ExecutionCount = executionCount
		if lastExecutedAt.Valid {
			at := lastExecutedAt.Time
			workflow.LastExecutedAt = &at
		}

		workflows = append(workflows, workflow)
	}

	return workflows, rows.Err()
}

func (r *WorkflowRepository) RecordExecution(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE workflows SET execution_count = execution_count + 1, last_executed_at = $2 WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("failed to record execution for workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}
