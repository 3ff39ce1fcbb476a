package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
)

// ExecutionRepository stores execution documents.
type ExecutionRepository struct {
	db *sql.DB
}

func (r *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	data, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution %s: %w", execution.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO executions (id, workflow_id, status, started_at, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, data = EXCLUDED.data
	`, execution.ID, execution.WorkflowID, string(execution.Status), execution.StartedAt, data)
	if err != nil {
		return fmt.Errorf("failed to save execution %s: %w", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, `SELECT data FROM executions WHERE id = $1`, id)

	var data []byte

	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrExecutionNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get execution %s: %w", id, err)
	}

	execution := &models.Execution{}
	if err := json.Unmarshal(data, execution); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution %s: %w", id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data FROM executions WHERE workflow_id = $1 ORDER BY started_at
	`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions for workflow %s: %w", workflowID, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var executions []*models.Execution

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan execution row: %w", err)
		}

		execution := &models.Execution{}
		if err := json.Unmarshal(data, execution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
		}

		executions = append(executions, execution)
	}

	return executions, rows.Err()
}
