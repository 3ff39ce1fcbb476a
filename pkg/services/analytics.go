package services

import (
	"context"
	"fmt"
	"time"

	"github.com/loomflow/loom/pkg/models"
)

// WorkflowAnalytics is a read-only aggregation over a workflow's stored
// executions.
type WorkflowAnalytics struct {
	WorkflowID          string     `json:"workflow_id"`
	TotalExecutions     int        `json:"total_executions"`
	CompletedExecutions int        `json:"completed_executions"`
	FailedExecutions    int        `json:"failed_executions"`
	CancelledExecutions int        `json:"cancelled_executions"`
	RunningExecutions   int        `json:"running_executions"`
	SuccessRate         float64    `json:"success_rate"`
	AverageDuration     float64    `json:"average_duration_seconds"`
	LastExecutedAt      *time.Time `json:"last_executed_at,omitempty"`
}

// GetWorkflowAnalytics aggregates execution counts, success rate and
// average duration for one workflow. The success rate is the share of
// completed runs among terminal runs; in-flight executions are counted but
// excluded from the rate and the duration average.
func (w *Workflow) GetWorkflowAnalytics(ctx context.Context, workflowID string) (*WorkflowAnalytics, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	executions, err := w.persistence.Executions().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	analytics := &WorkflowAnalytics{
		WorkflowID:      workflowID,
		TotalExecutions: len(executions),
		LastExecutedAt:  workflow.LastExecutedAt,
	}

	var terminal int

	var totalDuration float64

	var timed int

	for _, execution := range executions {
		switch execution.Status {
		case models.ExecutionStatusCompleted:
			analytics.CompletedExecutions++
		case models.ExecutionStatusFailed:
			analytics.FailedExecutions++
		case models.ExecutionStatusCancelled:
			analytics.CancelledExecutions++
		default:
			analytics.RunningExecutions++
		}

		if execution.Status.IsTerminal() {
			terminal++

			if execution.CompletedAt != nil {
				totalDuration += execution.CompletedAt.Sub(execution.StartedAt).Seconds()
				timed++
			}
		}
	}

	if terminal > 0 {
		analytics.SuccessRate = float64(analytics.CompletedExecutions) / float64(terminal)
	}

	if timed > 0 {
		analytics.AverageDuration = totalDuration / float64(timed)
	}

	return analytics, nil
}
