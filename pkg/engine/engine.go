// Package engine runs workflow executions: it orders nodes, drives their
// executors, records the execution log and guarantees every run ends in a
// terminal status.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/loomflow/loom/pkg/eventbus"
	"github.com/loomflow/loom/pkg/events"
	"github.com/loomflow/loom/pkg/graph"
	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/otelhelper"
	"github.com/loomflow/loom/pkg/persistence"
	"github.com/loomflow/loom/pkg/registry"
)

var (
	ErrWorkflowNotActive = errors.New("workflow is not active")
	ErrWorkflowNotValid  = errors.New("workflow failed validation")
	ErrExecutionNotFound = persistence.ErrExecutionNotFound
)

// Config tunes run behavior. The zero value stops on the first node error
// and applies no per-node timeout.
type Config struct {
	// ContinueOnError keeps the run going past a failed node instead of
	// marking the execution failed at the first error.
	ContinueOnError bool

	// NodeTimeout bounds each node's Execute call. Zero means no limit.
	NodeTimeout time.Duration
}

type Engine struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	config      Config

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewEngine wires an engine. The event bus and tracer may be nil, in which
// case lifecycle events and spans are skipped.
func NewEngine(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	config Config,
) *Engine {
	return &Engine{
		logger:      logger.With("module", "engine"),
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		tracer:      tracer,
		config:      config,
		running:     make(map[string]context.CancelFunc),
	}
}

// ExecutionStatus is the caller-facing snapshot of a run.
type ExecutionStatus struct {
	ExecutionID     string                 `json:"execution_id"`
	WorkflowID      string                 `json:"workflow_id"`
	Status          models.ExecutionStatus `json:"status"`
	StartedAt       time.Time              `json:"started_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	TriggeredBy     string                 `json:"triggered_by"`
	Progress        int                    `json:"progress"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	DurationSeconds float64                `json:"duration_seconds"`
}

// Execute starts a run of the workflow and returns immediately with the
// pending execution record. The run itself proceeds on its own goroutine
// with its own lifetime, detached from the caller's context.
func (e *Engine) Execute(ctx context.Context, workflowID, triggeredBy string, inputData map[string]any) (*models.Execution, error) {
	workflow, err := e.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if workflow.Status != models.WorkflowStatusActive {
		return nil, fmt.Errorf("%w: workflow %s is %s", ErrWorkflowNotActive, workflowID, workflow.Status)
	}

	if result := graph.Validate(workflow); !result.Valid {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotValid, result.Errors[0])
	}

	order, err := graph.BuildOrder(workflow)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotValid, err)
	}

	now := time.Now().UTC()
	execution := &models.Execution{
		ID:          "exec-" + uuid.New().String(),
		WorkflowID:  workflowID,
		Status:      models.ExecutionStatusPending,
		StartedAt:   now,
		TriggeredBy: triggeredBy,
		InputData:   models.CopyMap(inputData),
		Log:         []models.ExecutionLogEntry{},
	}

	if err := e.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to save execution: %w", err)
	}

	if err := e.persistence.Workflows().RecordExecution(ctx, workflowID, now); err != nil {
		return nil, fmt.Errorf("failed to record execution on workflow %s: %w", workflowID, err)
	}

	e.publish(execution, events.ExecutionStarted{
		BaseEvent:   e.baseEvent(events.ExecutionStartedEvent, execution),
		TriggeredBy: triggeredBy,
		NodeCount:   len(order),
	})

	runCtx, cancel := context.WithCancel(context.Background())

	e.mu.Lock()
	e.running[execution.ID] = cancel
	e.mu.Unlock()

	go e.run(runCtx, workflow, execution.Clone(), order)

	e.logger.Info("Started workflow execution",
		"workflow_id", workflowID,
		"execution_id", execution.ID,
		"triggered_by", triggeredBy,
		"node_count", len(order))

	return execution, nil
}

// Cancel requests cancellation of a running execution. It reports whether
// an active run was found; the execution reaches cancelled status at the
// next node boundary.
func (e *Engine) Cancel(executionID string) bool {
	e.mu.Lock()
	cancel, ok := e.running[executionID]
	e.mu.Unlock()

	if !ok {
		return false
	}

	cancel()

	e.logger.Info("Cancellation requested", "execution_id", executionID)

	return true
}

// GetStatus returns a snapshot of an execution's progress.
func (e *Engine) GetStatus(ctx context.Context, executionID string) (*ExecutionStatus, error) {
	execution, err := e.persistence.Executions().GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}

	status := &ExecutionStatus{
		ExecutionID:  execution.ID,
		WorkflowID:   execution.WorkflowID,
		Status:       execution.Status,
		StartedAt:    execution.StartedAt,
		CompletedAt:  execution.CompletedAt,
		TriggeredBy:  execution.TriggeredBy,
		Progress:     len(execution.Log),
		ErrorMessage: execution.ErrorMessage,
	}

	if execution.CompletedAt != nil {
		status.DurationSeconds = execution.CompletedAt.Sub(execution.StartedAt).Seconds()
	} else if !execution.Status.IsTerminal() {
		status.DurationSeconds = time.Since(execution.StartedAt).Seconds()
	}

	return status, nil
}

func (e *Engine) run(ctx context.Context, workflow *models.Workflow, execution *models.Execution, order []string) {
	logger := e.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Execution panicked", "panic", r)
			e.finish(execution, models.ExecutionStatusFailed, fmt.Sprintf("panic: %v", r))
		}

		if !execution.Status.IsTerminal() {
			e.finish(execution, models.ExecutionStatusFailed, "execution ended without a terminal status")
		}

		e.mu.Lock()
		delete(e.running, execution.ID)
		e.mu.Unlock()
	}()

	ctx, span := e.startSpan(ctx, workflow, execution)
	defer span.End()

	execution.Status = models.ExecutionStatusRunning
	e.save(execution)

	execCtx := models.NewExecutionContext(execution.ID, workflow, execution.InputData)

	for _, nodeID := range order {
		select {
		case <-ctx.Done():
			e.finishCancelled(execution, logger)

			return
		default:
		}

		node, ok := workflow.NodeByID(nodeID)
		if !ok {
			e.finish(execution, models.ExecutionStatusFailed, fmt.Sprintf("node %s not found in workflow", nodeID))

			return
		}

		result := e.executeNode(ctx, logger, node, execution, execCtx)

		e.publish(execution, events.NodeFinished{
			BaseEvent: e.baseEvent(events.NodeFinishedEvent, execution),
			NodeID:    node.ID,
			NodeName:  node.Name,
			Status:    string(result.Status),
		})

		if result.Status == models.NodeStatusError {
			// A cancelled run context aborts the in-flight executor call, which
			// surfaces as an error result. That is the caller cancelling, not
			// the node failing.
			if ctx.Err() != nil {
				e.finishCancelled(execution, logger)

				return
			}

			if e.config.ContinueOnError {
				logger.Warn("Node failed, continuing", "node_id", node.ID, "error", result.Error)

				continue
			}

			errMsg := fmt.Sprintf("node %s (%s) failed: %s", node.ID, node.Kind, result.Error)
			e.finish(execution, models.ExecutionStatusFailed, errMsg)
			e.publish(execution, events.ExecutionFailed{
				BaseEvent: e.baseEvent(events.ExecutionFailedEvent, execution),
				NodeID:    node.ID,
				Error:     result.Error,
			})
			otelhelper.SetError(span, errors.New(errMsg))
			logger.Error("Execution failed", "node_id", node.ID, "error", result.Error)

			return
		}

		execCtx.NodeOutputs[node.ID] = result.Output
	}

	execution.OutputData = models.CopyMap(execCtx.NodeOutputs)
	e.finish(execution, models.ExecutionStatusCompleted, "")
	e.publish(execution, events.ExecutionCompleted{
		BaseEvent: e.baseEvent(events.ExecutionCompletedEvent, execution),
		Duration:  execution.CompletedAt.Sub(execution.StartedAt),
	})
	logger.Info("Execution completed", "nodes_executed", len(order))
}

func (e *Engine) executeNode(
	ctx context.Context,
	logger *slog.Logger,
	node *models.Node,
	execution *models.Execution,
	execCtx *models.ExecutionContext,
) models.NodeResult {
	execution.AppendLog(models.ExecutionLogEntry{
		Timestamp: time.Now().UTC(),
		NodeID:    node.ID,
		NodeName:  node.Name,
		Status:    models.NodeStatusStarted,
	})
	e.save(execution)

	logger.Info("Executing node", "node_id", node.ID, "node_kind", node.Kind)

	result := e.runExecutor(ctx, node, execCtx)

	entry := models.ExecutionLogEntry{
		Timestamp: time.Now().UTC(),
		NodeID:    node.ID,
		NodeName:  node.Name,
		Status:    result.Status,
		Output:    result.Output,
		Error:     result.Error,
	}
	execution.AppendLog(entry)
	e.save(execution)

	return result
}

func (e *Engine) runExecutor(ctx context.Context, node *models.Node, execCtx *models.ExecutionContext) models.NodeResult {
	executor, err := e.registry.CreateExecutor(node)
	if err != nil {
		return models.NodeResult{
			NodeID: node.ID,
			Status: models.NodeStatusError,
			Error:  err.Error(),
		}
	}

	nodeCtx := ctx

	if e.config.NodeTimeout > 0 {
		var cancel context.CancelFunc

		nodeCtx, cancel = context.WithTimeout(ctx, e.config.NodeTimeout)
		defer cancel()
	}

	result, err := executor.Execute(nodeCtx, execCtx)
	if err != nil {
		return models.NodeResult{
			NodeID: node.ID,
			Status: models.NodeStatusError,
			Error:  err.Error(),
		}
	}

	if result.NodeID == "" {
		result.NodeID = node.ID
	}

	return result
}

func (e *Engine) finishCancelled(execution *models.Execution, logger *slog.Logger) {
	e.finish(execution, models.ExecutionStatusCancelled, "")
	e.publish(execution, events.ExecutionCancelled{
		BaseEvent:      e.baseEvent(events.ExecutionCancelledEvent, execution),
		CompletedNodes: len(execution.Log) / 2,
	})
	logger.Info("Execution cancelled", "completed_entries", len(execution.Log))
}

// finish moves the execution to a terminal status and persists it. It is a
// no-op when the execution is already terminal.
func (e *Engine) finish(execution *models.Execution, status models.ExecutionStatus, errorMessage string) {
	if execution.Status.IsTerminal() {
		return
	}

	now := time.Now().UTC()
	execution.Status = status
	execution.CompletedAt = &now
	execution.ErrorMessage = errorMessage

	e.save(execution)
}

// save persists the execution on a fresh context so terminal statuses are
// still written after the run context is cancelled.
func (e *Engine) save(execution *models.Execution) {
	if err := e.persistence.Executions().Save(context.Background(), execution); err != nil {
		e.logger.Error("Failed to save execution", "execution_id", execution.ID, "error", err)
	}
}

func (e *Engine) baseEvent(eventType events.EventType, execution *models.Execution) events.BaseEvent {
	id := "evt-" + uuid.New().String()
	if e.eventBus != nil {
		id = e.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:          id,
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		WorkflowID:  execution.WorkflowID,
		ExecutionID: execution.ID,
	}
}

func (e *Engine) publish(execution *models.Execution, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(context.Background(), execution.WorkflowID, event); err != nil {
		e.logger.Warn("Failed to publish event",
			"event_type", event.GetType(),
			"execution_id", execution.ID,
			"error", err)
	}
}

func (e *Engine) startSpan(ctx context.Context, workflow *models.Workflow, execution *models.Execution) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
	)
}
