// Package schedule provides the cron-based trigger dispatcher. Workflows
// whose trigger config carries type "schedule" and a cron expression are
// executed on their schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
	"github.com/loomflow/loom/pkg/protocol"
)

// TriggerType is the trigger config type handled by this dispatcher.
const TriggerType = "schedule"

// Entry is one scheduled workflow binding.
type Entry struct {
	WorkflowID string
	CronExpr   string
}

// ParseEntry extracts a schedule entry from a workflow's trigger config.
// It returns false when the workflow is not schedule-triggered and an error
// when it is but the cron expression is missing or invalid.
func ParseEntry(workflow *models.Workflow) (Entry, bool, error) {
	triggerType, _ := workflow.TriggerConfig["type"].(string)
	if triggerType != TriggerType {
		return Entry{}, false, nil
	}

	cronExpr, _ := workflow.TriggerConfig["cron"].(string)
	if cronExpr == "" {
		return Entry{}, true, errors.New("schedule trigger cron expression is required")
	}

	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return Entry{}, true, fmt.Errorf("invalid cron expression: %w", err)
	}

	return Entry{WorkflowID: workflow.ID, CronExpr: cronExpr}, true, nil
}

// Dispatcher runs one cron scheduler over all active schedule-triggered
// workflows.
type Dispatcher struct {
	persistence persistence.Persistence
	logger      *slog.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	callback protocol.TriggerCallback
}

// NewDispatcher creates a new schedule dispatcher.
func NewDispatcher(persistence persistence.Persistence, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		persistence: persistence,
		logger:      logger.With("module", "schedule_dispatcher"),
	}
}

// Start loads the active schedule-triggered workflows and begins firing the
// callback on their cron schedules. Workflows with invalid schedule config
// are logged and skipped; they never stop the dispatcher.
func (d *Dispatcher) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron != nil {
		return errors.New("dispatcher already started")
	}

	d.callback = callback
	d.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	workflows, err := d.persistence.Workflows().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	scheduled := 0

	for _, workflow := range workflows {
		if workflow.Status != models.WorkflowStatusActive {
			continue
		}

		entry, isSchedule, err := ParseEntry(workflow)
		if !isSchedule {
			continue
		}

		if err != nil {
			d.logger.Warn("Skipping workflow with invalid schedule config",
				"workflow_id", workflow.ID, "error", err)

			continue
		}

		if err := d.schedule(entry); err != nil {
			d.logger.Warn("Failed to schedule workflow",
				"workflow_id", workflow.ID, "error", err)

			continue
		}

		scheduled++
	}

	d.cron.Start()
	d.logger.Info("Schedule dispatcher started", "scheduled_workflows", scheduled)

	return nil
}

func (d *Dispatcher) schedule(entry Entry) error {
	_, err := d.cron.AddFunc(entry.CronExpr, func() {
		d.fire(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job for workflow %s: %w", entry.WorkflowID, err)
	}

	d.logger.Info("Scheduled workflow", "workflow_id", entry.WorkflowID, "cron", entry.CronExpr)

	return nil
}

func (d *Dispatcher) fire(entry Entry) {
	inputData := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := d.callback(context.Background(), entry.WorkflowID, inputData); err != nil {
		d.logger.Error("Error executing scheduled workflow",
			"workflow_id", entry.WorkflowID, "error", err)
	}
}

// Stop halts the cron scheduler and waits for in-flight jobs.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cron == nil {
		return nil
	}

	stopCtx := d.cron.Stop()

	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	d.cron = nil
	d.logger.Info("Schedule dispatcher stopped")

	return nil
}
