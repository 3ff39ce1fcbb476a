package protocol

import "context"

// TriggerCallback starts a run of the given workflow with trigger-supplied
// input data. Dispatchers call it and never block on the run itself.
type TriggerCallback func(ctx context.Context, workflowID string, inputData map[string]any) error

// TriggerDispatcher watches an external run source (cron schedule, queue)
// and fires the callback for matching workflows.
type TriggerDispatcher interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
}
