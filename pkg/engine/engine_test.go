package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
	"github.com/loomflow/loom/pkg/persistence/memory"
	"github.com/loomflow/loom/pkg/protocol"
	"github.com/loomflow/loom/pkg/registry"
	"github.com/loomflow/loom/pkg/testutil"
)

type stubExecutor struct {
	execute func(ctx context.Context, executionCtx *models.ExecutionContext) (models.NodeResult, error)
}

func (s *stubExecutor) Execute(ctx context.Context, executionCtx *models.ExecutionContext) (models.NodeResult, error) {
	return s.execute(ctx, executionCtx)
}

type stubFactory struct {
	kind    models.NodeKind
	execute func(ctx context.Context, executionCtx *models.ExecutionContext) (models.NodeResult, error)
}

func (s *stubFactory) Kind() models.NodeKind {
	return s.kind
}

func (s *stubFactory) Create(_ *models.Node) (protocol.NodeExecutor, error) {
	return &stubExecutor{execute: s.execute}, nil
}

func newTestEngine(t *testing.T, config Config, factories ...protocol.ExecutorFactory) (*Engine, persistence.Persistence) {
	t.Helper()

	logger := slog.Default()
	store := memory.NewPersistence()

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaults(registry.Dependencies{})

	for _, factory := range factories {
		reg.Register(factory)
	}

	return NewEngine(logger, store, reg, nil, nil, config), store
}

func waitForTerminal(t *testing.T, store persistence.Persistence, executionID string) *models.Execution {
	t.Helper()

	var execution *models.Execution

	require.Eventually(t, func() bool {
		found, err := store.Executions().GetByID(context.Background(), executionID)
		if err != nil {
			return false
		}

		execution = found

		return found.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	return execution
}

func TestEngineExecuteRunsChainToCompletion(t *testing.T) {
	engine, store := newTestEngine(t, Config{})

	first := testutil.CreateTestNode(testutil.WithName("First"))
	second := testutil.CreateTestNode(testutil.WithName("Second"))
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(first, second),
		testutil.WithChain(first.ID, second.ID),
	)
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	execution, err := engine.Execute(context.Background(), workflow.ID, "manual", map[string]any{"key": "value"})
	require.NoError(t, err)
	assert.Equal(t, workflow.ID, execution.WorkflowID)
	assert.Equal(t, "manual", execution.TriggeredBy)

	final := waitForTerminal(t, store, execution.ID)

	assert.Equal(t, models.ExecutionStatusCompleted, final.Status)
	require.NotNil(t, final.CompletedAt)
	assert.Empty(t, final.ErrorMessage)

	require.Len(t, final.Log, 4)
	assert.Equal(t, first.ID, final.Log[0].NodeID)
	assert.Equal(t, models.NodeStatusStarted, final.Log[0].Status)
	assert.Equal(t, first.ID, final.Log[1].NodeID)
	assert.Equal(t, models.NodeStatusCompleted, final.Log[1].Status)
	assert.Equal(t, second.ID, final.Log[2].NodeID)
	assert.Equal(t, second.ID, final.Log[3].NodeID)

	for i := 1; i < len(final.Log); i++ {
		assert.False(t, final.Log[i].Timestamp.Before(final.Log[i-1].Timestamp))
	}

	assert.Contains(t, final.OutputData, first.ID)
	assert.Contains(t, final.OutputData, second.ID)

	stored, err := store.Workflows().GetByID(context.Background(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ExecutionCount)
	require.NotNil(t, stored.LastExecutedAt)
}

func TestEngineExecuteRejectsInactiveWorkflow(t *testing.T) {
	engine, store := newTestEngine(t, Config{})

	node := testutil.CreateTestNode()
	workflow := testutil.CreateTestWorkflow(
		testutil.WithStatus(models.WorkflowStatusDraft),
		testutil.WithNodes(node),
	)
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	_, err := engine.Execute(context.Background(), workflow.ID, "manual", nil)
	require.ErrorIs(t, err, ErrWorkflowNotActive)
}

func TestEngineExecuteRejectsInvalidWorkflow(t *testing.T) {
	engine, store := newTestEngine(t, Config{})

	first := testutil.CreateTestNode()
	second := testutil.CreateTestNode()
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(first, second),
		testutil.WithConnection(first.ID, second.ID),
		testutil.WithConnection(second.ID, first.ID),
	)
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	_, err := engine.Execute(context.Background(), workflow.ID, "manual", nil)
	require.ErrorIs(t, err, ErrWorkflowNotValid)

	executions, err := store.Executions().ListByWorkflow(context.Background(), workflow.ID)
	require.NoError(t, err)
	assert.Empty(t, executions)
}

func TestEngineExecuteUnknownWorkflow(t *testing.T) {
	engine, _ := newTestEngine(t, Config{})

	_, err := engine.Execute(context.Background(), "missing", "manual", nil)
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestEngineCancelStopsAtNodeBoundary(t *testing.T) {
	started := make(chan struct{})

	blocking := &stubFactory{
		kind: models.NodeKindTimer,
		execute: func(ctx context.Context, _ *models.ExecutionContext) (models.NodeResult, error) {
			close(started)
			<-ctx.Done()

			return models.NodeResult{Status: models.NodeStatusCompleted, Output: map[string]any{}}, nil
		},
	}

	engine, store := newTestEngine(t, Config{}, blocking)

	first := testutil.CreateTestNode(testutil.WithKind(models.NodeKindTimer))
	second := testutil.CreateTestNode(testutil.WithName("Never runs"))
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(first, second),
		testutil.WithChain(first.ID, second.ID),
	)
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	execution, err := engine.Execute(context.Background(), workflow.ID, "manual", nil)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first node never started")
	}

	require.True(t, engine.Cancel(execution.ID))

	final := waitForTerminal(t, store, execution.ID)

	assert.Equal(t, models.ExecutionStatusCancelled, final.Status)
	require.NotNil(t, final.CompletedAt)

	for _, entry := range final.Log {
		assert.NotEqual(t, second.ID, entry.NodeID)
	}
}

func TestEngineCancelAbortsInFlightExecutorAsCancelled(t *testing.T) {
	started := make(chan struct{})

	aborting := &stubFactory{
		kind: models.NodeKindWebhook,
		execute: func(ctx context.Context, _ *models.ExecutionContext) (models.NodeResult, error) {
			close(started)
			<-ctx.Done()

			return models.NodeResult{}, ctx.Err()
		},
	}

	engine, store := newTestEngine(t, Config{}, aborting)

	first := testutil.CreateTestNode(testutil.WithKind(models.NodeKindWebhook))
	second := testutil.CreateTestNode(testutil.WithName("Never runs"))
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(first, second),
		testutil.WithChain(first.ID, second.ID),
	)
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	execution, err := engine.Execute(context.Background(), workflow.ID, "manual", nil)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first node never started")
	}

	require.True(t, engine.Cancel(execution.ID))

	final := waitForTerminal(t, store, execution.ID)

	assert.Equal(t, models.ExecutionStatusCancelled, final.Status)
	assert.Empty(t, final.ErrorMessage)
	require.NotNil(t, final.CompletedAt)

	for _, entry := range final.Log {
		assert.NotEqual(t, second.ID, entry.NodeID)
	}
}

func TestEngineCancelUnknownExecution(t *testing.T) {
	engine, _ := newTestEngine(t, Config{})

	assert.False(t, engine.Cancel("missing"))
}

func TestEngineFailsFastOnNodeError(t *testing.T) {
	failing := &stubFactory{
		kind: models.NodeKindWebhook,
		execute: func(_ context.Context, _ *models.ExecutionContext) (models.NodeResult, error) {
			return models.NodeResult{Status: models.NodeStatusError, Error: "boom"}, nil
		},
	}

	engine, store := newTestEngine(t, Config{}, failing)

	first := testutil.CreateTestNode(testutil.WithKind(models.NodeKindWebhook))
	second := testutil.CreateTestNode()
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(first, second),
		testutil.WithChain(first.ID, second.ID),
	)
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	execution, err := engine.Execute(context.Background(), workflow.ID, "manual", nil)
	require.NoError(t, err)

	final := waitForTerminal(t, store, execution.ID)

	assert.Equal(t, models.ExecutionStatusFailed, final.Status)
	assert.Contains(t, final.ErrorMessage, first.ID)
	assert.Contains(t, final.ErrorMessage, "boom")
	require.Len(t, final.Log, 2)
	assert.Equal(t, models.NodeStatusError, final.Log[1].Status)
	assert.Empty(t, final.OutputData)
}

func TestEngineContinueOnErrorFinishesRun(t *testing.T) {
	failing := &stubFactory{
		kind: models.NodeKindWebhook,
		execute: func(_ context.Context, _ *models.ExecutionContext) (models.NodeResult, error) {
			return models.NodeResult{Status: models.NodeStatusError, Error: "boom"}, nil
		},
	}

	engine, store := newTestEngine(t, Config{ContinueOnError: true}, failing)

	first := testutil.CreateTestNode(testutil.WithKind(models.NodeKindWebhook))
	second := testutil.CreateTestNode()
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(first, second),
		testutil.WithChain(first.ID, second.ID),
	)
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	execution, err := engine.Execute(context.Background(), workflow.ID, "manual", nil)
	require.NoError(t, err)

	final := waitForTerminal(t, store, execution.ID)

	assert.Equal(t, models.ExecutionStatusCompleted, final.Status)
	assert.NotContains(t, final.OutputData, first.ID)
	assert.Contains(t, final.OutputData, second.ID)
}

func TestEngineRecoversFromPanic(t *testing.T) {
	panicking := &stubFactory{
		kind: models.NodeKindWebhook,
		execute: func(_ context.Context, _ *models.ExecutionContext) (models.NodeResult, error) {
			panic("executor blew up")
		},
	}

	engine, store := newTestEngine(t, Config{}, panicking)

	node := testutil.CreateTestNode(testutil.WithKind(models.NodeKindWebhook))
	workflow := testutil.CreateTestWorkflow(testutil.WithNodes(node))
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	execution, err := engine.Execute(context.Background(), workflow.ID, "manual", nil)
	require.NoError(t, err)

	final := waitForTerminal(t, store, execution.ID)

	assert.Equal(t, models.ExecutionStatusFailed, final.Status)
	assert.Contains(t, final.ErrorMessage, "panic")
	assert.Contains(t, final.ErrorMessage, "executor blew up")
}

func TestEngineNodeTimeout(t *testing.T) {
	slow := &stubFactory{
		kind: models.NodeKindWebhook,
		execute: func(ctx context.Context, _ *models.ExecutionContext) (models.NodeResult, error) {
			select {
			case <-ctx.Done():
				return models.NodeResult{}, ctx.Err()
			case <-time.After(10 * time.Second):
				return models.NodeResult{Status: models.NodeStatusCompleted}, nil
			}
		},
	}

	engine, store := newTestEngine(t, Config{NodeTimeout: 20 * time.Millisecond}, slow)

	node := testutil.CreateTestNode(testutil.WithKind(models.NodeKindWebhook))
	workflow := testutil.CreateTestWorkflow(testutil.WithNodes(node))
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	execution, err := engine.Execute(context.Background(), workflow.ID, "manual", nil)
	require.NoError(t, err)

	final := waitForTerminal(t, store, execution.ID)

	assert.Equal(t, models.ExecutionStatusFailed, final.Status)
	assert.Contains(t, final.ErrorMessage, "context deadline exceeded")
}

func TestEngineGetStatus(t *testing.T) {
	engine, store := newTestEngine(t, Config{})

	node := testutil.CreateTestNode()
	workflow := testutil.CreateTestWorkflow(testutil.WithNodes(node))
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	execution, err := engine.Execute(context.Background(), workflow.ID, "manual", nil)
	require.NoError(t, err)

	waitForTerminal(t, store, execution.ID)

	status, err := engine.GetStatus(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.ID, status.ExecutionID)
	assert.Equal(t, workflow.ID, status.WorkflowID)
	assert.Equal(t, models.ExecutionStatusCompleted, status.Status)
	assert.Equal(t, 2, status.Progress)
	assert.GreaterOrEqual(t, status.DurationSeconds, 0.0)
	require.NotNil(t, status.CompletedAt)
}

func TestEngineGetStatusUnknownExecution(t *testing.T) {
	engine, _ := newTestEngine(t, Config{})

	_, err := engine.GetStatus(context.Background(), "missing")
	require.ErrorIs(t, err, ErrExecutionNotFound)
}
