package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
	"github.com/loomflow/loom/pkg/persistence/memory"
	"github.com/loomflow/loom/pkg/testutil"
)

func newTestService(t *testing.T) (*Workflow, persistence.Persistence) {
	t.Helper()

	store := memory.NewPersistence()

	return NewWorkflow(store), store
}

func TestWorkflowCreate(t *testing.T) {
	service, store := newTestService(t)

	workflow, err := service.Create(context.Background(), CreateWorkflowRequest{
		Name:        "Order Fulfillment",
		Description: "Processes incoming orders",
		CreatedBy:   "user-1",
		Variables:   map[string]any{"region": "eu"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, models.WorkflowStatusDraft, workflow.Status)
	assert.Equal(t, "eu", workflow.Variables["region"])
	assert.False(t, workflow.CreatedAt.IsZero())

	stored, err := store.Workflows().GetByID(context.Background(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, stored.Name)
}

func TestWorkflowCreateRequiresName(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Create(context.Background(), CreateWorkflowRequest{})
	require.ErrorIs(t, err, ErrWorkflowNameRequired)
	assert.True(t, IsValidationError(err))
}

func TestWorkflowAddNode(t *testing.T) {
	service, store := newTestService(t)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	node, err := service.AddNode(context.Background(), workflow.ID, AddNodeRequest{
		Kind:     "email",
		Name:     "Notify Customer",
		Config:   map[string]any{"to": "a@b.c", "subject": "hi", "body": "hello"},
		Position: models.Position{X: 10, Y: 20},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, node.ID)
	assert.Equal(t, models.NodeKindEmail, node.Kind)

	stored, err := store.Workflows().GetByID(context.Background(), workflow.ID)
	require.NoError(t, err)
	require.Len(t, stored.Nodes, 1)
	assert.Equal(t, node.ID, stored.Nodes[0].ID)
}

func TestWorkflowAddNodeInvalidKind(t *testing.T) {
	service, store := newTestService(t)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	_, err := service.AddNode(context.Background(), workflow.ID, AddNodeRequest{
		Kind: "teleport",
		Name: "Nope",
	})
	require.ErrorIs(t, err, ErrInvalidNodeKind)
}

func TestWorkflowAddNodeUnknownWorkflow(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.AddNode(context.Background(), "missing", AddNodeRequest{Kind: "action", Name: "X"})
	require.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflowConnect(t *testing.T) {
	service, store := newTestService(t)

	first := testutil.CreateTestNode()
	second := testutil.CreateTestNode()
	workflow := testutil.CreateTestWorkflow(testutil.WithNodes(first, second))
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	conn, err := service.Connect(context.Background(), workflow.ID, ConnectRequest{
		SourceNodeID: first.ID,
		TargetNodeID: second.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, models.DefaultPort, conn.SourceOutput)
	assert.Equal(t, models.DefaultPort, conn.TargetInput)

	stored, err := store.Workflows().GetByID(context.Background(), workflow.ID)
	require.NoError(t, err)
	require.Len(t, stored.Connections, 1)

	source, _ := stored.NodeByID(first.ID)
	target, _ := stored.NodeByID(second.ID)
	assert.Contains(t, source.Outputs, second.ID)
	assert.Contains(t, target.Inputs, first.ID)
}

func TestWorkflowConnectUnknownEndpoint(t *testing.T) {
	service, store := newTestService(t)

	node := testutil.CreateTestNode()
	workflow := testutil.CreateTestWorkflow(testutil.WithNodes(node))
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	_, err := service.Connect(context.Background(), workflow.ID, ConnectRequest{
		SourceNodeID: node.ID,
		TargetNodeID: "ghost",
	})
	require.ErrorIs(t, err, ErrNodeNotFound)
	assert.True(t, IsNodeNotFound(err))
}

func TestWorkflowUpdateConfig(t *testing.T) {
	service, store := newTestService(t)

	workflow := testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusDraft))
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	before := workflow.UpdatedAt

	updated, err := service.UpdateConfig(context.Background(), workflow.ID, map[string]any{
		"status":      "active",
		"name":        "Renamed",
		"variables":   map[string]any{"k": "v"},
		"unknown_key": "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, models.WorkflowStatusActive, updated.Status)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "v", updated.Variables["k"])
	assert.True(t, updated.UpdatedAt.After(before) || updated.UpdatedAt.Equal(before))
}

func TestWorkflowUpdateConfigInvalidStatus(t *testing.T) {
	service, store := newTestService(t)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	_, err := service.UpdateConfig(context.Background(), workflow.ID, map[string]any{"status": "launched"})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestWorkflowValidatePassthrough(t *testing.T) {
	service, store := newTestService(t)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	result, err := service.Validate(context.Background(), workflow.ID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestWorkflowGetWorkflowAnalytics(t *testing.T) {
	service, store := newTestService(t)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	completedAt := func(start time.Time, seconds int) *time.Time {
		at := start.Add(time.Duration(seconds) * time.Second)
		return &at
	}

	start := time.Now().UTC().Add(-time.Minute)

	executions := []*models.Execution{
		{ID: "e1", WorkflowID: workflow.ID, Status: models.ExecutionStatusCompleted, StartedAt: start, CompletedAt: completedAt(start, 2)},
		{ID: "e2", WorkflowID: workflow.ID, Status: models.ExecutionStatusCompleted, StartedAt: start, CompletedAt: completedAt(start, 4)},
		{ID: "e3", WorkflowID: workflow.ID, Status: models.ExecutionStatusFailed, StartedAt: start, CompletedAt: completedAt(start, 6)},
		{ID: "e4", WorkflowID: workflow.ID, Status: models.ExecutionStatusRunning, StartedAt: start},
	}
	for _, execution := range executions {
		require.NoError(t, store.Executions().Save(context.Background(), execution))
	}

	analytics, err := service.GetWorkflowAnalytics(context.Background(), workflow.ID)
	require.NoError(t, err)

	assert.Equal(t, 4, analytics.TotalExecutions)
	assert.Equal(t, 2, analytics.CompletedExecutions)
	assert.Equal(t, 1, analytics.FailedExecutions)
	assert.Equal(t, 1, analytics.RunningExecutions)
	assert.InDelta(t, 2.0/3.0, analytics.SuccessRate, 0.001)
	assert.InDelta(t, 4.0, analytics.AverageDuration, 0.001)
}

func TestWorkflowHealthCheck(t *testing.T) {
	service, _ := newTestService(t)

	message, healthy := service.HealthCheck(context.Background())
	assert.True(t, healthy)
	assert.NotEmpty(t, message)
}
