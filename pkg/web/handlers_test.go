package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomflow/loom/pkg/engine"
	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
	"github.com/loomflow/loom/pkg/persistence/memory"
	"github.com/loomflow/loom/pkg/plan"
	"github.com/loomflow/loom/pkg/registry"
	"github.com/loomflow/loom/pkg/services"
	"github.com/loomflow/loom/pkg/template"
	"github.com/loomflow/loom/pkg/testutil"
	"github.com/loomflow/loom/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, persistence.Persistence) {
	t.Helper()

	logger := slog.Default()
	store := memory.NewPersistence()

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaults(registry.Dependencies{})

	eng := engine.NewEngine(logger, store, reg, nil, nil, engine.Config{})

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(store),
		template.NewService(store),
		plan.NewMaterializer(store),
		eng,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	web.RegisterRoutes(app, handlers)

	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, url string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader

	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)

		body = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func TestCreateWorkflowEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", services.CreateWorkflowRequest{
		Name:      "Test Workflow",
		CreatedBy: "tester",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.NotEmpty(t, workflow.ID)
	assert.Equal(t, models.WorkflowStatusDraft, workflow.Status)
}

func TestCreateWorkflowEndpointRejectsShortName(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/workflows", services.CreateWorkflowRequest{Name: "ab"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "validation_error")
}

func TestAddNodeAndConnectEndpoints(t *testing.T) {
	app, _ := setupTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/workflows", services.CreateWorkflowRequest{Name: "Graph"})

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))

	_, body = doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/nodes", services.AddNodeRequest{
		Kind: "trigger",
		Name: "Start",
	})

	var first models.Node
	require.NoError(t, json.Unmarshal(body, &first))

	_, body = doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/nodes", services.AddNodeRequest{
		Kind: "action",
		Name: "Do",
	})

	var second models.Node
	require.NoError(t, json.Unmarshal(body, &second))

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/connections", services.ConnectRequest{
		SourceNodeID: first.ID,
		TargetNodeID: second.ID,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var conn models.Connection
	require.NoError(t, json.Unmarshal(body, &conn))
	assert.Equal(t, models.DefaultPort, conn.SourceOutput)
}

func TestConnectEndpointUnknownNode(t *testing.T) {
	app, _ := setupTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/workflows", services.CreateWorkflowRequest{Name: "Graph"})

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/connections", services.ConnectRequest{
		SourceNodeID: "ghost",
		TargetNodeID: "ghost2",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "node_not_found")
}

func TestValidateEndpoint(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID+"/validate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestUpdateConfigEndpoint(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusDraft))
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, body := doJSON(t, app, http.MethodPatch, "/workflows/"+workflow.ID+"/config", map[string]any{
		"status": "active",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Workflow
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, models.WorkflowStatusActive, updated.Status)
}

func TestExecuteAndStatusEndpoints(t *testing.T) {
	app, store := setupTestApp(t)

	first := testutil.CreateTestNode()
	second := testutil.CreateTestNode()
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(first, second),
		testutil.WithChain(first.ID, second.ID),
	)
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/execute", map[string]any{
		"input_data": map[string]any{"key": "value"},
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var execution models.Execution
	require.NoError(t, json.Unmarshal(body, &execution))
	require.NotEmpty(t, execution.ID)

	require.Eventually(t, func() bool {
		stored, err := store.Executions().GetByID(context.Background(), execution.ID)

		return err == nil && stored.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	resp, body = doJSON(t, app, http.MethodGet, "/executions/"+execution.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status engine.ExecutionStatus
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, models.ExecutionStatusCompleted, status.Status)
	assert.Equal(t, 4, status.Progress)
}

func TestExecuteEndpointInactiveWorkflow(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.CreateTestWorkflow(
		testutil.WithStatus(models.WorkflowStatusDraft),
		testutil.WithNodes(testutil.CreateTestNode()),
	)
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/execute", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "conflict")
}

func TestCancelEndpointNotRunning(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/executions/missing/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTemplateEndpoints(t *testing.T) {
	app, store := setupTestApp(t)

	first := testutil.CreateTestNode()
	second := testutil.CreateTestNode()
	workflow := testutil.CreateTestWorkflow(
		testutil.WithNodes(first, second),
		testutil.WithChain(first.ID, second.ID),
	)
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, body := doJSON(t, app, http.MethodPost, "/workflows/"+workflow.ID+"/template", template.CreateTemplateRequest{
		Name: "Reusable Pipeline",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Template
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Len(t, created.Nodes, 2)

	resp, body = doJSON(t, app, http.MethodPost, "/templates/"+created.ID+"/materialize", web.MaterializeTemplateRequest{
		CreatedBy: "user-2",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var materialized models.Workflow
	require.NoError(t, json.Unmarshal(body, &materialized))
	assert.Len(t, materialized.Nodes, 2)
	assert.NotEqual(t, workflow.ID, materialized.ID)
}

func TestMaterializePlanEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/plans", web.MaterializePlanRequest{
		CreatedBy: "planner",
		Plan: plan.Plan{
			Name: "Planned Flow",
			Nodes: []plan.PlanNode{
				{TempID: "a", Kind: "trigger", Name: "Start"},
				{TempID: "b", Kind: "action", Name: "Do"},
			},
			Connections: []plan.PlanConnection{
				{SourceTempID: "a", TargetTempID: "b"},
			},
		},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Len(t, workflow.Nodes, 2)
	assert.Len(t, workflow.Connections, 1)
}

func TestMaterializePlanEndpointUnknownTempID(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/plans", web.MaterializePlanRequest{
		Plan: plan.Plan{
			Name:  "Broken",
			Nodes: []plan.PlanNode{{TempID: "a", Kind: "action", Name: "Do"}},
			Connections: []plan.PlanConnection{
				{SourceTempID: "a", TargetTempID: "ghost"},
			},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "ghost")
}

func TestAnalyticsEndpoint(t *testing.T) {
	app, store := setupTestApp(t)

	workflow := testutil.CreateTestWorkflow()
	require.NoError(t, store.Workflows().Save(context.Background(), workflow))

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/"+workflow.ID+"/analytics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var analytics services.WorkflowAnalytics
	require.NoError(t, json.Unmarshal(body, &analytics))
	assert.Equal(t, workflow.ID, analytics.WorkflowID)
	assert.Zero(t, analytics.TotalExecutions)
}

func TestGetWorkflowNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "workflow_not_found")
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}
