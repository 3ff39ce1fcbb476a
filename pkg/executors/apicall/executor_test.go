package apicall

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiNode(config map[string]any) *models.Node {
	return testutil.CreateTestNode(
		testutil.WithKind(models.NodeKindAPICall),
		testutil.WithConfig(config),
	)
}

func TestExecuteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	executor, err := NewFactory(nil).Create(apiNode(map[string]any{"url": server.URL}))
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), &models.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, models.NodeStatusCompleted, result.Status)
	assert.Equal(t, true, result.Output["apiCalled"])
	assert.Equal(t, "GET", result.Output["method"])

	response, ok := result.Output["response"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, response["status_code"])
	assert.Equal(t, map[string]any{"ok": true}, response["json"])
}

func TestExecutePostWithBodyAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	executor, err := NewFactory(nil).Create(apiNode(map[string]any{
		"url":     server.URL,
		"method":  "post",
		"body":    `{"name": "loom"}`,
		"headers": map[string]any{"Authorization": "Bearer token"},
	}))
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), &models.ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, models.NodeStatusCompleted, result.Status)
}

func TestExecuteServerErrorIsNodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	executor, err := NewFactory(nil).Create(apiNode(map[string]any{"url": server.URL}))
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), &models.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, models.NodeStatusError, result.Status)
	assert.Contains(t, result.Error, "HTTP 500")
}

func TestExecuteRetriesPerAttempts(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "not yet", http.StatusServiceUnavailable)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	executor, err := NewFactory(nil).Create(apiNode(map[string]any{
		"url":      server.URL,
		"attempts": float64(3),
	}))
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), &models.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, models.NodeStatusCompleted, result.Status)
	assert.Equal(t, int32(3), calls.Load())
}
