package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	connection string
	query      string
	rows       int64
	err        error
}

func (s *stubRunner) Run(_ context.Context, connection, query string, _ map[string]any) (int64, error) {
	s.connection, s.query = connection, query

	return s.rows, s.err
}

func storageNode() *models.Node {
	return testutil.CreateTestNode(
		testutil.WithKind(models.NodeKindStorage),
		testutil.WithConfig(map[string]any{
			"connection": "analytics",
			"query":      "DELETE FROM sessions WHERE expired",
		}),
	)
}

func TestExecuteRunsQuery(t *testing.T) {
	runner := &stubRunner{rows: 42}
	executor, err := NewFactory(runner).Create(storageNode())
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), &models.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, models.NodeStatusCompleted, result.Status)
	assert.Equal(t, true, result.Output["queryExecuted"])
	assert.Equal(t, "analytics", result.Output["connection"])
	assert.Equal(t, int64(42), result.Output["affectedRows"])
	assert.Equal(t, "DELETE FROM sessions WHERE expired", runner.query)
}

func TestExecuteRunnerFailure(t *testing.T) {
	executor, err := NewFactory(&stubRunner{err: errors.New("connection refused")}).Create(storageNode())
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), &models.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, models.NodeStatusError, result.Status)
	assert.Contains(t, result.Error, "connection refused")
}

func TestCreateMissingConnection(t *testing.T) {
	node := testutil.CreateTestNode(
		testutil.WithKind(models.NodeKindStorage),
		testutil.WithConfig(map[string]any{"query": "SELECT 1"}),
	)

	_, err := NewFactory(&stubRunner{}).Create(node)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection")
}
