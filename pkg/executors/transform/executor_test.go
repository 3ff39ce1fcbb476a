package transform

import (
	"context"
	"testing"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTransform(t *testing.T, transformType string, input map[string]any) models.NodeResult {
	t.Helper()

	node := testutil.CreateTestNode(
		testutil.WithKind(models.NodeKindTransform),
		testutil.WithConfig(map[string]any{"transform_type": transformType}),
	)

	executor, err := NewFactory().Create(node)
	require.NoError(t, err)

	result, err := executor.Execute(context.Background(), &models.ExecutionContext{InputData: input})
	require.NoError(t, err)

	return result
}

func TestExecuteUppercase(t *testing.T) {
	result := runTransform(t, "uppercase", map[string]any{"greeting": "hello", "count": 3})

	assert.Equal(t, models.NodeStatusCompleted, result.Status)
	assert.Equal(t, "uppercase", result.Output["transformType"])

	data, ok := result.Output["transformedData"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "HELLO", data["greeting"])
	assert.Equal(t, 3, data["count"])
}

func TestExecuteLowercase(t *testing.T) {
	result := runTransform(t, "lowercase", map[string]any{"greeting": "HELLO"})

	data := result.Output["transformedData"].(map[string]any)
	assert.Equal(t, "hello", data["greeting"])
}

func TestExecuteUnknownTypePassesThrough(t *testing.T) {
	result := runTransform(t, "", map[string]any{"greeting": "Hello"})

	assert.Equal(t, "passthrough", result.Output["transformType"])

	data := result.Output["transformedData"].(map[string]any)
	assert.Equal(t, "Hello", data["greeting"])
}
