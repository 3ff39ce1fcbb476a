package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig(map[string]any{
		"addr":  "redis.internal:6380",
		"db":    float64(2),
		"queue": "loom.runs",
	})
	require.NoError(t, err)

	assert.Equal(t, "redis.internal:6380", config.Addr)
	assert.Equal(t, 2, config.DB)
	assert.Equal(t, "loom.runs", config.Queue)
}

func TestParseConfigDefaults(t *testing.T) {
	config, err := ParseConfig(map[string]any{"queue": "loom.runs"})
	require.NoError(t, err)

	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Equal(t, 0, config.DB)
}

func TestParseConfigRequiresQueue(t *testing.T) {
	_, err := ParseConfig(map[string]any{})
	require.Error(t, err)
}

func TestParseConfigInvalidDB(t *testing.T) {
	_, err := ParseConfig(map[string]any{"queue": "q", "db": "not-a-number"})
	require.Error(t, err)
}

func TestDecodeMessage(t *testing.T) {
	message, err := DecodeMessage([]byte(`{"workflow_id":"wf-1","input":{"order":42}}`))
	require.NoError(t, err)

	assert.Equal(t, "wf-1", message.WorkflowID)
	assert.EqualValues(t, 42, message.Input["order"])
}

func TestDecodeMessageDefaultsInput(t *testing.T) {
	message, err := DecodeMessage([]byte(`{"workflow_id":"wf-1"}`))
	require.NoError(t, err)

	assert.NotEmpty(t, message.Input["timestamp"])
}

func TestDecodeMessageRequiresWorkflowID(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"input":{}}`))
	require.Error(t, err)
}

func TestDecodeMessageMalformed(t *testing.T) {
	_, err := DecodeMessage([]byte(`not json`))
	require.Error(t, err)
}
