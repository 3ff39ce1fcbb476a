// Package apicall provides the HTTP call node executor.
package apicall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/protocol"
)

// Executor performs one HTTP request through the injected client.
type Executor struct {
	nodeID string
	config models.APICallConfig
	client protocol.HTTPDoer
}

// Factory creates apicall executors bound to an HTTP client.
type Factory struct {
	client protocol.HTTPDoer
}

// NewFactory creates an apicall executor factory. When client is nil a
// default http.Client is built per node using the configured timeout.
func NewFactory(client protocol.HTTPDoer) *Factory {
	return &Factory{client: client}
}

func (f *Factory) Kind() models.NodeKind {
	return models.NodeKindAPICall
}

// Create parses the node config, failing on a missing url.
func (f *Factory) Create(node *models.Node) (protocol.NodeExecutor, error) {
	config, err := models.ParseAPICallConfig(node.Config)
	if err != nil {
		return nil, err
	}

	client := f.client
	if client == nil {
		client = &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second}
	}

	return &Executor{nodeID: node.ID, config: config, client: client}, nil
}

// Execute performs the request, retrying per the attempts setting. Node
// failures are reported through the result status, never as run aborts.
func (e *Executor) Execute(ctx context.Context, _ *models.ExecutionContext) (models.NodeResult, error) {
	var (
		response map[string]any
		lastErr  error
	)

	for attempt := 1; attempt <= e.config.Attempts; attempt++ {
		response, lastErr = e.performRequest(ctx)
		if lastErr == nil {
			break
		}
	}

	if lastErr != nil {
		return models.NodeResult{
			NodeID: e.nodeID,
			Status: models.NodeStatusError,
			Error:  fmt.Sprintf("HTTP request failed after %d attempts: %v", e.config.Attempts, lastErr),
		}, nil
	}

	return models.NodeResult{
		NodeID: e.nodeID,
		Status: models.NodeStatusCompleted,
		Output: map[string]any{
			"apiCalled": true,
			"url":       e.config.URL,
			"method":    e.config.Method,
			"response":  response,
		},
	}, nil
}

func (e *Executor) performRequest(ctx context.Context) (map[string]any, error) {
	var body io.Reader
	if e.config.Body != "" {
		body = strings.NewReader(e.config.Body)
	}

	req, err := http.NewRequestWithContext(ctx, e.config.Method, e.config.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range e.config.Headers {
		req.Header.Set(key, value)
	}

	if e.config.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(respBody),
	}

	var jsonBody any
	if err := json.Unmarshal(respBody, &jsonBody); err == nil {
		result["json"] = jsonBody
	}

	return result, nil
}
