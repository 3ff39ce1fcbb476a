package models

import (
	"fmt"
	"strings"
)

// RequiredConfigFields returns the config keys a node of the given kind
// must carry to be executable. Kinds not listed have no required fields.
func RequiredConfigFields(kind NodeKind) []string {
	switch kind {
	case NodeKindEmail:
		return []string{"to", "subject", "body"}
	case NodeKindAPICall:
		return []string{"url"}
	case NodeKindStorage:
		return []string{"connection", "query"}
	default:
		return nil
	}
}

// MissingConfigFields returns the required fields absent (or empty) in the
// node's config, in declaration order.
func MissingConfigFields(node *Node) []string {
	var missing []string

	for _, field := range RequiredConfigFields(node.Kind) {
		value, ok := node.Config[field]
		if !ok {
			missing = append(missing, field)

			continue
		}

		if str, isString := value.(string); isString && strings.TrimSpace(str) == "" {
			missing = append(missing, field)
		}
	}

	return missing
}

// EmailConfig is the typed configuration for email nodes.
type EmailConfig struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
}

// ParseEmailConfig parses an untyped node config into an EmailConfig.
func ParseEmailConfig(config map[string]any) (EmailConfig, error) {
	parsed := EmailConfig{}

	var err error
	if parsed.To, err = requireString(config, "to"); err != nil {
		return parsed, err
	}

	if parsed.Subject, err = requireString(config, "subject"); err != nil {
		return parsed, err
	}

	if parsed.Body, err = requireString(config, "body"); err != nil {
		return parsed, err
	}

	parsed.From, _ = config["from"].(string)

	return parsed, nil
}

// APICallConfig is the typed configuration for apicall nodes.
type APICallConfig struct {
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           string            `json:"body,omitempty"`
	TimeoutSeconds int               `json:"timeout"`
	Attempts       int               `json:"attempts"`
}

// ParseAPICallConfig parses an untyped node config into an APICallConfig,
// applying the GET / 30s / single-attempt defaults.
func ParseAPICallConfig(config map[string]any) (APICallConfig, error) {
	parsed := APICallConfig{
		Method:         "GET",
		TimeoutSeconds: 30,
		Attempts:       1,
	}

	var err error
	if parsed.URL, err = requireString(config, "url"); err != nil {
		return parsed, err
	}

	if method, ok := config["method"].(string); ok && method != "" {
		parsed.Method = strings.ToUpper(method)
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		parsed.Headers = make(map[string]string, len(headers))

		for k, v := range headers {
			if str, isString := v.(string); isString {
				parsed.Headers[k] = str
			}
		}
	}

	parsed.Body, _ = config["body"].(string)

	if timeout, ok := asInt(config["timeout"]); ok && timeout > 0 {
		parsed.TimeoutSeconds = timeout
	}

	if attempts, ok := asInt(config["attempts"]); ok && attempts > 0 {
		parsed.Attempts = attempts
	}

	return parsed, nil
}

// StorageConfig is the typed configuration for storage nodes.
type StorageConfig struct {
	Connection string         `json:"connection"`
	Query      string         `json:"query"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ParseStorageConfig parses an untyped node config into a StorageConfig.
func ParseStorageConfig(config map[string]any) (StorageConfig, error) {
	parsed := StorageConfig{}

	var err error
	if parsed.Connection, err = requireString(config, "connection"); err != nil {
		return parsed, err
	}

	if parsed.Query, err = requireString(config, "query"); err != nil {
		return parsed, err
	}

	if params, ok := config["parameters"].(map[string]any); ok {
		parsed.Parameters = CopyMap(params)
	}

	return parsed, nil
}

// ConditionConfig is the typed configuration for condition nodes. An empty
// expression evaluates to true.
type ConditionConfig struct {
	Expression string `json:"condition"`
}

// ParseConditionConfig parses an untyped node config into a ConditionConfig.
func ParseConditionConfig(config map[string]any) ConditionConfig {
	expression, _ := config["condition"].(string)

	return ConditionConfig{Expression: expression}
}

// TransformConfig is the typed configuration for transform nodes. An
// unrecognized or empty type is treated as pass-through.
type TransformConfig struct {
	Type string `json:"transform_type"`
}

// ParseTransformConfig parses an untyped node config into a TransformConfig.
func ParseTransformConfig(config map[string]any) TransformConfig {
	transformType, _ := config["transform_type"].(string)
	if transformType == "" {
		transformType, _ = config["type"].(string)
	}

	return TransformConfig{Type: strings.ToLower(transformType)}
}

func requireString(config map[string]any, field string) (string, error) {
	value, ok := config[field].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("missing required field '%s'", field)
	}

	return value, nil
}

// asInt accepts the numeric types JSON decoding produces.
func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
