// Package plan ingests externally produced workflow plans and materializes
// them into real workflows. The text-to-plan step itself lives outside this
// system; only its output contract is handled here.
package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/loomflow/loom/pkg/models"
)

// ErrUnknownTempID is returned when a plan edge references a node
// descriptor not present in the plan.
var ErrUnknownTempID = errors.New("unknown temporary node id")

// ErrInvalidPlan is returned when a plan document fails schema validation.
var ErrInvalidPlan = errors.New("invalid plan document")

// PlanNode describes one node to create, addressed by a plan-local
// temporary id.
type PlanNode struct {
	TempID      string          `json:"temp_id"`
	Kind        string          `json:"kind"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Config      map[string]any  `json:"config,omitempty"`
	Position    models.Position `json:"position"`
}

// PlanConnection describes one edge between plan nodes.
type PlanConnection struct {
	SourceTempID string `json:"source_temp_id"`
	TargetTempID string `json:"target_temp_id"`
	SourceOutput string `json:"source_output,omitempty"`
	TargetInput  string `json:"target_input,omitempty"`
}

// Plan is the planner's output: an ordered node list plus edges over
// temporary ids.
type Plan struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Nodes       []PlanNode       `json:"nodes"`
	Connections []PlanConnection `json:"connections,omitempty"`
	Variables   map[string]any   `json:"variables,omitempty"`
}

var planSchema = map[string]any{
	"type":     "object",
	"required": []string{"name", "nodes"},
	"properties": map[string]any{
		"name":        map[string]any{"type": "string", "minLength": 1},
		"description": map[string]any{"type": "string"},
		"nodes": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []string{"temp_id", "kind", "name"},
				"properties": map[string]any{
					"temp_id": map[string]any{"type": "string", "minLength": 1},
					"kind":    map[string]any{"type": "string", "enum": nodeKindNames()},
					"name":    map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
		"connections": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"source_temp_id", "target_temp_id"},
				"properties": map[string]any{
					"source_temp_id": map[string]any{"type": "string", "minLength": 1},
					"target_temp_id": map[string]any{"type": "string", "minLength": 1},
				},
			},
		},
	},
}

func nodeKindNames() []string {
	kinds := models.NodeKinds()
	names := make([]string, len(kinds))

	for i, kind := range kinds {
		names[i] = string(kind)
	}

	return names
}

// ValidateDocument checks an untyped plan document against the plan schema.
func ValidateDocument(document map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(planSchema)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate plan: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			details = append(details, resultError.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidPlan, strings.Join(details, "; "))
	}

	return nil
}
