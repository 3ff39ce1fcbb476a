package models

import "time"

// TemplateNode is a node snapshot addressed by a workflow-local temporary
// id instead of a live node id.
type TemplateNode struct {
	TempID      string         `json:"temp_id"`
	Kind        NodeKind       `json:"kind"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
	Position    Position       `json:"position"`
}

// TemplateConnection is a connection snapshot whose endpoints reference
// temporary node ids.
type TemplateConnection struct {
	SourceTempID string `json:"source_temp_id"`
	TargetTempID string `json:"target_temp_id"`
	SourceOutput string `json:"source_output"`
	TargetInput  string `json:"target_input"`
	Condition    string `json:"condition,omitempty"`
}

// Template is a portable, re-parameterizable snapshot of a workflow's
// structure. Materializing a template always regenerates node and
// connection identities, so a template never collides with a live workflow.
type Template struct {
	ID                    string               `json:"id"`
	Name                  string               `json:"name"        validate:"required,min=3"`
	Description           string               `json:"description"`
	Category              string               `json:"category"`
	UseCases              []string             `json:"use_cases,omitempty"`
	Nodes                 []TemplateNode       `json:"nodes"`
	Connections           []TemplateConnection `json:"connections"`
	Variables             map[string]any       `json:"variables,omitempty"`
	TriggerConfig         map[string]any       `json:"trigger_config,omitempty"`
	EstimatedSetupMinutes int                  `json:"estimated_setup_minutes"`
	DifficultyLevel       string               `json:"difficulty_level"`
	Tags                  []string             `json:"tags,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
}

// Clone returns a deep copy sharing no mutable state with the original.
func (t *Template) Clone() *Template {
	clone := *t

	clone.Nodes = make([]TemplateNode, len(t.Nodes))
	for i, node := range t.Nodes {
		clone.Nodes[i] = node
		clone.Nodes[i].Config = CopyMap(node.Config)
	}

	clone.Connections = make([]TemplateConnection, len(t.Connections))
	copy(clone.Connections, t.Connections)

	clone.UseCases = append([]string(nil), t.UseCases...)
	clone.Tags = append([]string(nil), t.Tags...)
	clone.Variables = CopyMap(t.Variables)
	clone.TriggerConfig = CopyMap(t.TriggerConfig)

	return &clone
}
