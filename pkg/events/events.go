// Package events defines event types and structures for execution lifecycle notifications.
package events

import "time"

type EventType string

// Topic carries every execution lifecycle event.
const Topic = "loom.executions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"
	NodeFinishedEvent       EventType = "execution.node.finished"
)

type BaseEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
}

type ExecutionStarted struct {
	BaseEvent

	TriggeredBy string `json:"triggered_by"`
	NodeCount   int    `json:"node_count"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Error  string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	CompletedNodes int `json:"completed_nodes"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type NodeFinished struct {
	BaseEvent

	NodeID   string `json:"node_id"`
	NodeName string `json:"node_name"`
	Status   string `json:"status"`
}

func (e NodeFinished) GetType() EventType {
	return NodeFinishedEvent
}
