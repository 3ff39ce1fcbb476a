// Package eventbus provides publish/subscribe for execution lifecycle events.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/loomflow/loom/pkg/events"
)

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

type Event interface {
	GetType() events.EventType
}

type EventHandler func(ctx context.Context, event Event) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.GetType(), err)
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context, handler EventHandler) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			event, err := unmarshalEvent(msg)
			if err != nil {
				msg.Nack()
				continue
			}

			if err := handler(ctx, event); err != nil {
				msg.Nack()
				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func unmarshalEvent(msg *message.Message) (Event, error) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	var event Event

	switch eventType {
	case events.ExecutionStartedEvent:
		event = &events.ExecutionStarted{}
	case events.ExecutionCompletedEvent:
		event = &events.ExecutionCompleted{}
	case events.ExecutionFailedEvent:
		event = &events.ExecutionFailed{}
	case events.ExecutionCancelledEvent:
		event = &events.ExecutionCancelled{}
	case events.NodeFinishedEvent:
		event = &events.NodeFinished{}
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	if err := json.Unmarshal(msg.Payload, event); err != nil {
		return nil, err
	}

	return event, nil
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}
