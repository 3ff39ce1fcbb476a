package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/loomflow/loom/pkg/channels/gochannel"
	"github.com/loomflow/loom/pkg/channels/kafka"
	"github.com/loomflow/loom/pkg/eventbus"
)

// NewEventBus builds an event bus for the given provider. "kafka" requires
// KAFKA_BROKERS; everything else falls back to the in-memory channel.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, "loom")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	}
}
