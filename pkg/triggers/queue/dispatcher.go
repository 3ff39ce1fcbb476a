// Package queue provides the Redis-backed trigger dispatcher. Messages
// pushed onto a Redis list are consumed as workflow run requests.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/loomflow/loom/pkg/protocol"
)

const popTimeout = 1 * time.Second

// Message is the run request format expected on the queue.
type Message struct {
	WorkflowID string         `json:"workflow_id"`
	Input      map[string]any `json:"input,omitempty"`
}

// Config holds the dispatcher's connection and queue settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// ParseConfig extracts dispatcher settings from an untyped config map.
func ParseConfig(raw map[string]any) (Config, error) {
	config := Config{
		Addr: "localhost:6379",
	}

	if addr, ok := raw["addr"].(string); ok && addr != "" {
		config.Addr = addr
	}

	if password, ok := raw["password"].(string); ok {
		config.Password = password
	}

	switch db := raw["db"].(type) {
	case float64:
		config.DB = int(db)
	case int:
		config.DB = db
	case string:
		parsed, err := strconv.Atoi(db)
		if err != nil {
			return Config{}, fmt.Errorf("invalid db value %q: %w", db, err)
		}

		config.DB = parsed
	case nil:
	default:
		return Config{}, fmt.Errorf("invalid db value %v", db)
	}

	queue, _ := raw["queue"].(string)
	if queue == "" {
		return Config{}, errors.New("queue name is required")
	}

	config.Queue = queue

	return config, nil
}

// Dispatcher consumes run requests from a Redis list and fires the trigger
// callback per message.
type Dispatcher struct {
	config   Config
	logger   *slog.Logger
	client   redis.UniversalClient
	callback protocol.TriggerCallback
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewDispatcher creates a new queue dispatcher.
func NewDispatcher(config Config, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		config: config,
		logger: logger.With(
			"module", "queue_dispatcher",
			"queue", config.Queue,
		),
		stopCh: make(chan struct{}),
	}
}

// Start connects to Redis and begins consuming run requests.
func (d *Dispatcher) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	d.callback = callback

	d.client = redis.NewClient(&redis.Options{
		Addr:     d.config.Addr,
		Password: d.config.Password,
		DB:       d.config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	d.logger.Info("Connected to Redis", "addr", d.config.Addr, "db", d.config.DB)

	d.wg.Add(1)

	go d.consume(ctx)

	return nil
}

func (d *Dispatcher) consume(ctx context.Context) {
	defer d.wg.Done()

	d.logger.Info("Starting queue consumer")

	for {
		select {
		case <-d.stopCh:
			d.logger.Info("Queue consumer stopped")

			return
		case <-ctx.Done():
			d.logger.Info("Context cancelled, stopping queue consumer")

			return
		default:
			if err := d.processMessage(ctx); err != nil {
				d.logger.Error("Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (d *Dispatcher) processMessage(ctx context.Context) error {
	result, err := d.client.BLPop(ctx, popTimeout, d.config.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	message, err := DecodeMessage([]byte(result[1]))
	if err != nil {
		d.logger.Warn("Dropping malformed queue message", "error", err)

		return nil
	}

	go func() {
		if err := d.callback(ctx, message.WorkflowID, message.Input); err != nil {
			d.logger.Error("Error executing workflow for queue message",
				"workflow_id", message.WorkflowID, "error", err)
		}
	}()

	return nil
}

// DecodeMessage parses and checks one queue payload.
func DecodeMessage(payload []byte) (*Message, error) {
	var message Message
	if err := json.Unmarshal(payload, &message); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	if message.WorkflowID == "" {
		return nil, errors.New("message is missing workflow_id")
	}

	if message.Input == nil {
		message.Input = map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
	}

	return &message, nil
}

// Stop halts the consumer loop and closes the Redis client.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.logger.Info("Stopping queue dispatcher")

	close(d.stopCh)
	d.wg.Wait()

	if d.client != nil {
		if err := d.client.Close(); err != nil {
			d.logger.Error("Error closing Redis client", "error", err)
		}
	}

	return nil
}
