// Package main provides the Loom trigger dispatcher service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/loomflow/loom/pkg/cmd"
	"github.com/loomflow/loom/pkg/engine"
	"github.com/loomflow/loom/pkg/log"
	"github.com/loomflow/loom/pkg/otelhelper"
	"github.com/loomflow/loom/pkg/protocol"
	"github.com/loomflow/loom/pkg/triggers/queue"
	"github.com/loomflow/loom/pkg/triggers/schedule"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	command := &cli.Command{
		Name:                  "loom-dispatcher",
		Usage:                 "Fire workflow executions from schedules and queues",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "queue-name",
				Usage:   "Redis list to consume trigger messages from (disabled if empty)",
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the queue trigger",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password for the queue trigger",
				Sources: cli.EnvVars("REDIS_PASSWORD"),
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database for the queue trigger",
				Sources: cli.EnvVars("REDIS_DB"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OTLP trace export",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	dispatcherID := command.String("dispatcher-id")
	if dispatcherID == "" {
		dispatcherID = fmt.Sprintf("dispatcher-%s", uuid.New().String()[:8])
	}

	logger := log.WithModule("dispatcher").With("dispatcher_id", dispatcherID)

	logger.InfoContext(ctx, "Initializing Loom Dispatcher")

	registry := cmd.NewRegistry(logger)

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	var tracer trace.Tracer
	if command.Bool("tracing") {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, "loom-dispatcher")
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)
		}
	}

	executionEngine := engine.NewEngine(logger, persistence, registry, eventBus, tracer, engine.Config{})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewDispatcher(persistence, logger)

	err := scheduler.Start(runCtx, fireCallback(executionEngine, logger, schedule.TriggerType))
	if err != nil {
		return fmt.Errorf("failed to start schedule dispatcher: %w", err)
	}

	var queueDispatcher *queue.Dispatcher

	if queueName := command.String("queue-name"); queueName != "" {
		queueDispatcher = queue.NewDispatcher(queue.Config{
			Addr:     command.String("redis-addr"),
			Password: command.String("redis-password"),
			DB:       command.Int("redis-db"),
			Queue:    queueName,
		}, logger)

		err := queueDispatcher.Start(runCtx, fireCallback(executionEngine, logger, "queue"))
		if err != nil {
			return fmt.Errorf("failed to start queue dispatcher: %w", err)
		}
	}

	logger.InfoContext(runCtx, "Dispatcher started, waiting for triggers")

	<-runCtx.Done()

	logger.Info("Shutting down dispatcher")

	shutdownCtx := context.Background()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error("Failed to stop schedule dispatcher", "error", err)
	}

	if queueDispatcher != nil {
		if err := queueDispatcher.Stop(shutdownCtx); err != nil {
			logger.Error("Failed to stop queue dispatcher", "error", err)
		}
	}

	return nil
}

func fireCallback(executionEngine *engine.Engine, logger *slog.Logger, triggeredBy string) protocol.TriggerCallback {
	return func(ctx context.Context, workflowID string, inputData map[string]any) error {
		execution, err := executionEngine.Execute(ctx, workflowID, triggeredBy, inputData)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to start triggered execution",
				"workflow_id", workflowID,
				"triggered_by", triggeredBy,
				"error", err)

			return err
		}

		logger.InfoContext(ctx, "Triggered execution started",
			"workflow_id", workflowID,
			"execution_id", execution.ID,
			"triggered_by", triggeredBy)

		return nil
	}
}
