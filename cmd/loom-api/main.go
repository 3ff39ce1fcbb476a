package main

import (
	"context"
	"os"

	"github.com/loomflow/loom/pkg/cmd"
	"github.com/loomflow/loom/pkg/log"
	"github.com/loomflow/loom/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9090

func main() {
	command := &cli.Command{
		Name:                  "loom-api",
		Usage:                 "Create, manage and execute workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
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
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing Loom API")

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

				tracer, err = otelhelper.NewTracer(ctx, "loom-api")
				if err != nil {
					logger.WarnContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)
				}
			}

			api := NewAPI(
				logger,
				persistence,
				registry,
				eventBus,
				tracer,
			)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
