// Package main provides the Loom API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/loomflow/loom/pkg/engine"
	"github.com/loomflow/loom/pkg/eventbus"
	"github.com/loomflow/loom/pkg/persistence"
	"github.com/loomflow/loom/pkg/plan"
	"github.com/loomflow/loom/pkg/registry"
	"github.com/loomflow/loom/pkg/services"
	"github.com/loomflow/loom/pkg/template"
	"github.com/loomflow/loom/pkg/web"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workflowService := services.NewWorkflow(a.persistence)
	templateService := template.NewService(a.persistence)
	materializer := plan.NewMaterializer(a.persistence)
	executionEngine := engine.NewEngine(a.logger, a.persistence, a.registry, a.eventBus, a.tracer, engine.Config{})

	handlers := web.NewAPIHandlers(workflowService, templateService, materializer, executionEngine, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Loom API")
	})

	web.RegisterRoutes(app, handlers)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
