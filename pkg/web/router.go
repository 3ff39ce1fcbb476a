package web

import (
	"github.com/gofiber/fiber/v3"
)

// RegisterRoutes attaches every API endpoint to the app.
func RegisterRoutes(app *fiber.App, handlers *APIHandlers) {
	app.Get("/health", handlers.HealthCheck)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/nodes", handlers.AddNode)
	w.Post("/:id/connections", handlers.Connect)
	w.Patch("/:id/config", handlers.UpdateConfig)
	w.Get("/:id/validate", handlers.ValidateWorkflow)
	w.Get("/:id/analytics", handlers.GetWorkflowAnalytics)
	w.Post("/:id/execute", handlers.ExecuteWorkflow)
	w.Post("/:id/template", handlers.CreateTemplate)

	e := app.Group("/executions")
	e.Get("/:id", handlers.GetExecutionStatus)
	e.Post("/:id/cancel", handlers.CancelExecution)

	t := app.Group("/templates")
	t.Get("/", handlers.GetTemplates)
	t.Get("/:id", handlers.GetTemplate)
	t.Post("/:id/materialize", handlers.MaterializeTemplate)

	app.Post("/plans", handlers.MaterializePlan)
}
