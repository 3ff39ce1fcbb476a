package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/loomflow/loom/pkg/engine"
	"github.com/loomflow/loom/pkg/persistence"
	"github.com/loomflow/loom/pkg/plan"
	"github.com/loomflow/loom/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, errType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(errType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service, engine and persistence errors to problem
// documents.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsNodeNotFound(err):
		return notFound(c, "node_not_found", err.Error())

	case errors.Is(err, plan.ErrUnknownTempID):
		return badRequest(c, err.Error())

	case errors.Is(err, plan.ErrInvalidPlan):
		return badRequest(c, err.Error())

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case errors.Is(err, engine.ErrWorkflowNotActive):
		return conflict(c, err.Error())

	case errors.Is(err, engine.ErrWorkflowNotValid):
		return badRequest(c, err.Error())

	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow_not_found", "workflow not found")

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "execution_not_found", "execution not found")

	case persistence.IsTemplateNotFound(err):
		return notFound(c, "template_not_found", "template not found")

	default:
		return internalError(c, err)
	}
}
