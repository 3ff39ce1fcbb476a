package web

import (
	"github.com/gofiber/fiber/v3"

	"github.com/loomflow/loom/pkg/plan"
	"github.com/loomflow/loom/pkg/template"
)

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	templates, err := h.templateService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"templates":   templates,
		"total_count": len(templates),
	})
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	found, err := h.templateService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req template.CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.templateService.CreateTemplateFromWorkflow(c.Context(), id, req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// MaterializeTemplateRequest names the owner of the workflow created from a
// template.
type MaterializeTemplateRequest struct {
	CreatedBy string `json:"created_by"`
}

func (h *APIHandlers) MaterializeTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	var req MaterializeTemplateRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	workflow, err := h.templateService.MaterializeTemplate(c.Context(), id, req.CreatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

// MaterializePlanRequest wraps a planner-produced plan with its owner.
type MaterializePlanRequest struct {
	CreatedBy string    `json:"created_by"`
	Plan      plan.Plan `json:"plan"`
}

func (h *APIHandlers) MaterializePlan(c fiber.Ctx) error {
	var req MaterializePlanRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	workflow, err := h.materializer.MaterializePlan(c.Context(), &req.Plan, req.CreatedBy)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}
