package web

import (
	"github.com/gofiber/fiber/v3"
)

// ExecuteWorkflowRequest carries the caller-supplied invocation context for
// a manual run.
type ExecuteWorkflowRequest struct {
	TriggeredBy string         `json:"triggered_by"`
	InputData   map[string]any `json:"input_data"`
}

func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req ExecuteWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if req.TriggeredBy == "" {
		req.TriggeredBy = "manual"
	}

	execution, err := h.engine.Execute(c.Context(), id, req.TriggeredBy, req.InputData)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) GetExecutionStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	status, err := h.engine.GetStatus(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	cancelled := h.engine.Cancel(id)
	if !cancelled {
		return conflict(c, "execution is not running")
	}

	return c.JSON(fiber.Map{
		"execution_id": id,
		"cancelled":    true,
	})
}
