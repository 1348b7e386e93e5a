package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/service"
	"github.com/tunegrid/api/pkg/response"
)

type TaskHandler struct {
	tasks     *service.TaskService
	validator *validator.Validate
}

func NewTaskHandler(tasks *service.TaskService, v *validator.Validate) *TaskHandler {
	return &TaskHandler{
		tasks:     tasks,
		validator: v,
	}
}

// List handles GET /api/tasks
func (h *TaskHandler) List(c *fiber.Ctx) error {
	filter := model.TaskFilter{
		ScheduleID: c.Query("scheduleId"),
		Limit:      c.QueryInt("limit"),
		Offset:     c.QueryInt("offset"),
	}
	if status := c.Query("status"); status != "" {
		filter.Status = model.TaskStatus(status)
	}

	tasks, err := h.tasks.List(c.Context(), filter)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, tasks)
}

// Get handles GET /api/tasks/:id
func (h *TaskHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	task, err := h.tasks.Get(c.Context(), id)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if task == nil {
		return response.NotFound(c, "Task not found")
	}
	return response.OK(c, task)
}

// Summary handles GET /api/tasks/summary
func (h *TaskHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.tasks.Summary(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, summary)
}

// Retry handles POST /api/tasks/:id/retry
func (h *TaskHandler) Retry(c *fiber.Ctx) error {
	id := c.Params("id")
	task, err := h.tasks.Retry(c.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return response.NotFound(c, "Task not found")
		}
		if errors.Is(err, model.ErrInvalidTransition) {
			return response.Conflict(c, "Only failed tasks can be retried")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, task)
}

// Cancel handles POST /api/tasks/:id/cancel
func (h *TaskHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	task, err := h.tasks.Cancel(c.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return response.NotFound(c, "Task not found")
		}
		if errors.Is(err, model.ErrInvalidTransition) {
			return response.Conflict(c, "Deployed tasks cannot be cancelled")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, task)
}

// Purge handles POST /api/tasks/purge
func (h *TaskHandler) Purge(c *fiber.Ctx) error {
	var req model.PurgeTasksRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	removed, err := h.tasks.PurgeFailed(c.Context(), req.Days)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"removed": removed})
}
