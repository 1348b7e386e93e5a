package handler

import (
	"context"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/service"
	"github.com/tunegrid/api/pkg/response"
)

type ScheduleHandler struct {
	schedules *service.ScheduleService
	generator *service.GenerationService
	validator *validator.Validate
}

func NewScheduleHandler(schedules *service.ScheduleService, generator *service.GenerationService, v *validator.Validate) *ScheduleHandler {
	return &ScheduleHandler{
		schedules: schedules,
		generator: generator,
		validator: v,
	}
}

// Create handles POST /api/schedules
func (h *ScheduleHandler) Create(c *fiber.Ctx) error {
	var req model.ScheduleCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	sched, err := h.schedules.Create(c.Context(), &req)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	return response.Created(c, sched)
}

// List handles GET /api/schedules
func (h *ScheduleHandler) List(c *fiber.Ctx) error {
	schedules, err := h.schedules.List(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, schedules)
}

// Get handles GET /api/schedules/:id
func (h *ScheduleHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	sched, err := h.schedules.Get(c.Context(), id)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if sched == nil {
		return response.NotFound(c, "Schedule not found")
	}
	return response.OK(c, sched)
}

// Update handles PATCH /api/schedules/:id
func (h *ScheduleHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	var req model.ScheduleUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	sched, err := h.schedules.Update(c.Context(), id, &req)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return response.NotFound(c, "Schedule not found")
		}
		return response.ValidationError(c, err.Error(), nil)
	}
	return response.OK(c, sched)
}

// Delete handles DELETE /api/schedules/:id
func (h *ScheduleHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.schedules.Delete(c.Context(), id); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.NoContent(c)
}

// RunNow handles POST /api/schedules/:id/run
// Fires a schedule immediately without touching its recurrence.
func (h *ScheduleHandler) RunNow(c *fiber.Ctx) error {
	id := c.Params("id")
	sched, err := h.schedules.Get(c.Context(), id)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	if sched == nil {
		return response.NotFound(c, "Schedule not found")
	}

	go func() {
		result, err := h.generator.ExecuteAdhoc(context.Background(), &model.AdhocRunRequest{
			Name:             sched.Name,
			Style:            sched.Style,
			Mood:             sched.Mood,
			GenerationCount:  sched.GenerationCount,
			PromptTemplateID: sched.PromptTemplateID,
			AutoDeploy:       sched.AutoDeploy,
		})
		if err != nil {
			log.Printf("[API] run-now for schedule %s failed: %v", id, err)
			return
		}
		log.Printf("[API] run-now for schedule %s: %d tasks created", id, result.TasksCreated)
	}()

	return response.Accepted(c, fiber.Map{"scheduleId": id, "status": "started"})
}

// RunAdhoc handles POST /api/runs
func (h *ScheduleHandler) RunAdhoc(c *fiber.Ctx) error {
	var req model.AdhocRunRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	go func() {
		result, err := h.generator.ExecuteAdhoc(context.Background(), &req)
		if err != nil {
			log.Printf("[API] ad-hoc run %q failed: %v", req.Name, err)
			return
		}
		log.Printf("[API] ad-hoc run %q: %d tasks created", req.Name, result.TasksCreated)
	}()

	return response.Accepted(c, fiber.Map{"status": "started"})
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
