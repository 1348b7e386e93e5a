package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/tunegrid/api/internal/client"
	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/service"
	"github.com/tunegrid/api/pkg/response"
)

type TitleHandler struct {
	titles    *service.TitlePoolService
	validator *validator.Validate
}

func NewTitleHandler(titles *service.TitlePoolService, v *validator.Validate) *TitleHandler {
	return &TitleHandler{
		titles:    titles,
		validator: v,
	}
}

// Remaining handles GET /api/titles/:category
func (h *TitleHandler) Remaining(c *fiber.Ctx) error {
	category := c.Params("category")
	count, err := h.titles.Remaining(c.Context(), category)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"category": category, "remaining": count})
}

// Append handles POST /api/titles
func (h *TitleHandler) Append(c *fiber.Ctx) error {
	var req model.TitleAppendRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	added, err := h.titles.Append(c.Context(), req.Category, req.Entries)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"added": added})
}

// Generate handles POST /api/titles/generate
func (h *TitleHandler) Generate(c *fiber.Ctx) error {
	var req model.TitleGenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	added, err := h.titles.Generate(c.Context(), req.Category, req.Count)
	if err != nil {
		if errors.Is(err, client.ErrProviderUnavailable) {
			return response.ProviderError(c, "Text provider is not configured")
		}
		return response.ProviderError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"added": added})
}

// Reset handles POST /api/titles/:category/reset
func (h *TitleHandler) Reset(c *fiber.Ctx) error {
	category := c.Params("category")
	reset, err := h.titles.ResetUsed(c.Context(), category)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"reset": reset})
}
