package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/tunegrid/api/internal/model"
	"github.com/tunegrid/api/internal/service"
	"github.com/tunegrid/api/pkg/response"
)

type DeployHandler struct {
	deployer  *service.DeployService
	validator *validator.Validate
}

func NewDeployHandler(deployer *service.DeployService, v *validator.Validate) *DeployHandler {
	return &DeployHandler{
		deployer:  deployer,
		validator: v,
	}
}

// Deploy handles POST /api/deploy
func (h *DeployHandler) Deploy(c *fiber.Ctx) error {
	var req model.DeployBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result := h.deployer.DeployTracks(c.Context(), req.Tracks)
	return response.OK(c, result)
}
