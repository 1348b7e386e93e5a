package handler

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/tunegrid/api/pkg/response"
)

// CallbackHandler receives provider webhooks. Polling is the source of
// truth for task state; callbacks are acknowledged and logged only, so
// a replayed or early webhook can never move a task.
type CallbackHandler struct{}

func NewCallbackHandler() *CallbackHandler {
	return &CallbackHandler{}
}

// Music handles POST /api/callbacks/music
func (h *CallbackHandler) Music(c *fiber.Ctx) error {
	var payload struct {
		TaskID string `json:"taskId"`
		Status string `json:"status"`
	}
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("[Callback] unparseable music webhook: %v", err)
		return response.OK(c, fiber.Map{"received": true})
	}

	log.Printf("[Callback] music webhook for %s (status %s), deferring to poll cycle", payload.TaskID, payload.Status)
	return response.OK(c, fiber.Map{"received": true})
}
