package handlers

import (
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
)

var startTime = time.Now()

// GetEvents - The console event feed, newest first
func (h *Handler) GetEvents(c *fiber.Ctx) error {
	return c.JSON(h.Events.Events())
}

// GetHealth - Console liveness plus model and stream state
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":           "ok",
		"os":               runtime.GOOS,
		"uptime":           time.Since(startTime).Round(time.Second).String(),
		"stream_connected": h.Stream.Connected(),
		"model":            h.Reconciler.Counts(),
	})
}

// TestWebhook - Fire a test notification to the configured Discord webhook
func (h *Handler) TestWebhook(c *fiber.Ctx) error {
	if err := h.Webhook.SendTestAlert(); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}
