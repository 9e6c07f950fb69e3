package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"netvisor-console/backend/models"
	"netvisor-console/backend/services"
	"netvisor-console/backend/system"
)

// GetDevices - List the reconciled device table, online devices first
func (h *Handler) GetDevices(c *fiber.Ctx) error {
	return c.JSON(h.Reconciler.Devices())
}

// GetDevice - Single device by IP
func (h *Handler) GetDevice(c *fiber.Ctx) error {
	ip := c.Params("ip")
	device, ok := h.Reconciler.Device(ip)
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "device not found"})
	}
	return c.JSON(device)
}

// RenameDevice - Submit a hostname change. The new name shows up immediately
// in the device table; confirmation arrives asynchronously on the event
// stream, and a rejection or timeout rolls the name back.
func (h *Handler) RenameDevice(c *fiber.Ctx) error {
	var req models.RenameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid input"})
	}
	if req.IP == "" || req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "ip and name are required"})
	}

	intent, err := h.Reconciler.ProposeRename(req.IP, req.MAC, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrUnknownDevice) {
			return c.Status(404).JSON(fiber.Map{"error": "device not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.Upstream.RenameDevice(c.Context(), req)
	if err != nil {
		system.Warn("Rename submission for %s failed: %v", req.IP, err)
		h.Reconciler.ApplyRenameAck(req.IP, false, err.Error())
		return c.Status(502).JSON(fiber.Map{"error": "upstream unreachable: " + err.Error()})
	}
	if !result.Success {
		h.Reconciler.ApplyRenameAck(req.IP, false, result.Error)
		return c.Status(400).JSON(fiber.Map{"error": result.Error})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"request_id": intent.ID,
		"ip":         intent.IP,
		"hostname":   intent.ProposedHostname,
	})
}
