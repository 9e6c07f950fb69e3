package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// GetDashboard - Everything the main view needs in one payload: aggregate
// stats, the traffic chart window, one latest record per active device, and
// the protocol breakdown.
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	stats, ok := h.Reconciler.Stats()
	counts := h.Reconciler.Counts()

	payload := fiber.Map{
		"stats_ready":    ok,
		"devices":        counts.Devices,
		"online_devices": counts.OnlineDevices,
		"vpn_alerts":     stats.VPNAlerts,
		"bandwidth":      string(stats.Bandwidth),
		"upload_speed":   stats.UploadSpeed,
		"download_speed": stats.DownloadSpeed,
		"protocols":      stats.Protocols,
		"traffic_series": h.Reconciler.TrafficSeries(),
		"recent":         h.Reconciler.RecentPerDevice(0),
	}
	return c.JSON(payload)
}

// GetActivity - The recent-activity ring, newest first. Supports
// ?severity=MEDIUM to hide lower-severity records.
func (h *Handler) GetActivity(c *fiber.Ctx) error {
	return c.JSON(h.Reconciler.Activity(c.Query("severity")))
}

// GetAlerts - Current flagged detections
func (h *Handler) GetAlerts(c *fiber.Ctx) error {
	return c.JSON(h.Reconciler.Alerts())
}
