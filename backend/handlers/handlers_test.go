package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netvisor-console/backend/models"
	"netvisor-console/backend/services"
)

func newTestApp(t *testing.T, upstreamHandler http.HandlerFunc) (*fiber.App, *services.Reconciler) {
	t.Helper()

	var upstreamURL string
	if upstreamHandler != nil {
		srv := httptest.NewServer(upstreamHandler)
		t.Cleanup(srv.Close)
		upstreamURL = srv.URL
	} else {
		upstreamURL = "http://127.0.0.1:1" // connection refused
	}

	rec := services.NewReconciler()
	events := services.NewEventLog()
	upstream := services.NewUpstreamClient(upstreamURL)
	stream := services.NewEventStream("ws://unused", rec, events)
	webhook := services.NewWebhookService()

	h := NewHandler(rec, upstream, stream, events, webhook)

	app := fiber.New()
	api := app.Group("/api")
	api.Get("/devices", h.GetDevices)
	api.Get("/devices/:ip", h.GetDevice)
	api.Post("/device/rename", h.RenameDevice)
	api.Get("/dashboard", h.GetDashboard)
	api.Get("/activity", h.GetActivity)
	api.Get("/alerts", h.GetAlerts)
	api.Get("/events", h.GetEvents)
	api.Get("/health", h.GetHealth)
	return app, rec
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out))
}

func TestGetDevices(t *testing.T) {
	t.Parallel()
	app, rec := newTestApp(t, nil)

	rec.ApplyDeviceSnapshot([]models.DeviceSnapshotEntry{
		{IP: "192.168.0.10", Hostname: "laptop", RiskScore: 80},
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/devices", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var devices []models.Device
	decodeBody(t, resp, &devices)
	require.Len(t, devices, 1)
	assert.Equal(t, "laptop", devices[0].Hostname)
	assert.Equal(t, models.RiskHigh, devices[0].RiskLevel)
}

func TestGetDeviceNotFound(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/devices/10.0.0.99", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestGetActivitySeverityFilter(t *testing.T) {
	t.Parallel()
	app, rec := newTestApp(t, nil)

	rec.ApplyActivitySnapshot([]models.ActivitySnapshotEntry{
		{SourceIP: "10.0.0.1", Protocol: "DNS", Severity: models.SeverityLow},
		{SourceIP: "10.0.0.2", Protocol: "TLS", Severity: models.SeverityHigh},
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/activity?severity=HIGH", nil))
	require.NoError(t, err)

	var records []models.ActivityRecord
	decodeBody(t, resp, &records)
	require.Len(t, records, 1)
	assert.Equal(t, "10.0.0.2", records[0].SourceIP)
}

func TestGetDashboard(t *testing.T) {
	t.Parallel()
	app, rec := newTestApp(t, nil)

	rec.ApplyStatsSnapshot(models.StatsSnapshot{
		Devices:   3,
		Bandwidth: "7.50 MB",
		Protocols: map[string]int{"DNS": 5},
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var payload struct {
		StatsReady    bool                  `json:"stats_ready"`
		Bandwidth     string                `json:"bandwidth"`
		Protocols     map[string]int        `json:"protocols"`
		TrafficSeries []models.TrafficPoint `json:"traffic_series"`
	}
	decodeBody(t, resp, &payload)
	assert.True(t, payload.StatsReady)
	assert.Equal(t, "7.50 MB", payload.Bandwidth)
	assert.Equal(t, 5, payload.Protocols["DNS"])
	require.Len(t, payload.TrafficSeries, 1)
}

func TestRenameDevice(t *testing.T) {
	t.Parallel()
	app, rec := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.RenameResult{Success: true})
	})

	rec.ApplyDeviceSnapshot([]models.DeviceSnapshotEntry{{IP: "192.168.0.10", Hostname: "old"}})

	body, _ := json.Marshal(models.RenameRequest{IP: "192.168.0.10", Name: "new"})
	req := httptest.NewRequest(http.MethodPost, "/api/device/rename", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var result struct {
		Success   bool   `json:"success"`
		RequestID string `json:"request_id"`
	}
	decodeBody(t, resp, &result)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.RequestID)

	// Optimistic name visible immediately, intent still pending until the
	// stream acknowledgement.
	d, _ := rec.Device("192.168.0.10")
	assert.Equal(t, "new", d.Hostname)
	_, pending := rec.PendingRename("192.168.0.10")
	assert.True(t, pending)
}

func TestRenameDeviceUnknown(t *testing.T) {
	t.Parallel()
	app, _ := newTestApp(t, nil)

	body, _ := json.Marshal(models.RenameRequest{IP: "10.0.0.99", Name: "new"})
	req := httptest.NewRequest(http.MethodPost, "/api/device/rename", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRenameDeviceUpstreamRejects(t *testing.T) {
	t.Parallel()
	app, rec := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.RenameResult{Success: false, Error: "name already taken"})
	})

	rec.ApplyDeviceSnapshot([]models.DeviceSnapshotEntry{{IP: "192.168.0.10", Hostname: "old"}})

	body, _ := json.Marshal(models.RenameRequest{IP: "192.168.0.10", Name: "new"})
	req := httptest.NewRequest(http.MethodPost, "/api/device/rename", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	// Synchronous rejection rolls the hostname back right away.
	d, _ := rec.Device("192.168.0.10")
	assert.Equal(t, "old", d.Hostname)
}

func TestRenameDeviceUpstreamUnreachable(t *testing.T) {
	t.Parallel()
	app, rec := newTestApp(t, nil)

	rec.ApplyDeviceSnapshot([]models.DeviceSnapshotEntry{{IP: "192.168.0.10", Hostname: "old"}})

	body, _ := json.Marshal(models.RenameRequest{IP: "192.168.0.10", Name: "new"})
	req := httptest.NewRequest(http.MethodPost, "/api/device/rename", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 15000)
	require.NoError(t, err)
	assert.Equal(t, 502, resp.StatusCode)

	d, _ := rec.Device("192.168.0.10")
	assert.Equal(t, "old", d.Hostname)
}

func TestGetHealth(t *testing.T) {
	t.Parallel()
	app, rec := newTestApp(t, nil)

	rec.ApplyDeviceSnapshot([]models.DeviceSnapshotEntry{{IP: "192.168.0.10"}})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var payload struct {
		Status          string `json:"status"`
		StreamConnected bool   `json:"stream_connected"`
		Model           struct {
			Devices int `json:"devices"`
		} `json:"model"`
	}
	decodeBody(t, resp, &payload)
	assert.Equal(t, "ok", payload.Status)
	assert.False(t, payload.StreamConnected)
	assert.Equal(t, 1, payload.Model.Devices)
}
