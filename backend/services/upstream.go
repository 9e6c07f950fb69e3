package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"netvisor-console/backend/models"
)

// UpstreamClient talks to the monitoring service's REST API. Every call
// decodes the full payload before returning, so a malformed response never
// leaks a half-parsed snapshot to the caller; the poll tick is simply
// skipped and the previous model stands.
type UpstreamClient struct {
	baseURL string
	client  *http.Client
}

// NewUpstreamClient creates a client for the given base URL, e.g.
// "http://192.168.0.10:8080".
func NewUpstreamClient(baseURL string) *UpstreamClient {
	return &UpstreamClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Devices fetches the full device inventory snapshot.
func (u *UpstreamClient) Devices(ctx context.Context) ([]models.DeviceSnapshotEntry, error) {
	var entries []models.DeviceSnapshotEntry
	if err := u.getJSON(ctx, "/api/devices", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Activity fetches the recent-activity snapshot.
func (u *UpstreamClient) Activity(ctx context.Context) ([]models.ActivitySnapshotEntry, error) {
	var entries []models.ActivitySnapshotEntry
	if err := u.getJSON(ctx, "/api/activity", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Stats fetches the aggregate stats snapshot.
func (u *UpstreamClient) Stats(ctx context.Context) (models.StatsSnapshot, error) {
	var stats models.StatsSnapshot
	if err := u.getJSON(ctx, "/api/stats", &stats); err != nil {
		return models.StatsSnapshot{}, err
	}
	return stats, nil
}

// Alerts fetches the current alerts snapshot. The upstream names the route
// vpn-alerts; the console re-exposes it as plain /api/alerts.
func (u *UpstreamClient) Alerts(ctx context.Context) ([]models.AlertSnapshotEntry, error) {
	var entries []models.AlertSnapshotEntry
	if err := u.getJSON(ctx, "/api/vpn-alerts", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// RenameDevice submits a hostname change. A nil error means the request was
// delivered and parsed; the result carries the server's verdict. The rename
// is not final until the acknowledgement arrives on the event stream.
func (u *UpstreamClient) RenameDevice(ctx context.Context, req models.RenameRequest) (models.RenameResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.RenameResult{}, fmt.Errorf("failed to marshal rename request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/device/rename", bytes.NewReader(body))
	if err != nil {
		return models.RenameResult{}, fmt.Errorf("failed to create rename request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(httpReq)
	if err != nil {
		return models.RenameResult{}, fmt.Errorf("rename request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return models.RenameResult{}, fmt.Errorf("rename returned status %d", resp.StatusCode)
	}

	var result models.RenameResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.RenameResult{}, fmt.Errorf("failed to decode rename response: %w", err)
	}
	return result, nil
}

func (u *UpstreamClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
