package services

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"netvisor-console/backend/models"
	"netvisor-console/backend/system"
)

const (
	// DefaultActivityCap bounds the recent-activity ring.
	DefaultActivityCap = 50
	// DefaultSeriesCap bounds the dashboard traffic time series.
	DefaultSeriesCap = 20
	// DefaultIntentTTL bounds how long a rename may stay unacknowledged
	// before the optimistic hostname is rolled back. Three device polls.
	DefaultIntentTTL = 15 * time.Second

	dashboardRecentCap = 5
	highAlertScore     = 0.8
)

// ErrUnknownDevice is returned when a rename targets an IP not in the table.
var ErrUnknownDevice = errors.New("device not found")

// Reconciler owns the canonical in-memory model: the device table, the
// bounded activity ring, the current alerts, the aggregate stats and the
// traffic time series. Snapshot polls and push events both funnel into the
// Apply* entry points; presentation reads go through the accessors and never
// mutate state. Every Apply* runs to completion under the lock, so readers
// always observe a fully applied model.
//
// There are no sequence numbers on either source. Convergence relies on the
// merge rules: latest-wins per field, snapshot-authoritative traffic totals,
// and rename-intent precedence for hostnames.
type Reconciler struct {
	Clock quartz.Clock

	geoip   *GeoIPService
	events  *EventLog
	webhook *WebhookService

	mu       sync.RWMutex
	devices  map[string]*models.Device
	activity []models.ActivityRecord // newest first
	alerts   []models.Alert
	stats    models.StatsSnapshot
	statsSet bool
	series   []models.TrafficPoint // oldest first
	intents  map[string]*models.RenameIntent

	activityCap int
	seriesCap   int
	intentTTL   time.Duration
}

// NewReconciler creates an empty model store.
func NewReconciler() *Reconciler {
	return &Reconciler{
		Clock:       quartz.NewReal(),
		devices:     make(map[string]*models.Device),
		intents:     make(map[string]*models.RenameIntent),
		activityCap: DefaultActivityCap,
		seriesCap:   DefaultSeriesCap,
		intentTTL:   DefaultIntentTTL,
	}
}

// SetServices connects optional collaborators for enrichment, the console
// event feed and user notifications.
func (r *Reconciler) SetServices(geoip *GeoIPService, events *EventLog, webhook *WebhookService) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.geoip = geoip
	r.events = events
	r.webhook = webhook
}

// ApplyDeviceSnapshot merges a full inventory snapshot: replace-and-diff.
// Devices absent from the snapshot are removed; new ones are inserted online
// unless the snapshot marks them offline. The hostname is the one field a
// snapshot may not touch while a rename intent is pending (or when the
// incoming value is empty), and the traffic total is replaced, never added,
// so bytes already attributed by packet events are not double-counted.
// Applying the same snapshot twice is a no-op the second time.
func (r *Reconciler) ApplyDeviceSnapshot(entries []models.DeviceSnapshotEntry) {
	for _, e := range entries {
		if e.IP == "" {
			system.Warn("Device snapshot discarded: entry without IP")
			return
		}
	}

	now := r.Clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireIntentsLocked(now)

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.IP] = struct{}{}

		d, ok := r.devices[e.IP]
		if !ok {
			d = &models.Device{IP: e.IP}
			r.devices[e.IP] = d
		}

		d.MAC = e.MAC
		d.Type = e.Type
		d.Brand = e.Brand
		d.OS = e.OS
		d.TrafficBytes = e.Bytes() // authoritative total
		d.IsOnline = e.Online()
		d.RiskScore = e.RiskScore
		if !e.LastSeen.IsZero() {
			d.LastSeen = e.LastSeen.Time
		}

		if e.Hostname != "" {
			if _, pending := r.intents[e.IP]; !pending {
				d.Hostname = e.Hostname
			}
		}
	}

	for ip := range r.devices {
		if _, ok := seen[ip]; !ok {
			delete(r.devices, ip)
			r.logEventLocked("info", "Device %s no longer reported, removed from inventory", ip)
		}
	}
}

// ApplyPacketEvent applies one incremental packet observation. This is the
// only path besides a snapshot that can create a device; the synthesized
// record is minimal (no hostname) until a snapshot fills it in. Traffic
// accumulates here, unlike the snapshot's replace.
func (r *Reconciler) ApplyPacketEvent(ev models.PacketEvent) {
	if ev.SourceIP == "" {
		system.Warn("Packet event without source IP dropped")
		return
	}

	now := r.Clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireIntentsLocked(now)

	d, ok := r.devices[ev.SourceIP]
	if !ok {
		d = &models.Device{IP: ev.SourceIP, IsOnline: true}
		r.devices[ev.SourceIP] = d
		r.logEventLocked("info", "New device %s discovered from live traffic", ev.SourceIP)
	} else if !d.IsOnline {
		d.IsOnline = true
		r.logEventLocked("success", "Device %s is back online", ev.SourceIP)
	}
	d.TrafficBytes += ev.Size
	d.LastSeen = now

	ts := ev.Time.Time
	if ts.IsZero() {
		ts = now
	}
	rec := models.ActivityRecord{
		Timestamp: ts,
		SourceIP:  ev.SourceIP,
		DestIP:    ev.DestIP,
		Domain:    ev.Domain,
		Protocol:  ev.Protocol,
		SizeBytes: ev.Size,
		Severity:  models.SeverityLow,
	}
	if r.geoip != nil {
		rec.Country = r.geoip.CountryCode(rec.SourceIP)
	}
	r.activity = append([]models.ActivityRecord{rec}, r.activity...)
	if len(r.activity) > r.activityCap {
		r.activity = r.activity[:r.activityCap]
	}
}

// ApplyOfflineEvent marks a device offline. An offline event for an unknown
// IP is expected when it races the creating snapshot; it is dropped, never
// an error, and never creates a device.
func (r *Reconciler) ApplyOfflineEvent(ev models.OfflineEvent) {
	now := r.Clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireIntentsLocked(now)

	d, ok := r.devices[ev.IP]
	if !ok {
		system.Info("Offline event for unknown device %s dropped", ev.IP)
		return
	}
	if d.IsOnline {
		d.IsOnline = false
		r.logEventLocked("warning", "Device %s went offline", ev.IP)
	}
}

// ApplyActivitySnapshot replaces the activity ring wholesale, newest first,
// truncated to the cap. Records that overlap ones already delivered by the
// stream are not deduplicated; the ring is a freshness view, not an audit
// log.
func (r *Reconciler) ApplyActivitySnapshot(entries []models.ActivitySnapshotEntry) {
	for _, e := range entries {
		if e.SourceIP == "" {
			system.Warn("Activity snapshot discarded: entry without source IP")
			return
		}
	}

	now := r.Clock.Now()
	records := make([]models.ActivityRecord, 0, len(entries))
	for _, e := range entries {
		rec := e.Record()
		if r.geoip != nil {
			rec.Country = r.geoip.CountryCode(rec.SourceIP)
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if len(records) > r.activityCap {
		records = records[:r.activityCap]
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireIntentsLocked(now)
	r.activity = records
}

// ApplyStatsSnapshot stores the aggregate stats and appends one point to the
// traffic time series, evicting the oldest beyond the window. Plain FIFO, no
// smoothing.
func (r *Reconciler) ApplyStatsSnapshot(s models.StatsSnapshot) {
	now := r.Clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireIntentsLocked(now)

	r.stats = s
	r.statsSet = true
	r.series = append(r.series, models.TrafficPoint{
		Label: now.Format("15:04:05"),
		Value: s.Bandwidth.MB(),
	})
	if len(r.series) > r.seriesCap {
		r.series = r.series[len(r.series)-r.seriesCap:]
	}
}

// ApplyAlertsSnapshot replaces the alert list wholesale. Newly appearing
// high-score alerts are pushed to the webhook if one is configured.
func (r *Reconciler) ApplyAlertsSnapshot(entries []models.AlertSnapshotEntry) {
	now := r.Clock.Now()
	alerts := make([]models.Alert, 0, len(entries))
	for _, e := range entries {
		alerts = append(alerts, e.Alert())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireIntentsLocked(now)

	known := make(map[string]struct{}, len(r.alerts))
	for _, a := range r.alerts {
		known[a.SourceIP+a.Reason] = struct{}{}
	}
	for _, a := range alerts {
		if a.Score < highAlertScore {
			continue
		}
		if _, ok := known[a.SourceIP+a.Reason]; ok {
			continue
		}
		r.logEventLocked("warning", "Alert for %s: %s", a.SourceIP, a.Reason)
		if r.webhook != nil && r.webhook.IsEnabled() {
			go r.webhook.SendAlertNotice(a)
		}
	}
	r.alerts = alerts
}

// ProposeRename records a rename intent and optimistically applies the new
// hostname. While the intent is pending, snapshots may not overwrite the
// hostname, so the user's just-submitted name never visibly reverts before
// the server catches up. The caller is responsible for submitting the intent
// upstream; the intent clears on acknowledgement or TTL expiry.
func (r *Reconciler) ProposeRename(ip, mac, hostname string) (models.RenameIntent, error) {
	now := r.Clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireIntentsLocked(now)

	d, ok := r.devices[ip]
	if !ok {
		return models.RenameIntent{}, ErrUnknownDevice
	}

	// A newer intent supersedes a pending one but keeps the original
	// rollback target.
	previous := d.Hostname
	if pending, ok := r.intents[ip]; ok {
		previous = pending.PreviousHostname
	}

	intent := &models.RenameIntent{
		ID:               uuid.NewString(),
		IP:               ip,
		MAC:              mac,
		ProposedHostname: hostname,
		PreviousHostname: previous,
		IssuedAt:         now,
	}
	r.intents[ip] = intent
	d.Hostname = hostname

	r.logEventLocked("info", "Rename of %s to %q submitted", ip, hostname)
	return *intent, nil
}

// ApplyRenameAck resolves a pending rename. Success clears the intent and
// re-opens the hostname to snapshot updates; failure rolls the hostname back
// to its pre-intent value and notifies the user. An ack with no pending
// intent is a late or duplicate delivery and is dropped.
func (r *Reconciler) ApplyRenameAck(ip string, success bool, errMsg string) {
	now := r.Clock.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expireIntentsLocked(now)

	intent, ok := r.intents[ip]
	if !ok {
		system.Info("Rename ack for %s with no pending intent dropped", ip)
		return
	}
	delete(r.intents, ip)

	if success {
		r.logEventLocked("success", "Rename of %s to %q confirmed", ip, intent.ProposedHostname)
		return
	}

	r.rollbackLocked(intent)
	r.logEventLocked("error", "Rename of %s rejected: %s", ip, errMsg)
	if r.webhook != nil && r.webhook.IsEnabled() {
		go r.webhook.SendRenameFailure(ip, intent.ProposedHostname, errMsg)
	}
}

// PendingRename reports the rename intent for an IP, if any.
func (r *Reconciler) PendingRename(ip string) (models.RenameIntent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	intent, ok := r.intents[ip]
	if !ok {
		return models.RenameIntent{}, false
	}
	return *intent, true
}

// expireIntentsLocked rolls back intents that outlived the TTL without an
// acknowledgement. Called on every mutation path, so the steady snapshot
// ticks guarantee eventual expiry.
func (r *Reconciler) expireIntentsLocked(now time.Time) {
	for ip, intent := range r.intents {
		if now.Sub(intent.IssuedAt) < r.intentTTL {
			continue
		}
		delete(r.intents, ip)
		r.rollbackLocked(intent)
		system.Warn("Rename of %s timed out waiting for acknowledgement", ip)
		r.logEventLocked("warning", "Rename of %s timed out, hostname restored", ip)
	}
}

// rollbackLocked restores the pre-intent hostname unless something else
// already changed it.
func (r *Reconciler) rollbackLocked(intent *models.RenameIntent) {
	if d, ok := r.devices[intent.IP]; ok && d.Hostname == intent.ProposedHostname {
		d.Hostname = intent.PreviousHostname
	}
}

func (r *Reconciler) logEventLocked(eventType, format string, args ...interface{}) {
	if r.events != nil {
		r.events.Add(eventType, format, args...)
	}
}

// Devices returns the device table as a display-ordered copy: online devices
// first, most recently seen first within each group.
func (r *Reconciler) Devices() []models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Device, 0, len(r.devices))
	for _, d := range r.devices {
		copied := *d
		copied.RiskLevel = models.RiskLevelFor(copied.RiskScore)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsOnline != out[j].IsOnline {
			return out[i].IsOnline
		}
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].IP < out[j].IP
	})
	return out
}

// Device returns a single device by IP.
func (r *Reconciler) Device(ip string) (models.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[ip]
	if !ok {
		return models.Device{}, false
	}
	copied := *d
	copied.RiskLevel = models.RiskLevelFor(copied.RiskScore)
	return copied, true
}

// Activity returns the ring newest-first, optionally filtered to records at
// or above a minimum severity.
func (r *Reconciler) Activity(minSeverity string) []models.ActivityRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	minRank := models.SeverityRank(minSeverity)
	out := make([]models.ActivityRecord, 0, len(r.activity))
	for _, rec := range r.activity {
		if models.SeverityRank(rec.Severity) < minRank {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// RecentPerDevice scans the ring newest-first and keeps only the first
// record per source IP, capped for the dashboard summary.
func (r *Reconciler) RecentPerDevice(limit int) []models.ActivityRecord {
	if limit <= 0 {
		limit = dashboardRecentCap
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ActivityRecord, 0, limit)
	seen := make(map[string]struct{})
	for _, rec := range r.activity {
		if _, ok := seen[rec.SourceIP]; ok {
			continue
		}
		seen[rec.SourceIP] = struct{}{}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// Stats returns the last aggregate stats snapshot, if any arrived yet.
func (r *Reconciler) Stats() (models.StatsSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats, r.statsSet
}

// Alerts returns the current alert list.
func (r *Reconciler) Alerts() []models.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// TrafficSeries returns the chart window, oldest point first.
func (r *Reconciler) TrafficSeries() []models.TrafficPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.TrafficPoint, len(r.series))
	copy(out, r.series)
	return out
}

// ModelCounts summarizes the model for the health view.
type ModelCounts struct {
	Devices        int `json:"devices"`
	OnlineDevices  int `json:"online_devices"`
	Activity       int `json:"activity"`
	Alerts         int `json:"alerts"`
	PendingRenames int `json:"pending_renames"`
}

// Counts reports the current model sizes.
func (r *Reconciler) Counts() ModelCounts {
	r.mu.RLock()
	defer r.mu.RUnlock()

	online := 0
	for _, d := range r.devices {
		if d.IsOnline {
			online++
		}
	}
	return ModelCounts{
		Devices:        len(r.devices),
		OnlineDevices:  online,
		Activity:       len(r.activity),
		Alerts:         len(r.alerts),
		PendingRenames: len(r.intents),
	}
}
