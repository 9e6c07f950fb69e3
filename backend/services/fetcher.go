package services

import (
	"context"
	"time"

	"github.com/coder/quartz"

	"netvisor-console/backend/system"
)

// Poll cadences. Devices and stats share a beat; activity refreshes faster
// because it drives the live table.
const (
	DeviceInterval   = 5 * time.Second
	ActivityInterval = 3 * time.Second
	StatsInterval    = 5 * time.Second
	AlertsInterval   = 10 * time.Second
)

// SnapshotFetcher drives the periodic snapshot polls and feeds each result
// into the reconciler. A failed or malformed poll skips that tick; the next
// tick retries with no backoff, the cadence is the backoff.
type SnapshotFetcher struct {
	Clock    quartz.Clock
	upstream *UpstreamClient
	rec      *Reconciler
}

// NewSnapshotFetcher creates a fetcher polling the given upstream.
func NewSnapshotFetcher(upstream *UpstreamClient, rec *Reconciler) *SnapshotFetcher {
	return &SnapshotFetcher{
		Clock:    quartz.NewReal(),
		upstream: upstream,
		rec:      rec,
	}
}

// Start performs one synchronous poll of every kind so the model is warm
// before the first render, then schedules the periodic tickers. The tickers
// stop when ctx is cancelled.
func (f *SnapshotFetcher) Start(ctx context.Context) {
	f.pollDevices(ctx)
	f.pollActivity(ctx)
	f.pollStats(ctx)
	f.pollAlerts(ctx)

	f.Clock.TickerFunc(ctx, DeviceInterval, func() error {
		f.pollDevices(ctx)
		return nil
	}, "devices")
	f.Clock.TickerFunc(ctx, ActivityInterval, func() error {
		f.pollActivity(ctx)
		return nil
	}, "activity")
	f.Clock.TickerFunc(ctx, StatsInterval, func() error {
		f.pollStats(ctx)
		return nil
	}, "stats")
	f.Clock.TickerFunc(ctx, AlertsInterval, func() error {
		f.pollAlerts(ctx)
		return nil
	}, "alerts")

	system.Info("Snapshot polling started (devices %v, activity %v, stats %v, alerts %v)",
		DeviceInterval, ActivityInterval, StatsInterval, AlertsInterval)
}

func (f *SnapshotFetcher) pollDevices(ctx context.Context) {
	entries, err := f.upstream.Devices(ctx)
	if err != nil {
		system.Warn("Device poll skipped: %v", err)
		return
	}
	f.rec.ApplyDeviceSnapshot(entries)
}

func (f *SnapshotFetcher) pollActivity(ctx context.Context) {
	entries, err := f.upstream.Activity(ctx)
	if err != nil {
		system.Warn("Activity poll skipped: %v", err)
		return
	}
	f.rec.ApplyActivitySnapshot(entries)
}

func (f *SnapshotFetcher) pollStats(ctx context.Context) {
	stats, err := f.upstream.Stats(ctx)
	if err != nil {
		system.Warn("Stats poll skipped: %v", err)
		return
	}
	f.rec.ApplyStatsSnapshot(stats)
}

func (f *SnapshotFetcher) pollAlerts(ctx context.Context) {
	entries, err := f.upstream.Alerts(ctx)
	if err != nil {
		system.Warn("Alerts poll skipped: %v", err)
		return
	}
	f.rec.ApplyAlertsSnapshot(entries)
}
