package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"netvisor-console/backend/models"
)

func TestRiskLevelFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, models.RiskHigh, models.RiskLevelFor(70))
	require.Equal(t, models.RiskHigh, models.RiskLevelFor(100))
	require.Equal(t, models.RiskMedium, models.RiskLevelFor(69.999))
	require.Equal(t, models.RiskMedium, models.RiskLevelFor(30))
	require.Equal(t, models.RiskLow, models.RiskLevelFor(29.999))
	require.Equal(t, models.RiskLow, models.RiskLevelFor(0))
}

func TestSeverityRank(t *testing.T) {
	t.Parallel()

	require.Equal(t, 2, models.SeverityRank(models.SeverityHigh))
	require.Equal(t, 1, models.SeverityRank(models.SeverityMedium))
	require.Equal(t, 0, models.SeverityRank(models.SeverityLow))
	require.Equal(t, 0, models.SeverityRank("bogus"))
	require.Equal(t, 0, models.SeverityRank(""))
}

func TestFlexTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want time.Time
	}{
		{"epoch seconds", `1756700000`, time.Unix(1756700000, 0).UTC()},
		{"epoch fractional", `1756700000.5`, time.Unix(1756700000, int64(500*time.Millisecond)).UTC()},
		{"rfc3339", `"2026-09-01T10:30:00Z"`, time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)},
		{"sql datetime", `"2026-09-01 10:30:00"`, time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ft models.FlexTime
			require.NoError(t, json.Unmarshal([]byte(tc.in), &ft))
			require.True(t, tc.want.Equal(ft.Time), "got %v want %v", ft.Time, tc.want)
		})
	}

	t.Run("null", func(t *testing.T) {
		var ft models.FlexTime
		require.NoError(t, json.Unmarshal([]byte(`null`), &ft))
		require.True(t, ft.IsZero())
	})

	t.Run("garbage", func(t *testing.T) {
		var ft models.FlexTime
		require.Error(t, json.Unmarshal([]byte(`"not a time"`), &ft))
	})
}

func TestBandwidthLabel(t *testing.T) {
	t.Parallel()

	var b models.BandwidthLabel
	require.NoError(t, json.Unmarshal([]byte(`"123.45 MB"`), &b))
	require.InDelta(t, 123.45, b.MB(), 0.001)

	require.NoError(t, json.Unmarshal([]byte(`42.5`), &b))
	require.Equal(t, "42.50 MB", string(b))
	require.InDelta(t, 42.5, b.MB(), 0.001)

	require.NoError(t, json.Unmarshal([]byte(`null`), &b))
	require.Zero(t, b.MB())
}

func TestDeviceSnapshotEntry(t *testing.T) {
	t.Parallel()

	t.Run("bytes prefer exact", func(t *testing.T) {
		e := models.DeviceSnapshotEntry{Traffic: 2, TrafficBytes: 1000}
		require.EqualValues(t, 1000, e.Bytes())
	})

	t.Run("bytes from megabytes", func(t *testing.T) {
		e := models.DeviceSnapshotEntry{Traffic: 2}
		require.EqualValues(t, 2*1024*1024, e.Bytes())
	})

	t.Run("online defaults true", func(t *testing.T) {
		var e models.DeviceSnapshotEntry
		require.True(t, e.Online())

		offline := false
		e.IsOnline = &offline
		require.False(t, e.Online())
	})
}

func TestActivitySnapshotEntryRecord(t *testing.T) {
	t.Parallel()

	e := models.ActivitySnapshotEntry{SourceIP: "192.168.0.5", Protocol: "DNS", Size: 120}
	rec := e.Record()
	require.Equal(t, models.SeverityLow, rec.Severity, "missing severity defaults to LOW")
	require.Equal(t, "192.168.0.5", rec.SourceIP)

	e.Severity = models.SeverityHigh
	require.Equal(t, models.SeverityHigh, e.Record().Severity)
}
