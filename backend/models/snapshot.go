package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FlexTime decodes the upstream's timestamp field, which is delivered either
// as a unix epoch (seconds, possibly fractional) or as an ISO / SQL datetime
// string depending on the sensor version.
type FlexTime struct {
	time.Time
}

func (t *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}

	// Numeric epoch
	if epoch, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * float64(time.Second))
		t.Time = time.Unix(sec, nsec).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", s, err)
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, str); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp format %q", str)
}

// BandwidthLabel decodes the stats bandwidth field, which arrives either as a
// bare number (MB) or a display string like "123.45 MB".
type BandwidthLabel string

func (b *BandwidthLabel) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*b = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*b = BandwidthLabel(str)
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("invalid bandwidth value %s: %w", s, err)
	}
	*b = BandwidthLabel(fmt.Sprintf("%.2f MB", num))
	return nil
}

// MB returns the numeric megabyte value of the label, 0 if unparseable.
func (b BandwidthLabel) MB() float64 {
	fields := strings.Fields(string(b))
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	return v
}

// DeviceSnapshotEntry is one device row of the periodic inventory snapshot.
// Traffic is reported either as traffic_bytes (exact) or traffic (MB float);
// traffic_bytes wins when both are present.
type DeviceSnapshotEntry struct {
	IP           string   `json:"ip"`
	MAC          string   `json:"mac"`
	Hostname     string   `json:"hostname"`
	Type         string   `json:"type"`
	Brand        string   `json:"brand"`
	OS           string   `json:"os"`
	Traffic      float64  `json:"traffic"`
	TrafficBytes int64    `json:"traffic_bytes"`
	IsOnline     *bool    `json:"is_online"`
	LastSeen     FlexTime `json:"last_seen"`
	RiskScore    float64  `json:"risk_score"`
}

// Bytes resolves the entry's traffic figure to bytes.
func (e DeviceSnapshotEntry) Bytes() int64 {
	if e.TrafficBytes > 0 {
		return e.TrafficBytes
	}
	return int64(e.Traffic * 1024 * 1024)
}

// Online defaults to true when the snapshot omits the flag.
func (e DeviceSnapshotEntry) Online() bool {
	if e.IsOnline == nil {
		return true
	}
	return *e.IsOnline
}

// ActivitySnapshotEntry is one row of the recent-activity snapshot,
// newest first.
type ActivitySnapshotEntry struct {
	Time     FlexTime `json:"time"`
	SourceIP string   `json:"ip"`
	DestIP   string   `json:"dst_ip"`
	Domain   string   `json:"domain"`
	Protocol string   `json:"protocol"`
	Size     int64    `json:"size"`
	Severity string   `json:"severity"`
}

// Record converts the wire entry to a model record.
func (e ActivitySnapshotEntry) Record() ActivityRecord {
	severity := e.Severity
	if severity == "" {
		severity = SeverityLow
	}
	return ActivityRecord{
		Timestamp: e.Time.Time,
		SourceIP:  e.SourceIP,
		DestIP:    e.DestIP,
		Domain:    e.Domain,
		Protocol:  e.Protocol,
		SizeBytes: e.Size,
		Severity:  severity,
	}
}

// StatsSnapshot is the aggregate stats poll result.
type StatsSnapshot struct {
	Devices       int            `json:"devices"`
	VPNAlerts     int            `json:"vpn_alerts"`
	Bandwidth     BandwidthLabel `json:"bandwidth"`
	UploadSpeed   float64        `json:"upload_speed"`
	DownloadSpeed float64        `json:"download_speed"`
	Protocols     map[string]int `json:"protocols"`
}

// AlertSnapshotEntry is one row of the alerts snapshot.
type AlertSnapshotEntry struct {
	Time   FlexTime `json:"time"`
	IP     string   `json:"ip"`
	Score  float64  `json:"score"`
	Reason string   `json:"reason"`
}

// Alert converts the wire entry to a model alert.
func (e AlertSnapshotEntry) Alert() Alert {
	return Alert{Time: e.Time.Time, SourceIP: e.IP, Score: e.Score, Reason: e.Reason}
}

// TrafficPoint is one sample of the dashboard traffic time series.
type TrafficPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"` // MB
}
