package models

import (
	"time"
)

// Risk bands derived from the 0-100 risk score.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
)

// Device is one entry in the reconciled device table, keyed by IP.
// The MAC is a secondary identifier that stays stable across IP changes.
// Liveness has exactly two states: a packet event brings a device online; an
// explicit offline event or a snapshot marking it offline takes it down.
// Absence from a device snapshot removes the device entirely.
type Device struct {
	IP           string    `json:"ip"`
	MAC          string    `json:"mac"`
	Hostname     string    `json:"hostname,omitempty"`
	Type         string    `json:"type,omitempty"` // Mobile/Desktop/IoT/Network/Unknown
	Brand        string    `json:"brand,omitempty"`
	OS           string    `json:"os,omitempty"`
	TrafficBytes int64     `json:"traffic_bytes"`
	IsOnline     bool      `json:"is_online"`
	LastSeen     time.Time `json:"last_seen"`
	RiskScore    float64   `json:"risk_score"`
	RiskLevel    string    `json:"risk_level"`
}

// RiskLevelFor maps a risk score to its display band. The band is always
// derived from the score, never stored on its own, so the two cannot drift.
func RiskLevelFor(score float64) string {
	switch {
	case score >= 70:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Activity severities, server-assigned. Unknown values rank as LOW.
const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// SeverityRank orders severities for minimum-severity filtering.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// ActivityRecord is a single observed network event. Immutable once created.
type ActivityRecord struct {
	Timestamp time.Time `json:"time"`
	SourceIP  string    `json:"src_ip"`
	DestIP    string    `json:"dst_ip,omitempty"`
	Domain    string    `json:"domain,omitempty"`
	Protocol  string    `json:"protocol"`
	SizeBytes int64     `json:"size"`
	Severity  string    `json:"severity"`
	Country   string    `json:"country,omitempty"`
}

// Alert is a flagged detection reported by the upstream service. Alerts are
// never merged, only replaced wholesale on each snapshot.
type Alert struct {
	Time     time.Time `json:"time"`
	SourceIP string    `json:"ip"`
	Score    float64   `json:"score"` // 0.0 - 1.0
	Reason   string    `json:"reason"`
}

// RenameIntent is a pending, unconfirmed hostname change issued by the user.
// It lives only until acknowledged, rolled back, or expired.
type RenameIntent struct {
	ID               string    `json:"request_id"`
	IP               string    `json:"ip"`
	MAC              string    `json:"mac"`
	ProposedHostname string    `json:"proposed_hostname"`
	PreviousHostname string    `json:"-"`
	IssuedAt         time.Time `json:"issued_at"`
}

// RenameRequest is the body of the console's rename mutator.
type RenameRequest struct {
	IP   string `json:"ip"`
	MAC  string `json:"mac"`
	Name string `json:"name"`
}

// RenameResult is the upstream rename endpoint's response.
type RenameResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
