package models

import (
	"encoding/json"
)

// Push event kinds delivered over the persistent stream.
const (
	EventPacket    = "packet_event"
	EventOffline   = "device_offline"
	EventRenameAck = "rename_ack"
)

// EventEnvelope wraps every push event. The payload is decoded only after the
// kind is known; a payload that fails to decode is dropped whole, never
// partially applied.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// PacketEvent reports a single observed packet.
type PacketEvent struct {
	Time     FlexTime `json:"time"`
	SourceIP string   `json:"src_ip"`
	DestIP   string   `json:"dst_ip"`
	Domain   string   `json:"domain"`
	Protocol string   `json:"protocol"`
	Size     int64    `json:"size"`
}

// OfflineEvent reports that a device stopped responding.
type OfflineEvent struct {
	IP string `json:"ip"`
}

// RenameAckEvent acknowledges a previously submitted rename.
type RenameAckEvent struct {
	IP      string `json:"ip"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
