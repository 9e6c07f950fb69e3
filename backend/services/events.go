package services

import (
	"fmt"
	"sync"
	"time"

	"netvisor-console/backend/system"
)

// ConsoleEvent is one entry of the operator-visible event feed.
type ConsoleEvent struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, warning, error, success
	Message string `json:"message"`
}

const eventLogCap = 100

// EventLog keeps the most recent console events, newest first. Entries are
// mirrored to the file logger so the feed survives restarts in the logs even
// though the in-memory ring does not.
type EventLog struct {
	mu      sync.RWMutex
	entries []ConsoleEvent
}

// NewEventLog creates an empty event feed.
func NewEventLog() *EventLog {
	return &EventLog{entries: []ConsoleEvent{}}
}

// Add records a new event at the head of the feed.
func (l *EventLog) Add(eventType, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	l.mu.Lock()
	event := ConsoleEvent{
		Time:    time.Now().Format("15:04:05"),
		Type:    eventType,
		Message: message,
	}
	l.entries = append([]ConsoleEvent{event}, l.entries...)
	if len(l.entries) > eventLogCap {
		l.entries = l.entries[:eventLogCap]
	}
	l.mu.Unlock()

	switch eventType {
	case "error":
		system.Error("%s", message)
	case "warning":
		system.Warn("%s", message)
	default:
		system.Info("%s", message)
	}
}

// Events returns a copy of the feed, newest first.
func (l *EventLog) Events() []ConsoleEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]ConsoleEvent, len(l.entries))
	copy(result, l.entries)
	return result
}
