package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/retry"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"netvisor-console/backend/models"
	"netvisor-console/backend/system"
)

// EventStream maintains the persistent connection to the monitoring
// service's push feed and dispatches each event into the reconciler.
// Snapshots and the stream share no ordering guarantee, so a dropped
// connection loses nothing durable; the next snapshots repair the model
// while the stream reconnects with backoff.
type EventStream struct {
	url    string
	rec    *Reconciler
	events *EventLog

	mu        sync.RWMutex
	connected bool
}

// NewEventStream creates a stream consumer for the given websocket URL,
// e.g. "ws://192.168.0.10:8080/ws".
func NewEventStream(url string, rec *Reconciler, events *EventLog) *EventStream {
	return &EventStream{
		url:    url,
		rec:    rec,
		events: events,
	}
}

// Start runs the connect-read-reconnect loop until ctx is cancelled.
// Runs in its own goroutine.
func (s *EventStream) Start(ctx context.Context) {
	go func() {
		// Exponential backoff between connection attempts so an upstream
		// outage does not turn into a dial flood.
		for r := retry.New(time.Second, time.Minute); r.Wait(ctx); {
			err := s.run(ctx)
			if errors.Is(err, context.Canceled) {
				return
			}
			if err != nil {
				system.Warn("Event stream disconnected: %v", err)
			}
		}
	}()
}

// Connected reports whether the stream currently has a live connection.
func (s *EventStream) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *EventStream) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *EventStream) run(ctx context.Context) error {
	//nolint:bodyclose // websocket package closes this for you
	conn, _, err := websocket.Dial(ctx, s.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	s.setConnected(true)
	defer s.setConnected(false)
	s.events.Add("success", "Event stream connected to %s", s.url)
	defer s.events.Add("warning", "Event stream connection lost")

	for {
		var envelope models.EventEnvelope
		if err := wsjson.Read(ctx, conn, &envelope); err != nil {
			return err
		}
		s.dispatch(envelope)
	}
}

// dispatch decodes and applies one event. Unknown kinds and undecodable
// payloads are dropped whole; the stream itself stays up.
func (s *EventStream) dispatch(envelope models.EventEnvelope) {
	switch envelope.Type {
	case models.EventPacket:
		var ev models.PacketEvent
		if err := json.Unmarshal(envelope.Data, &ev); err != nil {
			system.Warn("Malformed packet event dropped: %v", err)
			return
		}
		s.rec.ApplyPacketEvent(ev)

	case models.EventOffline:
		var ev models.OfflineEvent
		if err := json.Unmarshal(envelope.Data, &ev); err != nil {
			system.Warn("Malformed offline event dropped: %v", err)
			return
		}
		s.rec.ApplyOfflineEvent(ev)

	case models.EventRenameAck:
		var ev models.RenameAckEvent
		if err := json.Unmarshal(envelope.Data, &ev); err != nil {
			system.Warn("Malformed rename ack dropped: %v", err)
			return
		}
		s.rec.ApplyRenameAck(ev.IP, ev.Success, ev.Error)

	default:
		system.Info("Unknown stream event type %q ignored", envelope.Type)
	}
}
