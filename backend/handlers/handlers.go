package handlers

import (
	"netvisor-console/backend/services"
)

type Handler struct {
	Reconciler *services.Reconciler
	Upstream   *services.UpstreamClient
	Stream     *services.EventStream
	Events     *services.EventLog
	Webhook    *services.WebhookService
}

func NewHandler(rec *services.Reconciler, upstream *services.UpstreamClient, stream *services.EventStream, events *services.EventLog, webhook *services.WebhookService) *Handler {
	return &Handler{
		Reconciler: rec,
		Upstream:   upstream,
		Stream:     stream,
		Events:     events,
		Webhook:    webhook,
	}
}
