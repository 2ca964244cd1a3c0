package services

import (
	"context"
	"log/slog"
	"time"

	"mesa/internal/core"
	"mesa/internal/metrics"
)

// EventPublisher hands committed ledger changes to the message broker.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
}

// publish is best effort: the write has already committed, so a broker
// failure is logged and never reported to the caller.
func publish(ctx context.Context, p EventPublisher, t core.LedgerEventType, workspaceID int64, month core.Month, entityID int64) {
	if p == nil {
		return
	}
	ev := core.NewLedgerEvent(t, workspaceID, month, entityID)
	if err := p.PublishLedgerEvent(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", t,
			"workspace_id", workspaceID,
			"entity_id", entityID,
			"error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}

// clock is embedded by services that need "today".
type clock struct {
	now func() time.Time
}

func (c clock) today() core.Date {
	if c.now == nil {
		return core.Today(time.Now())
	}
	return core.Today(c.now())
}
