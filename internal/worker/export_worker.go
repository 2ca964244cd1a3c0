package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mesa/internal/cache"
	"mesa/internal/core"
	applog "mesa/internal/log"
	"mesa/internal/metrics"
	"mesa/internal/sheets"
)

// Projector computes the report exported for a workspace month.
type Projector interface {
	Projection(ctx context.Context, workspaceIDs []int64, m core.Month) (core.ProjectionReport, error)
}

// EventSource delivers ledger events until ctx is done.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, core.LedgerEvent) error) error
}

// ExportWorker re-exports the projection of every workspace month touched
// by a ledger event. Bursts of events for the same month within the
// debounce window produce a single export.
type ExportWorker struct {
	projector Projector
	exporter  sheets.ProjectionExporter
	debounce  *cache.Debouncer
	now       func() time.Time
}

func NewExportWorker(projector Projector, exporter sheets.ProjectionExporter, debounce *cache.Debouncer) *ExportWorker {
	return &ExportWorker{
		projector: projector,
		exporter:  exporter,
		debounce:  debounce,
		now:       time.Now,
	}
}

// Run consumes events from src until ctx is cancelled.
func (w *ExportWorker) Run(ctx context.Context, src EventSource) error {
	slog.InfoContext(ctx, "Export worker started",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpConsume)
	err := src.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
	if ctx.Err() != nil {
		slog.InfoContext(ctx, "Export worker stopped")
		return nil
	}
	return err
}

// HandleLedgerEvent exports the month the event touched. Events without a
// month, such as a resumed series, refresh the current month. A failed
// export returns an error so the event is redelivered.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, ev core.LedgerEvent) error {
	if ev.WorkspaceID <= 0 {
		slog.WarnContext(ctx, "Ledger event without workspace ignored",
			applog.FieldEventType, ev.Type,
			applog.FieldEntityID, ev.EntityID)
		metrics.Exports.WithLabelValues("skipped").Inc()
		return nil
	}
	m := ev.Month
	if m.IsZero() {
		m = core.MonthOf(w.now())
	}

	key := cache.LedgerKey(ev.WorkspaceID, m.String())
	if !w.debounce.Allow(key) {
		slog.DebugContext(ctx, "Export debounced",
			applog.NewFields().WithLedger(ev.WorkspaceID, m.String()).ToSlice()...)
		metrics.Exports.WithLabelValues("skipped").Inc()
		return nil
	}

	report, err := w.projector.Projection(ctx, []int64{ev.WorkspaceID}, m)
	if err != nil {
		w.debounce.Forget(key)
		metrics.Exports.WithLabelValues("error").Inc()
		return fmt.Errorf("compute projection for workspace %d %s: %w", ev.WorkspaceID, m, err)
	}
	ref, err := w.exporter.ExportProjection(ctx, ev.WorkspaceID, report)
	if err != nil {
		w.debounce.Forget(key)
		metrics.Exports.WithLabelValues("error").Inc()
		return fmt.Errorf("export projection for workspace %d %s: %w", ev.WorkspaceID, m, err)
	}

	metrics.Exports.WithLabelValues("ok").Inc()
	fields := applog.NewFields().
		WithComponent(applog.ComponentWorker).
		WithOperation(applog.OpExport).
		WithLedger(ev.WorkspaceID, m.String())
	fields[applog.FieldEventType] = ev.Type
	slog.InfoContext(ctx, "Projection exported", append(fields.ToSlice(), "ref", ref)...)
	return nil
}
