package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mesa/internal/cache"
	"mesa/internal/core"
	"mesa/internal/services"
	"mesa/internal/sheets/memory"
	"mesa/internal/storage"
)

type stubProjector struct {
	calls int
	err   error
}

func (p *stubProjector) Projection(_ context.Context, ws []int64, m core.Month) (core.ProjectionReport, error) {
	p.calls++
	if p.err != nil {
		return core.ProjectionReport{}, p.err
	}
	return core.ProjectionReport{WorkspaceIDs: ws, Month: m}, nil
}

type failingExporter struct{ fails int }

func (e *failingExporter) ExportProjection(context.Context, int64, core.ProjectionReport) (string, error) {
	e.fails++
	return "", errors.New("quota exceeded")
}

type sliceSource []core.LedgerEvent

func (s sliceSource) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, core.LedgerEvent) error) error {
	for _, ev := range s {
		if err := handler(ctx, ev); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

var march = core.NewMonth(2025, time.March)

func TestHandleLedgerEventDebounces(t *testing.T) {
	proj := &stubProjector{}
	store := memory.New()
	w := NewExportWorker(proj, store, cache.NewDebouncer(100, time.Minute))
	ctx := context.Background()

	events := []core.LedgerEvent{
		core.NewLedgerEvent(core.EventEntriesCreated, 1, march, 10),
		core.NewLedgerEvent(core.EventInvoicePaid, 1, march, 3),
		core.NewLedgerEvent(core.EventEntriesCreated, 2, march, 11),
		core.NewLedgerEvent(core.EventEntriesCreated, 1, march.Add(1), 12),
		core.NewLedgerEvent(core.EventEntriesCreated, 0, march, 13),
	}
	for _, ev := range events {
		if err := w.HandleLedgerEvent(ctx, ev); err != nil {
			t.Fatalf("HandleLedgerEvent(%s): %v", ev.Type, err)
		}
	}

	if proj.calls != 3 {
		t.Errorf("projection computed %d times, want 3", proj.calls)
	}
	if got := len(store.Exports()); got != 3 {
		t.Errorf("exported %d reports, want 3", got)
	}
	if _, ok := store.Latest(1, march.Add(1)); !ok {
		t.Error("April export of workspace 1 missing")
	}
}

func TestHandleLedgerEventWithoutMonthUsesCurrentMonth(t *testing.T) {
	store := memory.New()
	w := NewExportWorker(&stubProjector{}, store, cache.NewDebouncer(10, 0))
	w.now = func() time.Time { return time.Date(2025, time.March, 18, 9, 0, 0, 0, time.UTC) }

	if err := w.HandleLedgerEvent(context.Background(), core.NewLedgerEvent(core.EventSeriesResumed, 1, core.Month{}, 5)); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}
	if _, ok := store.Latest(1, march); !ok {
		t.Fatal("expected an export for the current month")
	}
}

func TestHandleLedgerEventFailuresAreRetried(t *testing.T) {
	ev := core.NewLedgerEvent(core.EventEntriesCreated, 1, march, 10)

	t.Run("projection error", func(t *testing.T) {
		proj := &stubProjector{err: errors.New("database is locked")}
		w := NewExportWorker(proj, memory.New(), cache.NewDebouncer(10, time.Minute))
		for i := 0; i < 2; i++ {
			if err := w.HandleLedgerEvent(context.Background(), ev); err == nil {
				t.Fatal("expected an error")
			}
		}
		if proj.calls != 2 {
			t.Errorf("a failed export must not be debounced: %d calls", proj.calls)
		}
	})

	t.Run("export error", func(t *testing.T) {
		exp := &failingExporter{}
		w := NewExportWorker(&stubProjector{}, exp, cache.NewDebouncer(10, time.Minute))
		for i := 0; i < 2; i++ {
			if err := w.HandleLedgerEvent(context.Background(), ev); err == nil {
				t.Fatal("expected an error")
			}
		}
		if exp.fails != 2 {
			t.Errorf("export attempted %d times, want 2", exp.fails)
		}
	})
}

func TestRunStopsWithContext(t *testing.T) {
	store := memory.New()
	w := NewExportWorker(&stubProjector{}, store, cache.NewDebouncer(10, time.Minute))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, sliceSource{core.NewLedgerEvent(core.EventEntriesCreated, 1, march, 1)})
	}()

	deadline := time.Now().Add(time.Second)
	for len(store.Exports()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v after cancellation", err)
	}
	if len(store.Exports()) != 1 {
		t.Fatalf("expected one export, got %d", len(store.Exports()))
	}
}

func TestExportWorkerWithLedger(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	ws, err := services.NewWorkspaceService(repo).Create(ctx, "Home", 1, "owner@example.com")
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	entries := services.NewEntryGenerator(repo, nil)
	if _, err := entries.Create(ctx, core.EntryIncome, core.EntryRequest{
		WorkspaceID: ws.ID,
		Description: "Salary",
		Total:       core.Cents(50000),
		StartDate:   core.NewDate(2025, time.January, 31),
		Recurring:   true,
	}); err != nil {
		t.Fatalf("create income: %v", err)
	}

	resolver := services.NewRecurrenceResolver(repo, nil)
	store := memory.New()
	w := NewExportWorker(services.NewProjectionService(repo, resolver), store, cache.NewDebouncer(10, time.Minute))
	if err := w.HandleLedgerEvent(ctx, core.NewLedgerEvent(core.EventEntriesCreated, ws.ID, march, 1)); err != nil {
		t.Fatalf("HandleLedgerEvent: %v", err)
	}

	report, ok := store.Latest(ws.ID, march)
	if !ok {
		t.Fatal("no export recorded")
	}
	if report.ProvisionedIncome.Cents != 50000 || !report.ConfirmedIncome.IsZero() {
		t.Errorf("exported report = %+v", report)
	}
}
