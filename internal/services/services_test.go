package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mesa/internal/core"
	"mesa/internal/storage"
)

// Payment type ids seeded by the initial migration.
const (
	ptCash       int64 = 1
	ptCreditCard int64 = 3
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.LedgerEvent
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev core.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []core.LedgerEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.LedgerEventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type testEnv struct {
	ctx        context.Context
	repo       *storage.SQLiteRepository
	events     *recordingPublisher
	workspace  core.Workspace
	card       core.Card
	entries    *EntryGenerator
	invoices   *InvoiceCycleManager
	resolver   *RecurrenceResolver
	expenses   *ExpenseService
	incomes    *IncomeService
	projection *ProjectionService
}

func fixedClock(t time.Time) clock {
	return clock{now: func() time.Time { return t }}
}

func newTestEnv(t *testing.T, today time.Time) *testEnv {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ws := NewWorkspaceService(repo)
	workspace, err := ws.Create(ctx, "Home", 1, "owner@example.com")
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	card, err := ws.CreateCard(ctx, 1, core.Card{
		Name: "Gold", Type: core.CardCredit, ClosingDay: 2, DueDay: 9, CreditLimit: core.Cents(100000),
	})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}

	events := &recordingPublisher{}
	env := &testEnv{
		ctx:       ctx,
		repo:      repo,
		events:    events,
		workspace: workspace,
		card:      card,
		entries:   NewEntryGenerator(repo, events),
		invoices:  NewInvoiceCycleManager(repo, events),
		resolver:  NewRecurrenceResolver(repo, events),
		expenses:  NewExpenseService(repo, events),
		incomes:   NewIncomeService(repo, events),
	}
	env.projection = NewProjectionService(repo, env.resolver)

	c := fixedClock(today)
	env.invoices.clock = c
	env.resolver.clock = c
	env.expenses.clock = c
	env.projection.clock = c
	return env
}

func (env *testEnv) cardPurchase(description string, cents int64, date core.Date, installments int) core.EntryRequest {
	return core.EntryRequest{
		WorkspaceID:   env.workspace.ID,
		Description:   description,
		Total:         core.Cents(cents),
		Kind:          core.KindVariable,
		StartDate:     date,
		PaymentTypeID: ptCreditCard,
		CardID:        env.card.ID,
		Installments:  installments,
	}
}

func (env *testEnv) create(t *testing.T, kind core.EntryKind, req core.EntryRequest) []int64 {
	t.Helper()
	ids, err := env.entries.Create(env.ctx, kind, req)
	if err != nil {
		t.Fatalf("create %s entry: %v", kind, err)
	}
	return ids
}

// assertInvoiceConsistent checks that the stored total equals the sum of
// the active linked expenses.
func (env *testEnv) assertInvoiceConsistent(t *testing.T, invoiceID int64) core.Invoice {
	t.Helper()
	return env.assertWorkspaceInvoiceConsistent(t, invoiceID, env.workspace.ID)
}

func (env *testEnv) assertWorkspaceInvoiceConsistent(t *testing.T, invoiceID, workspaceID int64) core.Invoice {
	t.Helper()
	detail, err := env.invoices.Get(env.ctx, invoiceID, workspaceID)
	if err != nil {
		t.Fatalf("get invoice %d: %v", invoiceID, err)
	}
	var sum core.Money
	for _, e := range detail.Expenses {
		sum = sum.Add(e.Amount)
	}
	if detail.Total != sum {
		t.Fatalf("invoice %d total %s, linked expenses sum %s", invoiceID, detail.Total, sum)
	}
	return detail.Invoice
}

func date(y int, m time.Month, d int) core.Date { return core.NewDate(y, m, d) }

func month(y int, m time.Month) core.Month { return core.NewMonth(y, m) }
