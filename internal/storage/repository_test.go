package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mesa/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "mesa.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateWorkspaceAddsOwner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ws, err := repo.CreateWorkspace(ctx, "Home", 7, "owner@example.com")
	if err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	ok, err := repo.Queries().IsMember(ctx, ws.ID, 7)
	if err != nil || !ok {
		t.Fatalf("owner should be a member: ok=%v err=%v", ok, err)
	}
	ok, _ = repo.Queries().IsMember(ctx, ws.ID, 8)
	if ok {
		t.Fatal("stranger should not be a member")
	}
	members, err := repo.Queries().WorkspaceMembers(ctx, []int64{ws.ID})
	if err != nil || len(members) != 1 || members[0] != 7 {
		t.Fatalf("WorkspaceMembers = %v, %v", members, err)
	}
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	boom := errors.New("boom")

	err := repo.InTx(ctx, func(q *Queries) error {
		if _, err := q.InsertWorkspace(ctx, "Ghost", 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := repo.Queries().GetWorkspace(ctx, 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("workspace should not exist after rollback, got %v", err)
	}
}

func TestInsertInvoiceIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	q := repo.Queries()

	ws, _ := repo.CreateWorkspace(ctx, "Home", 1, "")
	cardID, err := q.CreateCard(ctx, core.Card{UserID: 1, Name: "Visa", Type: core.CardCredit, ClosingDay: 2, DueDay: 9})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	card, err := q.GetActiveCard(ctx, cardID)
	if err != nil {
		t.Fatalf("GetActiveCard: %v", err)
	}

	stmt := core.NewStatement(card, ws.ID, core.NewDate(2025, time.March, 5))
	for i := 0; i < 3; i++ {
		if err := q.InsertInvoiceIfAbsent(ctx, stmt); err != nil {
			t.Fatalf("InsertInvoiceIfAbsent: %v", err)
		}
	}
	inv, err := q.FindActiveInvoice(ctx, cardID, ws.ID, core.NewMonth(2025, time.April))
	if err != nil {
		t.Fatalf("FindActiveInvoice: %v", err)
	}
	if inv.DueDate.String() != "2025-04-09" || inv.ClosingDate.String() != "2025-04-02" {
		t.Fatalf("unexpected statement dates: %+v", inv)
	}

	var n int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected one invoice, got %d", n)
	}

	// The same card used in another workspace gets its own statement.
	other, _ := repo.CreateWorkspace(ctx, "Trip", 1, "")
	if err := q.InsertInvoiceIfAbsent(ctx, core.NewStatement(card, other.ID, core.NewDate(2025, time.March, 6))); err != nil {
		t.Fatalf("InsertInvoiceIfAbsent other workspace: %v", err)
	}
	otherInv, err := q.FindActiveInvoice(ctx, cardID, other.ID, core.NewMonth(2025, time.April))
	if err != nil {
		t.Fatalf("FindActiveInvoice other workspace: %v", err)
	}
	if otherInv.ID == inv.ID || otherInv.WorkspaceID != other.ID {
		t.Fatalf("statements should be per workspace: %+v vs %+v", inv, otherInv)
	}
}

func TestCardExpenseRequiresInvoice(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	q := repo.Queries()

	ws, _ := repo.CreateWorkspace(ctx, "Home", 1, "")
	cardID, _ := q.CreateCard(ctx, core.Card{UserID: 1, Name: "Visa", Type: core.CardCredit, ClosingDay: 2, DueDay: 9})

	_, err := q.InsertExpense(ctx, core.Expense{
		WorkspaceID: ws.ID, Description: "Orphan", Kind: core.KindVariable,
		Amount: core.Cents(100), DueDate: core.NewDate(2025, time.March, 1),
		CardID: cardID, InstallmentCount: 1, InstallmentIndex: 1,
	})
	if err == nil {
		t.Fatal("card expense without invoice should violate the schema")
	}
}

func TestExpenseCandidatesAndAggregates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	q := repo.Queries()
	ws, _ := repo.CreateWorkspace(ctx, "Home", 1, "")

	insert := func(e core.Expense) int64 {
		t.Helper()
		e.WorkspaceID = ws.ID
		e.Kind = core.KindFixed
		e.InstallmentCount, e.InstallmentIndex = 1, 1
		id, err := q.InsertExpense(ctx, e)
		if err != nil {
			t.Fatalf("InsertExpense: %v", err)
		}
		return id
	}
	rent := insert(core.Expense{Description: "Rent", Amount: core.Cents(90000), DueDate: core.NewDate(2025, time.January, 5), Recurring: true})
	bill := insert(core.Expense{Description: "Power", Amount: core.Cents(6000), DueDate: core.NewDate(2025, time.February, 12)})
	insert(core.Expense{Description: "Old", Amount: core.Cents(100), DueDate: core.NewDate(2025, time.January, 12)})

	if err := q.SetExpensePayment(ctx, bill, core.Cents(5800), core.NewDate(2025, time.February, 11)); err != nil {
		t.Fatal(err)
	}

	feb := core.NewMonth(2025, time.February)
	got, err := q.ListExpenseCandidates(ctx, []int64{ws.ID}, feb)
	if err != nil {
		t.Fatalf("ListExpenseCandidates: %v", err)
	}
	if len(got) != 2 || got[0].ID != rent || got[1].ID != bill {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if !got[1].Paid || got[1].PaidAmount.Cents != 5800 || got[1].PaymentDate.String() != "2025-02-11" {
		t.Fatalf("payment not persisted: %+v", got[1])
	}

	monthly, err := q.MonthlyConfirmedExpense(ctx, []int64{ws.ID}, core.NewMonth(2025, time.January), feb)
	if err != nil {
		t.Fatalf("MonthlyConfirmedExpense: %v", err)
	}
	if monthly[feb].Cents != 5800 {
		t.Fatalf("confirmed February expense = %d", monthly[feb].Cents)
	}
	daily, err := q.DailyConfirmedExpense(ctx, []int64{ws.ID}, feb)
	if err != nil {
		t.Fatalf("DailyConfirmedExpense: %v", err)
	}
	if daily[12].Cents != 5800 {
		t.Fatalf("confirmed expense on the 12th = %d", daily[12].Cents)
	}

	overdue, err := q.UnpaidAlerts(ctx, []int64{ws.ID}, core.NewDate(2025, time.February, 20), true, 5)
	if err != nil {
		t.Fatalf("UnpaidAlerts: %v", err)
	}
	if len(overdue) != 1 || overdue[0].Description != "Old" {
		t.Fatalf("unexpected overdue alerts: %+v", overdue)
	}
}

func TestIncomeConfirmationUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	q := repo.Queries()
	ws, _ := repo.CreateWorkspace(ctx, "Home", 1, "")

	tmpl, err := q.InsertIncome(ctx, core.Income{
		WorkspaceID: ws.ID, Description: "Salary", Amount: core.Cents(50000),
		ReceiptDate: core.NewDate(2025, time.January, 5), Recurring: true,
		InstallmentCount: 1, InstallmentIndex: 1,
	})
	if err != nil {
		t.Fatalf("InsertIncome: %v", err)
	}
	conf := core.Income{
		WorkspaceID: ws.ID, Description: "Salary", Amount: core.Cents(50000),
		ReceiptDate: core.NewDate(2025, time.February, 5), Status: core.IncomeReceived,
		ReceivedAmount: core.Cents(48000), ConfirmedOn: core.NewDate(2025, time.February, 6),
		InstallmentCount: 1, InstallmentIndex: 1, OriginID: tmpl, ReferenceMonth: core.NewMonth(2025, time.February),
	}
	if _, err := q.InsertIncome(ctx, conf); err != nil {
		t.Fatalf("first confirmation: %v", err)
	}
	if _, err := q.InsertIncome(ctx, conf); err == nil {
		t.Fatal("second confirmation for the same month should fail")
	}

	found, err := q.FindConfirmation(ctx, tmpl, core.NewMonth(2025, time.February))
	if err != nil || found.ReceivedAmount.Cents != 48000 {
		t.Fatalf("FindConfirmation = %+v, %v", found, err)
	}

	income, err := q.MonthlyConfirmedIncome(ctx, []int64{ws.ID}, core.NewMonth(2025, time.January), core.NewMonth(2025, time.March))
	if err != nil {
		t.Fatalf("MonthlyConfirmedIncome: %v", err)
	}
	if income[core.NewMonth(2025, time.February)].Cents != 48000 || len(income) != 1 {
		t.Fatalf("unexpected monthly income: %v", income)
	}

	if err := q.DeleteIncome(ctx, tmpl); err != nil {
		t.Fatalf("DeleteIncome: %v", err)
	}
	if _, err := q.FindConfirmation(ctx, tmpl, core.NewMonth(2025, time.February)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("confirmation should be deleted with its template, got %v", err)
	}
}
