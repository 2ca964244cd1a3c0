package services

import (
	"errors"
	"testing"
	"time"

	"mesa/internal/core"
)

func TestExpensePayAndUnpay(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC))
	rent := env.expense(t, "Rent", 80000, date(2025, time.March, 1), catHousing)

	tests := []struct {
		name   string
		req    PaymentRequest
		amount int64
		paidOn string
	}{
		{"defaults", PaymentRequest{}, 80000, "2025-03-12"},
		{"explicit", PaymentRequest{Amount: core.Cents(79500), Date: date(2025, time.March, 2)}, 79500, "2025-03-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := env.expenses.Pay(env.ctx, rent, env.workspace.ID, tt.req)
			if err != nil {
				t.Fatalf("Pay: %v", err)
			}
			if !e.Paid || e.PaidAmount.Cents != tt.amount || e.PaymentDate.String() != tt.paidOn {
				t.Fatalf("paid expense = %+v", e)
			}
			if _, err := env.expenses.Pay(env.ctx, rent, env.workspace.ID, tt.req); !errors.Is(err, core.ErrConflict) {
				t.Fatalf("paying twice should conflict, got %v", err)
			}
			if err := env.expenses.Unpay(env.ctx, rent, env.workspace.ID); err != nil {
				t.Fatalf("Unpay: %v", err)
			}
			got, _ := env.expenses.Get(env.ctx, rent, env.workspace.ID)
			if got.Paid || !got.PaidAmount.IsZero() || !got.PaymentDate.IsZero() {
				t.Fatalf("payment not reverted: %+v", got)
			}
		})
	}

	if err := env.expenses.Unpay(env.ctx, rent, env.workspace.ID); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("unpaying an unpaid expense should fail, got %v", err)
	}
}

func TestCardExpenseIsSettledThroughInvoice(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC))
	ids := env.create(t, core.EntryExpense, env.cardPurchase("Shoes", 9000, date(2025, time.March, 5), 1))

	if _, err := env.expenses.Pay(env.ctx, ids[0], env.workspace.ID, PaymentRequest{}); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("Pay on card purchase: got %v", err)
	}
	if err := env.expenses.Unpay(env.ctx, ids[0], env.workspace.ID); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("Unpay on card purchase: got %v", err)
	}
}

func TestPayInactiveExpense(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC))
	id := env.expense(t, "Gas", 6000, date(2025, time.March, 8), 0)
	if err := env.expenses.SetActive(env.ctx, id, env.workspace.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := env.expenses.Pay(env.ctx, id, env.workspace.ID, PaymentRequest{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAttachReceipt(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC))
	id := env.expense(t, "Dentist", 12000, date(2025, time.March, 11), 0)

	if err := env.expenses.AttachReceipt(env.ctx, id, env.workspace.ID, "dentist.pdf"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("receipt on unpaid expense: got %v", err)
	}
	if _, err := env.expenses.Pay(env.ctx, id, env.workspace.ID, PaymentRequest{}); err != nil {
		t.Fatalf("Pay: %v", err)
	}

	bad := []string{"", "   ", "../etc/passwd", "dir/file.pdf"}
	for _, name := range bad {
		if err := env.expenses.AttachReceipt(env.ctx, id, env.workspace.ID, name); !errors.Is(err, core.ErrValidation) {
			t.Errorf("AttachReceipt(%q) = %v, want validation error", name, err)
		}
	}
	if err := env.expenses.AttachReceipt(env.ctx, id, env.workspace.ID, "dentist.pdf"); err != nil {
		t.Fatalf("AttachReceipt: %v", err)
	}
	e, _ := env.expenses.Get(env.ctx, id, env.workspace.ID)
	if e.Receipt != "dentist.pdf" {
		t.Fatalf("receipt = %q", e.Receipt)
	}

	if err := env.expenses.Unpay(env.ctx, id, env.workspace.ID); err != nil {
		t.Fatalf("Unpay: %v", err)
	}
	e, _ = env.expenses.Get(env.ctx, id, env.workspace.ID)
	if e.Receipt != "" {
		t.Fatalf("receipt should be dropped with the payment, got %q", e.Receipt)
	}
}

func TestExpenseUpdateValidation(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC))
	id := env.expense(t, "Books", 2000, date(2025, time.March, 3), 0)

	blank := " "
	badKind := core.ExpenseKind("weekly")
	zero := core.Money{}
	incomeCategory := int64(10)

	tests := []struct {
		name string
		u    ExpenseUpdate
		want error
	}{
		{"blank description", ExpenseUpdate{Description: &blank}, core.ErrValidation},
		{"unknown kind", ExpenseUpdate{Kind: &badKind}, core.ErrValidation},
		{"zero amount", ExpenseUpdate{Amount: &zero}, core.ErrValidation},
		{"income category", ExpenseUpdate{CategoryID: &incomeCategory}, core.ErrReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.expenses.Update(env.ctx, id, env.workspace.ID, tt.u); !errors.Is(err, tt.want) {
				t.Fatalf("Update = %v, want %v", err, tt.want)
			}
		})
	}

	desc := "Textbooks"
	e, err := env.expenses.Update(env.ctx, id, env.workspace.ID, ExpenseUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if e.Description != "Textbooks" || e.Amount.Cents != 2000 {
		t.Fatalf("updated expense = %+v", e)
	}
}

func TestExpenseDeleteAndWorkspaceScope(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC))
	id := env.expense(t, "Parking", 1500, date(2025, time.March, 3), 0)

	if _, err := env.expenses.Get(env.ctx, id, env.workspace.ID+1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expense leaked across workspaces: %v", err)
	}
	if err := env.expenses.Delete(env.ctx, id, env.workspace.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := env.expenses.Get(env.ctx, id, env.workspace.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleted expense still readable: %v", err)
	}
	if got := env.events.types(); got[len(got)-1] != core.EventExpenseDeleted {
		t.Fatalf("last event = %s", got[len(got)-1])
	}
}
