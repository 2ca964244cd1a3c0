package services

import (
	"errors"
	"testing"
	"time"

	"mesa/internal/core"
)

func TestIncomeUpdate(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.February, 27, 0, 0, 0, 0, time.UTC))
	tmpl := env.salary(t)
	res, err := env.resolver.ConfirmIncome(env.ctx, tmpl, env.workspace.ID, month(2025, time.February), core.Money{}, core.Date{})
	if err != nil {
		t.Fatalf("ConfirmIncome: %v", err)
	}

	inFeb, inMar := date(2025, time.February, 25), date(2025, time.March, 1)
	expenseCategory := int64(1)
	if _, err := env.incomes.Update(env.ctx, res.NewID, env.workspace.ID, IncomeUpdate{ReceiptDate: &inMar}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("moving a confirmation out of its month: got %v", err)
	}
	if _, err := env.incomes.Update(env.ctx, tmpl, env.workspace.ID, IncomeUpdate{CategoryID: &expenseCategory}); !errors.Is(err, core.ErrReference) {
		t.Fatalf("expense category on income: got %v", err)
	}

	inc, err := env.incomes.Update(env.ctx, res.NewID, env.workspace.ID, IncomeUpdate{ReceiptDate: &inFeb})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if inc.ReceiptDate != inFeb || inc.ReferenceMonth != month(2025, time.February) {
		t.Fatalf("updated confirmation = %+v", inc)
	}
}

func TestConfirmationCannotBeDeactivated(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.February, 27, 0, 0, 0, 0, time.UTC))
	tmpl := env.salary(t)
	feb := month(2025, time.February)
	res, err := env.resolver.ConfirmIncome(env.ctx, tmpl, env.workspace.ID, feb, core.Cents(48000), core.Date{})
	if err != nil {
		t.Fatalf("ConfirmIncome: %v", err)
	}

	if err := env.incomes.SetActive(env.ctx, res.NewID, env.workspace.ID, false); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("deactivating a confirmation: got %v", err)
	}

	view, err := env.resolver.MonthView(env.ctx, env.workspace.ID, feb)
	if err != nil {
		t.Fatalf("MonthView: %v", err)
	}
	if len(view.Incomes) != 1 || view.Incomes[0].ID != res.NewID || view.Incomes[0].Pending {
		t.Fatalf("february incomes = %+v", view.Incomes)
	}

	// Withdrawing the confirmation makes the month confirmable again.
	if _, err := env.resolver.UndoConfirmation(env.ctx, tmpl, env.workspace.ID, feb); err != nil {
		t.Fatalf("UndoConfirmation: %v", err)
	}
	if _, err := env.resolver.ConfirmIncome(env.ctx, tmpl, env.workspace.ID, feb, core.Cents(50000), core.Date{}); err != nil {
		t.Fatalf("confirming again: %v", err)
	}
}

func TestDeleteTemplateRemovesConfirmations(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	tmpl := env.salary(t)
	res, err := env.resolver.ConfirmIncome(env.ctx, tmpl, env.workspace.ID, month(2025, time.February), core.Money{}, core.Date{})
	if err != nil {
		t.Fatalf("ConfirmIncome: %v", err)
	}

	if err := env.incomes.Delete(env.ctx, tmpl, env.workspace.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, id := range []int64{tmpl, res.NewID} {
		if _, err := env.incomes.Get(env.ctx, id, env.workspace.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("income %d still present: %v", id, err)
		}
	}
}

func TestInactiveTemplateIsHidden(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	tmpl := env.salary(t)
	if err := env.incomes.SetActive(env.ctx, tmpl, env.workspace.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	view, err := env.resolver.VisibleIncomes(env.ctx, []int64{env.workspace.ID}, month(2025, time.March))
	if err != nil {
		t.Fatalf("VisibleIncomes: %v", err)
	}
	if len(view) != 0 {
		t.Fatalf("inactive template visible: %+v", view)
	}
	if _, err := env.resolver.ConfirmIncome(env.ctx, tmpl, env.workspace.ID, month(2025, time.March), core.Money{}, core.Date{}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("confirming inactive template: got %v", err)
	}
}
