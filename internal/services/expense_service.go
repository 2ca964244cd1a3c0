package services

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"mesa/internal/core"
	"mesa/internal/storage"
)

// ExpenseUpdate lists the fields a user may change. Nil means unchanged.
type ExpenseUpdate struct {
	Description *string           `json:"description"`
	Kind        *core.ExpenseKind `json:"kind"`
	Amount      *core.Money       `json:"amount"`
	DueDate     *core.Date        `json:"due_date"`
	CategoryID  *int64            `json:"category_id"`
}

// PaymentRequest carries optional actual amount and date; zero values mean
// the provisioned amount and today.
type PaymentRequest struct {
	Amount core.Money `json:"amount"`
	Date   core.Date  `json:"date"`
}

// ExpenseService maintains single expenses. Every change to a card
// purchase recomputes the affected statements in the same transaction.
type ExpenseService struct {
	clock
	repo   *storage.SQLiteRepository
	events EventPublisher
}

func NewExpenseService(repo *storage.SQLiteRepository, events EventPublisher) *ExpenseService {
	return &ExpenseService{repo: repo, events: events}
}

func (s *ExpenseService) Get(ctx context.Context, id, workspaceID int64) (core.Expense, error) {
	return s.repo.Queries().GetExpense(ctx, id, workspaceID)
}

// Update applies the changes. A card purchase whose date moves to another
// billing cycle is relinked, and both statements are recomputed. The date
// and amount of a purchase on a paid statement are frozen until the
// statement is reopened.
func (s *ExpenseService) Update(ctx context.Context, id, workspaceID int64, u ExpenseUpdate) (core.Expense, error) {
	var e core.Expense
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		e, err = q.GetExpense(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		before := e
		if err := applyExpenseUpdate(&e, u); err != nil {
			return err
		}
		settled := !e.DueDate.Equal(before.DueDate.Time) || e.Amount != before.Amount
		if settled && e.InvoiceID != 0 {
			if err := requireOpenInvoice(ctx, q, id, e.InvoiceID); err != nil {
				return err
			}
		}
		if u.CategoryID != nil && e.CategoryID != 0 {
			ok, err := q.ActiveCategory(ctx, e.CategoryID, string(core.EntryExpense))
			if err != nil {
				return err
			}
			if !ok {
				return core.BadReference("category %d does not exist or is inactive", e.CategoryID)
			}
		}

		previous := e.InvoiceID
		if e.CardID != 0 && u.DueDate != nil {
			card, err := cardFor(ctx, q, e.CardID, workspaceID)
			if err != nil {
				return err
			}
			inv, err := resolveInvoice(ctx, q, card, workspaceID, e.DueDate)
			if err != nil {
				return err
			}
			if inv.ID != previous && inv.Status == core.InvoicePaid {
				return core.Conflict("expense %d would move onto paid invoice %d", id, inv.ID)
			}
			e.InvoiceID = inv.ID
		}
		if err := q.UpdateExpense(ctx, e); err != nil {
			return err
		}
		return recalculateLinked(ctx, q, previous, e.InvoiceID)
	})
	if err != nil {
		return e, err
	}

	slog.InfoContext(ctx, "Expense updated", "expense_id", id, "workspace_id", workspaceID, "invoice_id", e.InvoiceID)
	publish(ctx, s.events, core.EventExpenseUpdated, workspaceID, core.MonthOf(e.DueDate.Time), id)
	return e, nil
}

func applyExpenseUpdate(e *core.Expense, u ExpenseUpdate) error {
	if u.Description != nil {
		d := strings.TrimSpace(*u.Description)
		if d == "" {
			return core.Invalid("description is required")
		}
		if len(d) > 200 {
			return core.Invalid("description too long (max 200 characters)")
		}
		e.Description = d
	}
	if u.Kind != nil {
		if !u.Kind.IsValid() {
			return core.Invalid("unknown expense kind %q", *u.Kind)
		}
		e.Kind = *u.Kind
	}
	if u.Amount != nil {
		if err := u.Amount.Validate(); err != nil {
			return err
		}
		e.Amount = *u.Amount
	}
	if u.DueDate != nil {
		if u.DueDate.IsZero() {
			return core.Invalid("due date is required")
		}
		e.DueDate = *u.DueDate
	}
	if u.CategoryID != nil {
		e.CategoryID = *u.CategoryID
	}
	return nil
}

func requireOpenInvoice(ctx context.Context, q *storage.Queries, expenseID, invoiceID int64) error {
	inv, err := q.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status == core.InvoicePaid {
		return core.Conflict("expense %d is on paid invoice %d; reopen it before changing date or amount", expenseID, invoiceID)
	}
	return nil
}

// recalculateLinked recomputes each distinct non-zero statement.
func recalculateLinked(ctx context.Context, q *storage.Queries, invoiceIDs ...int64) error {
	seen := make(map[int64]bool, len(invoiceIDs))
	for _, id := range invoiceIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := recalculateInvoice(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}

// SetActive deactivates or reactivates an expense.
func (s *ExpenseService) SetActive(ctx context.Context, id, workspaceID int64, active bool) error {
	var e core.Expense
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		e, err = q.GetExpense(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		if err := q.SetExpenseActive(ctx, id, active); err != nil {
			return err
		}
		return recalculateLinked(ctx, q, e.InvoiceID)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense active flag changed", "expense_id", id, "workspace_id", workspaceID, "active", active)
	publish(ctx, s.events, core.EventExpenseUpdated, workspaceID, core.MonthOf(e.DueDate.Time), id)
	return nil
}

func (s *ExpenseService) Delete(ctx context.Context, id, workspaceID int64) error {
	var e core.Expense
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		e, err = q.GetExpense(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		if err := q.DeleteExpense(ctx, id); err != nil {
			return err
		}
		return recalculateLinked(ctx, q, e.InvoiceID)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense deleted", "expense_id", id, "workspace_id", workspaceID)
	publish(ctx, s.events, core.EventExpenseDeleted, workspaceID, core.MonthOf(e.DueDate.Time), id)
	return nil
}

// Pay settles a non-card expense. Card purchases are settled through their
// statement.
func (s *ExpenseService) Pay(ctx context.Context, id, workspaceID int64, req PaymentRequest) (core.Expense, error) {
	if req.Amount.Cents < 0 {
		return core.Expense{}, core.Invalid("payment amount cannot be negative")
	}
	var e core.Expense
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		e, err = q.GetExpense(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		if !e.Active {
			return core.NotFound("expense %d is inactive", id)
		}
		if e.CardID != 0 {
			return core.Conflict("expense %d is settled through invoice %d", id, e.InvoiceID)
		}
		if e.Paid {
			return core.Conflict("expense %d is already paid", id)
		}
		e.Paid = true
		e.PaidAmount, e.PaymentDate = req.Amount, req.Date
		if e.PaidAmount.IsZero() {
			e.PaidAmount = e.Amount
		}
		if e.PaymentDate.IsZero() {
			e.PaymentDate = s.today()
		}
		return q.SetExpensePayment(ctx, id, e.PaidAmount, e.PaymentDate)
	})
	if err != nil {
		return e, err
	}

	slog.InfoContext(ctx, "Expense paid", "expense_id", id, "workspace_id", workspaceID, "amount_cents", e.PaidAmount.Cents)
	publish(ctx, s.events, core.EventExpenseUpdated, workspaceID, core.MonthOf(e.DueDate.Time), id)
	return e, nil
}

// Unpay reverts a payment and drops any attached receipt.
func (s *ExpenseService) Unpay(ctx context.Context, id, workspaceID int64) error {
	var e core.Expense
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		e, err = q.GetExpense(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		if e.CardID != 0 {
			return core.Conflict("expense %d is settled through invoice %d", id, e.InvoiceID)
		}
		if !e.Paid {
			return core.Invalid("expense %d is not paid", id)
		}
		return q.SetExpensePayment(ctx, id, core.Money{}, core.Date{})
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense payment reverted", "expense_id", id, "workspace_id", workspaceID)
	publish(ctx, s.events, core.EventExpenseUpdated, workspaceID, core.MonthOf(e.DueDate.Time), id)
	return nil
}

// AttachReceipt stores the name of a receipt file on a paid expense. The
// file itself lives in external storage.
func (s *ExpenseService) AttachReceipt(ctx context.Context, id, workspaceID int64, filename string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return core.Invalid("receipt filename is required")
	}
	if len(filename) > 255 || filepath.Base(filename) != filename {
		return core.Invalid("invalid receipt filename %q", filename)
	}

	return s.repo.InTx(ctx, func(q *storage.Queries) error {
		e, err := q.GetExpense(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		if !e.Paid {
			return core.Invalid("receipts can only be attached to paid expenses")
		}
		return q.SetExpenseReceipt(ctx, id, filename)
	})
}
