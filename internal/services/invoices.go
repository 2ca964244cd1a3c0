package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mesa/internal/core"
	"mesa/internal/metrics"
	"mesa/internal/storage"
)

// InvoiceCycleManager assigns card purchases to monthly statements and
// keeps statement totals and payments consistent with their expenses.
type InvoiceCycleManager struct {
	clock
	repo   *storage.SQLiteRepository
	events EventPublisher
}

func NewInvoiceCycleManager(repo *storage.SQLiteRepository, events EventPublisher) *InvoiceCycleManager {
	return &InvoiceCycleManager{repo: repo, events: events}
}

// PayInvoiceRequest carries the optional payment details. Zero values mean
// "use the statement total" and "today".
type PayInvoiceRequest struct {
	Amount core.Money `json:"amount"`
	Date   core.Date  `json:"date"`
}

type PaymentResult struct {
	InvoiceID  int64      `json:"invoice_id"`
	AmountPaid core.Money `json:"amount_paid"`
	Date       core.Date  `json:"payment_date"`
	Expenses   int64      `json:"expenses_updated"`
}

// InvoiceDetail is a statement with its active linked expenses.
type InvoiceDetail struct {
	core.Invoice
	Expenses []core.Expense `json:"expenses"`
}

// resolveInvoice returns the workspace's active statement of card that a
// transaction on date falls into, creating it on first use.
func resolveInvoice(ctx context.Context, q *storage.Queries, card core.Card, workspaceID int64, date core.Date) (core.Invoice, error) {
	stmt := core.NewStatement(card, workspaceID, date)
	if err := q.InsertInvoiceIfAbsent(ctx, stmt); err != nil {
		return core.Invoice{}, err
	}
	return q.FindActiveInvoice(ctx, card.ID, workspaceID, stmt.ReferenceMonth)
}

// recalculateInvoice recomputes the statement total from scratch.
func recalculateInvoice(ctx context.Context, q *storage.Queries, invoiceID int64) (core.Money, error) {
	total, err := q.RecalculateInvoiceTotal(ctx, invoiceID)
	if err != nil {
		return total, fmt.Errorf("recalculate invoice %d: %w", invoiceID, err)
	}
	metrics.InvoiceRecalculations.Inc()
	return total, nil
}

// Resolve maps a transaction date to the workspace's statement for the
// card. Calling it again for any date of the same cycle returns the same
// statement. A missing, inactive or foreign card is reported as not found.
func (m *InvoiceCycleManager) Resolve(ctx context.Context, cardID, workspaceID int64, date core.Date) (core.Invoice, error) {
	if date.IsZero() {
		return core.Invoice{}, core.Invalid("transaction date is required")
	}
	var inv core.Invoice
	err := m.repo.InTx(ctx, func(q *storage.Queries) error {
		card, err := cardFor(ctx, q, cardID, workspaceID)
		if errors.Is(err, core.ErrReference) {
			return core.NotFound("card %d not found for workspace %d", cardID, workspaceID)
		}
		if err != nil {
			return err
		}
		inv, err = resolveInvoice(ctx, q, card, workspaceID, date)
		return err
	})
	return inv, err
}

// Recalculate rewrites the statement total from its active expenses.
func (m *InvoiceCycleManager) Recalculate(ctx context.Context, invoiceID int64) (core.Invoice, error) {
	var inv core.Invoice
	err := m.repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetInvoice(ctx, invoiceID); err != nil {
			return err
		}
		if _, err := recalculateInvoice(ctx, q, invoiceID); err != nil {
			return err
		}
		var err error
		inv, err = q.GetInvoice(ctx, invoiceID)
		return err
	})
	if err != nil {
		return inv, err
	}

	slog.InfoContext(ctx, "Invoice recalculated", "invoice_id", invoiceID, "total_cents", inv.Total.Cents)
	publish(ctx, m.events, core.EventInvoiceRecalculated, inv.WorkspaceID, inv.ReferenceMonth, inv.ID)
	return inv, nil
}

// Get returns the statement and its expenses within the workspace.
func (m *InvoiceCycleManager) Get(ctx context.Context, invoiceID, workspaceID int64) (InvoiceDetail, error) {
	q := m.repo.Queries()
	inv, err := q.GetWorkspaceInvoice(ctx, invoiceID, workspaceID)
	if err != nil {
		return InvoiceDetail{}, err
	}
	expenses, err := q.ListInvoiceExpenses(ctx, invoiceID)
	if err != nil {
		return InvoiceDetail{}, err
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	return InvoiceDetail{Invoice: inv, Expenses: expenses}, nil
}

// Pay settles the statement and every active linked expense in one
// transaction. Each expense is settled at its own provisioned amount, not
// a share of the statement's actual amount.
func (m *InvoiceCycleManager) Pay(ctx context.Context, invoiceID, workspaceID int64, req PayInvoiceRequest) (PaymentResult, error) {
	if req.Amount.Cents < 0 {
		return PaymentResult{}, core.Invalid("payment amount cannot be negative")
	}

	var (
		res PaymentResult
		inv core.Invoice
	)
	err := m.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		inv, err = q.GetWorkspaceInvoice(ctx, invoiceID, workspaceID)
		if err != nil {
			return err
		}
		if inv.Status == core.InvoicePaid {
			return core.Conflict("invoice %d is already paid", invoiceID)
		}

		amount, date := req.Amount, req.Date
		if amount.IsZero() {
			amount = inv.Total
		}
		if date.IsZero() {
			date = m.today()
		}
		if err := q.MarkInvoicePaid(ctx, invoiceID, amount, date); err != nil {
			return err
		}
		n, err := q.PayInvoiceExpenses(ctx, invoiceID, date)
		if err != nil {
			return err
		}
		res = PaymentResult{InvoiceID: invoiceID, AmountPaid: amount, Date: date, Expenses: n}
		return nil
	})
	if err != nil {
		return res, err
	}

	metrics.InvoicePayments.WithLabelValues("pay").Inc()
	slog.InfoContext(ctx, "Invoice paid",
		"invoice_id", invoiceID,
		"workspace_id", workspaceID,
		"amount_cents", res.AmountPaid.Cents,
		"expenses", res.Expenses)
	publish(ctx, m.events, core.EventInvoicePaid, workspaceID, inv.ReferenceMonth, invoiceID)
	return res, nil
}

// UndoPay reopens a paid statement and reverts every linked expense.
func (m *InvoiceCycleManager) UndoPay(ctx context.Context, invoiceID, workspaceID int64) error {
	var inv core.Invoice
	err := m.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		inv, err = q.GetWorkspaceInvoice(ctx, invoiceID, workspaceID)
		if err != nil {
			return err
		}
		if inv.Status != core.InvoicePaid {
			return core.Invalid("invoice %d is not paid", invoiceID)
		}
		if err := q.MarkInvoiceOpen(ctx, invoiceID); err != nil {
			return err
		}
		_, err = q.UnpayInvoiceExpenses(ctx, invoiceID)
		return err
	})
	if err != nil {
		return err
	}

	metrics.InvoicePayments.WithLabelValues("undo").Inc()
	slog.InfoContext(ctx, "Invoice payment reverted", "invoice_id", invoiceID, "workspace_id", workspaceID)
	publish(ctx, m.events, core.EventInvoiceReopened, workspaceID, inv.ReferenceMonth, invoiceID)
	return nil
}

// cardFor loads an active card for use by a workspace, reporting a missing
// card or one whose owner is not a member as a bad reference.
func cardFor(ctx context.Context, q *storage.Queries, cardID, workspaceID int64) (core.Card, error) {
	card, err := q.GetActiveCard(ctx, cardID)
	if errors.Is(err, core.ErrNotFound) {
		return card, core.BadReference("card %d does not exist or is inactive", cardID)
	}
	if err != nil {
		return card, err
	}
	ok, err := q.IsMember(ctx, workspaceID, card.UserID)
	if err != nil {
		return card, err
	}
	if !ok {
		return card, core.BadReference("card %d does not belong to a member of workspace %d", cardID, workspaceID)
	}
	return card, nil
}
