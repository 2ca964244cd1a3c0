package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mesa/internal/core"
)

const invoiceColumns = `id, card_id, workspace_id, reference_month, closing_date, due_date,
	total_cents, status, paid_amount_cents, payment_date, active`

func scanInvoice(s scanner) (core.Invoice, error) {
	var (
		inv               core.Invoice
		ref, closing, due string
		status            string
		paidAmount        sql.NullInt64
		paymentDate       sql.NullString
		active            int64
	)
	if err := s.Scan(&inv.ID, &inv.CardID, &inv.WorkspaceID, &ref, &closing, &due,
		&inv.Total.Cents, &status, &paidAmount, &paymentDate, &active); err != nil {
		return inv, err
	}
	var err error
	if inv.ReferenceMonth, err = core.ParseMonth(ref); err != nil {
		return inv, err
	}
	if inv.ClosingDate, err = core.ParseDate(closing); err != nil {
		return inv, err
	}
	if inv.DueDate, err = core.ParseDate(due); err != nil {
		return inv, err
	}
	if inv.PaymentDate, err = parseDate(paymentDate); err != nil {
		return inv, err
	}
	inv.Status = core.InvoiceStatus(status)
	inv.PaidAmount = core.Cents(paidAmount.Int64)
	inv.Active = active == 1
	return inv, nil
}

// InsertInvoiceIfAbsent creates the statement unless an active one already
// exists for the same card, workspace and reference month.
func (q *Queries) InsertInvoiceIfAbsent(ctx context.Context, inv core.Invoice) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO invoices (card_id, workspace_id, reference_month, closing_date, due_date, total_cents, status)
		 VALUES (?, ?, ?, ?, ?, 0, 'open')`,
		inv.CardID, inv.WorkspaceID, inv.ReferenceMonth.First().String(),
		inv.ClosingDate.String(), inv.DueDate.String())
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// FindActiveInvoice returns the workspace's statement of the card for ref.
// A card shared by a member of several workspaces has one statement per
// workspace and month.
func (q *Queries) FindActiveInvoice(ctx context.Context, cardID, workspaceID int64, ref core.Month) (core.Invoice, error) {
	inv, err := scanInvoice(q.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE card_id = ? AND workspace_id = ? AND reference_month = ? AND active = 1`,
		cardID, workspaceID, ref.First().String()))
	if errors.Is(err, sql.ErrNoRows) {
		return inv, core.NotFound("no statement for card %d in workspace %d for %s", cardID, workspaceID, ref)
	}
	if err != nil {
		return inv, fmt.Errorf("find invoice: %w", err)
	}
	return inv, nil
}

func (q *Queries) GetInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	inv, err := scanInvoice(q.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ? AND active = 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return inv, core.NotFound("invoice %d not found", id)
	}
	if err != nil {
		return inv, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetWorkspaceInvoice scopes the lookup to the invoice's workspace.
func (q *Queries) GetWorkspaceInvoice(ctx context.Context, id, workspaceID int64) (core.Invoice, error) {
	inv, err := scanInvoice(q.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ? AND workspace_id = ? AND active = 1`,
		id, workspaceID))
	if errors.Is(err, sql.ErrNoRows) {
		return inv, core.NotFound("invoice %d not found in workspace %d", id, workspaceID)
	}
	if err != nil {
		return inv, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// RecalculateInvoiceTotal rewrites the total from the active linked
// expenses and returns it.
func (q *Queries) RecalculateInvoiceTotal(ctx context.Context, id int64) (core.Money, error) {
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE invoice_id = ? AND active = 1`, id,
	).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum invoice expenses: %w", err)
	}
	if _, err := q.db.ExecContext(ctx,
		`UPDATE invoices SET total_cents = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, total, id); err != nil {
		return core.Money{}, fmt.Errorf("update invoice total: %w", err)
	}
	return core.Cents(total), nil
}

func (q *Queries) MarkInvoicePaid(ctx context.Context, id int64, amount core.Money, date core.Date) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE invoices SET status = 'paid', paid_amount_cents = ?, payment_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, amount.Cents, date.String(), id)
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	return nil
}

func (q *Queries) MarkInvoiceOpen(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE invoices SET status = 'open', paid_amount_cents = NULL, payment_date = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark invoice open: %w", err)
	}
	return nil
}

// PayInvoiceExpenses settles every active linked expense at its own
// provisioned amount.
func (q *Queries) PayInvoiceExpenses(ctx context.Context, invoiceID int64, date core.Date) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET paid = 1, paid_amount_cents = amount_cents, payment_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE invoice_id = ? AND active = 1`, date.String(), invoiceID)
	if err != nil {
		return 0, fmt.Errorf("pay invoice expenses: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) UnpayInvoiceExpenses(ctx context.Context, invoiceID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET paid = 0, paid_amount_cents = NULL, payment_date = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE invoice_id = ?`, invoiceID)
	if err != nil {
		return 0, fmt.Errorf("unpay invoice expenses: %w", err)
	}
	return res.RowsAffected()
}

func (q *Queries) ListInvoiceExpenses(ctx context.Context, invoiceID int64) ([]core.Expense, error) {
	return q.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE invoice_id = ? AND active = 1 ORDER BY due_date, id`,
		invoiceID)
}

// ListInvoicesDue lists the workspace's active statements due in m.
func (q *Queries) ListInvoicesDue(ctx context.Context, workspaceID int64, m core.Month) ([]core.Invoice, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE workspace_id = ? AND active = 1 AND due_date BETWEEN ? AND ?
		 ORDER BY due_date, id`,
		workspaceID, m.First().String(), m.Last().String())
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}
