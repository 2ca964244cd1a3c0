package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mesa/internal/core"
)

const expenseColumns = `id, workspace_id, description, kind, amount_cents, due_date, category_id,
	payment_type_id, card_id, recurring, installment_count, installment_index, installment_group,
	invoice_id, paid, paid_amount_cents, payment_date, cancelled_from, active, receipt`

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                               core.Expense
		kind, due                       string
		category, paymentType, cardID   sql.NullInt64
		invoiceID, paidAmount           sql.NullInt64
		recurring, paid, active         int64
		paymentDate, cancelled, receipt sql.NullString
	)
	if err := s.Scan(&e.ID, &e.WorkspaceID, &e.Description, &kind, &e.Amount.Cents, &due,
		&category, &paymentType, &cardID, &recurring, &e.InstallmentCount, &e.InstallmentIndex,
		&e.InstallmentGroup, &invoiceID, &paid, &paidAmount, &paymentDate, &cancelled, &active,
		&receipt); err != nil {
		return e, err
	}

	var err error
	if e.DueDate, err = core.ParseDate(due); err != nil {
		return e, err
	}
	if e.PaymentDate, err = parseDate(paymentDate); err != nil {
		return e, err
	}
	if e.CancelledFrom, err = parseDate(cancelled); err != nil {
		return e, err
	}
	e.Kind = core.ExpenseKind(kind)
	e.CategoryID = category.Int64
	e.PaymentTypeID = paymentType.Int64
	e.CardID = cardID.Int64
	e.InvoiceID = invoiceID.Int64
	e.PaidAmount = core.Cents(paidAmount.Int64)
	e.Recurring = recurring == 1
	e.Paid = paid == 1
	e.Active = active == 1
	e.Receipt = receipt.String
	return e, nil
}

func (q *Queries) listExpenses(ctx context.Context, query string, args ...interface{}) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO expenses (workspace_id, description, kind, amount_cents, due_date, category_id,
			payment_type_id, card_id, recurring, installment_count, installment_index, installment_group,
			invoice_id, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		e.WorkspaceID, e.Description, string(e.Kind), e.Amount.Cents, e.DueDate.String(),
		nullID(e.CategoryID), nullID(e.PaymentTypeID), nullID(e.CardID), boolInt(e.Recurring),
		e.InstallmentCount, e.InstallmentIndex, e.InstallmentGroup, nullID(e.InvoiceID))
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	return res.LastInsertId()
}

// GetExpense returns the expense when it belongs to workspaceID, whether
// active or not.
func (q *Queries) GetExpense(ctx context.Context, id, workspaceID int64) (core.Expense, error) {
	e, err := scanExpense(q.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND workspace_id = ?`, id, workspaceID))
	if errors.Is(err, sql.ErrNoRows) {
		return e, core.NotFound("expense %d not found in workspace %d", id, workspaceID)
	}
	if err != nil {
		return e, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// UpdateExpense writes the user-editable fields and the statement link.
func (q *Queries) UpdateExpense(ctx context.Context, e core.Expense) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET description = ?, kind = ?, amount_cents = ?, due_date = ?, category_id = ?,
			invoice_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND workspace_id = ?`,
		e.Description, string(e.Kind), e.Amount.Cents, e.DueDate.String(), nullID(e.CategoryID),
		nullID(e.InvoiceID), e.ID, e.WorkspaceID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

func (q *Queries) SetExpenseActive(ctx context.Context, id int64, active bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, boolInt(active), id)
	if err != nil {
		return fmt.Errorf("set expense active: %w", err)
	}
	return nil
}

func (q *Queries) DeleteExpense(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// SetExpensePayment records or clears a payment. A zero date clears it.
func (q *Queries) SetExpensePayment(ctx context.Context, id int64, amount core.Money, date core.Date) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET paid = ?, paid_amount_cents = ?, payment_date = ?,
			receipt = CASE WHEN ? = 0 THEN NULL ELSE receipt END, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		boolInt(!date.IsZero()), nullCents(amount), nullDate(date), boolInt(!date.IsZero()), id)
	if err != nil {
		return fmt.Errorf("set expense payment: %w", err)
	}
	return nil
}

func (q *Queries) SetExpenseReceipt(ctx context.Context, id int64, receipt string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET receipt = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, nullString(receipt), id)
	if err != nil {
		return fmt.Errorf("set expense receipt: %w", err)
	}
	return nil
}

// SetExpenseCancellation sets the first day a recurring expense stops
// applying. A zero date resumes the series.
func (q *Queries) SetExpenseCancellation(ctx context.Context, id int64, from core.Date) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET cancelled_from = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND recurring = 1`,
		nullDate(from), id)
	if err != nil {
		return fmt.Errorf("set expense cancellation: %w", err)
	}
	return nil
}

// ListExpenseCandidates returns the active non-card rows of the workspaces
// that may be visible in m: one-off rows due in m and recurring rows
// started on or before it. Cancellation is applied by the caller.
func (q *Queries) ListExpenseCandidates(ctx context.Context, workspaceIDs []int64, m core.Month) ([]core.Expense, error) {
	in, args := inInt64(workspaceIDs)
	args = append(args, m.First().String(), m.Last().String(), m.Last().String())
	return q.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE workspace_id IN (`+in+`) AND active = 1 AND card_id IS NULL
		   AND ((recurring = 0 AND due_date BETWEEN ? AND ?) OR (recurring = 1 AND due_date <= ?))
		 ORDER BY due_date, id`, args...)
}
