package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mesa/internal/core"
)

const incomeColumns = `id, workspace_id, description, amount_cents, receipt_date, category_id, payment_type_id,
	recurring, status, received_amount_cents, confirmed_on, installment_count, installment_index,
	installment_group, origin_id, reference_month, active`

func scanIncome(s scanner) (core.Income, error) {
	var (
		i                           core.Income
		receipt, status             string
		category, paymentType       sql.NullInt64
		received, origin            sql.NullInt64
		recurring, active           int64
		confirmedOn, referenceMonth sql.NullString
	)
	if err := s.Scan(&i.ID, &i.WorkspaceID, &i.Description, &i.Amount.Cents, &receipt, &category,
		&paymentType, &recurring, &status, &received, &confirmedOn, &i.InstallmentCount,
		&i.InstallmentIndex, &i.InstallmentGroup, &origin, &referenceMonth, &active); err != nil {
		return i, err
	}

	var err error
	if i.ReceiptDate, err = core.ParseDate(receipt); err != nil {
		return i, err
	}
	if i.ConfirmedOn, err = parseDate(confirmedOn); err != nil {
		return i, err
	}
	if i.ReferenceMonth, err = parseMonth(referenceMonth); err != nil {
		return i, err
	}
	i.Status = core.IncomeStatus(status)
	i.CategoryID = category.Int64
	i.PaymentTypeID = paymentType.Int64
	i.ReceivedAmount = core.Cents(received.Int64)
	i.OriginID = origin.Int64
	i.Recurring = recurring == 1
	i.Active = active == 1
	return i, nil
}

func (q *Queries) listIncomes(ctx context.Context, query string, args ...interface{}) ([]core.Income, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		i, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (q *Queries) InsertIncome(ctx context.Context, i core.Income) (int64, error) {
	status := i.Status
	if status == "" {
		status = core.IncomePending
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO incomes (workspace_id, description, amount_cents, receipt_date, category_id,
			payment_type_id, recurring, status, received_amount_cents, confirmed_on, installment_count,
			installment_index, installment_group, origin_id, reference_month, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		i.WorkspaceID, i.Description, i.Amount.Cents, i.ReceiptDate.String(), nullID(i.CategoryID),
		nullID(i.PaymentTypeID), boolInt(i.Recurring), string(status), nullCents(i.ReceivedAmount),
		nullDate(i.ConfirmedOn), i.InstallmentCount, i.InstallmentIndex, i.InstallmentGroup,
		nullID(i.OriginID), nullMonth(i.ReferenceMonth))
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetIncome(ctx context.Context, id, workspaceID int64) (core.Income, error) {
	i, err := scanIncome(q.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE id = ? AND workspace_id = ?`, id, workspaceID))
	if errors.Is(err, sql.ErrNoRows) {
		return i, core.NotFound("income %d not found in workspace %d", id, workspaceID)
	}
	if err != nil {
		return i, fmt.Errorf("get income: %w", err)
	}
	return i, nil
}

// FindConfirmation returns the confirmation of template originID for m.
func (q *Queries) FindConfirmation(ctx context.Context, originID int64, m core.Month) (core.Income, error) {
	i, err := scanIncome(q.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM incomes WHERE origin_id = ? AND reference_month = ?`,
		originID, m.First().String()))
	if errors.Is(err, sql.ErrNoRows) {
		return i, core.NotFound("no confirmation of income %d for %s", originID, m)
	}
	if err != nil {
		return i, fmt.Errorf("find confirmation: %w", err)
	}
	return i, nil
}

func (q *Queries) UpdateIncome(ctx context.Context, i core.Income) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE incomes SET description = ?, amount_cents = ?, receipt_date = ?, category_id = ?,
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND workspace_id = ?`,
		i.Description, i.Amount.Cents, i.ReceiptDate.String(), nullID(i.CategoryID), i.ID, i.WorkspaceID)
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	return nil
}

// SetIncomeStatus confirms or reverts a row in place. Reverting to pending
// clears the received amount and confirmation date.
func (q *Queries) SetIncomeStatus(ctx context.Context, id int64, status core.IncomeStatus, received core.Money, on core.Date) error {
	if status == core.IncomePending {
		received, on = core.Money{}, core.Date{}
	}
	_, err := q.db.ExecContext(ctx,
		`UPDATE incomes SET status = ?, received_amount_cents = ?, confirmed_on = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		string(status), nullCents(received), nullDate(on), id)
	if err != nil {
		return fmt.Errorf("set income status: %w", err)
	}
	return nil
}

func (q *Queries) SetIncomeActive(ctx context.Context, id int64, active bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE incomes SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, boolInt(active), id)
	if err != nil {
		return fmt.Errorf("set income active: %w", err)
	}
	return nil
}

// DeleteIncome removes the row together with any confirmations pointing
// at it.
func (q *Queries) DeleteIncome(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM incomes WHERE origin_id = ?`, id); err != nil {
		return fmt.Errorf("delete income confirmations: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return nil
}

// ListIncomeCandidates returns the active rows of the workspaces that may be
// visible in m.
func (q *Queries) ListIncomeCandidates(ctx context.Context, workspaceIDs []int64, m core.Month) ([]core.Income, error) {
	in, args := inInt64(workspaceIDs)
	args = append(args, m.First().String(), m.Last().String(), m.Last().String(), m.First().String())
	return q.listIncomes(ctx,
		`SELECT `+incomeColumns+` FROM incomes
		 WHERE workspace_id IN (`+in+`) AND active = 1
		   AND ((origin_id IS NULL AND recurring = 0 AND receipt_date BETWEEN ? AND ?)
		     OR (recurring = 1 AND receipt_date <= ?)
		     OR (origin_id IS NOT NULL AND reference_month = ?))
		 ORDER BY receipt_date, id`, args...)
}
