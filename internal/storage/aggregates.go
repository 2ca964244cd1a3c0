package storage

import (
	"context"
	"fmt"
	"strconv"

	"mesa/internal/core"
)

// Confirmed amounts fall back to the provisioned amount when no actual
// amount was recorded.
const (
	confirmedIncomeSQL = `SELECT %s AS bucket, COALESCE(SUM(COALESCE(received_amount_cents, amount_cents)), 0)
		FROM incomes
		WHERE workspace_id IN (%s) AND active = 1 AND status = 'received' AND receipt_date BETWEEN ? AND ?
		GROUP BY bucket`

	confirmedExpenseSQL = `SELECT bucket, COALESCE(SUM(amount), 0) FROM (
			SELECT %[1]s AS bucket, COALESCE(paid_amount_cents, amount_cents) AS amount
			FROM expenses
			WHERE workspace_id IN (%[2]s) AND active = 1 AND paid = 1 AND card_id IS NULL
			  AND due_date BETWEEN ? AND ?
			UNION ALL
			SELECT %[1]s AS bucket, COALESCE(paid_amount_cents, total_cents) AS amount
			FROM invoices
			WHERE workspace_id IN (%[2]s) AND active = 1 AND status = 'paid' AND due_date BETWEEN ? AND ?
		) GROUP BY bucket`
)

func (q *Queries) sumByBucket(ctx context.Context, query string, args []interface{}, each func(bucket string, cents int64) error) error {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bucket string
			cents  int64
		)
		if err := rows.Scan(&bucket, &cents); err != nil {
			return err
		}
		if err := each(bucket, cents); err != nil {
			return err
		}
	}
	return rows.Err()
}

// MonthlyConfirmedIncome sums received incomes per month in [from, to].
func (q *Queries) MonthlyConfirmedIncome(ctx context.Context, workspaceIDs []int64, from, to core.Month) (map[core.Month]core.Money, error) {
	in, args := inInt64(workspaceIDs)
	args = append(args, from.First().String(), to.Last().String())
	out := make(map[core.Month]core.Money)
	err := q.sumByBucket(ctx, fmt.Sprintf(confirmedIncomeSQL, "substr(receipt_date, 1, 7)", in), args,
		func(bucket string, cents int64) error {
			m, err := core.ParseMonth(bucket)
			if err != nil {
				return err
			}
			out[m] = core.Cents(cents)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("monthly confirmed income: %w", err)
	}
	return out, nil
}

// MonthlyConfirmedExpense sums paid non-card expenses and paid statements
// per due month in [from, to].
func (q *Queries) MonthlyConfirmedExpense(ctx context.Context, workspaceIDs []int64, from, to core.Month) (map[core.Month]core.Money, error) {
	in, wsArgs := inInt64(workspaceIDs)
	var args []interface{}
	args = append(args, wsArgs...)
	args = append(args, from.First().String(), to.Last().String())
	args = append(args, wsArgs...)
	args = append(args, from.First().String(), to.Last().String())

	out := make(map[core.Month]core.Money)
	err := q.sumByBucket(ctx, fmt.Sprintf(confirmedExpenseSQL, "substr(due_date, 1, 7)", in), args,
		func(bucket string, cents int64) error {
			m, err := core.ParseMonth(bucket)
			if err != nil {
				return err
			}
			out[m] = core.Cents(cents)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("monthly confirmed expense: %w", err)
	}
	return out, nil
}

// DailyConfirmedIncome sums received incomes of m by day of receipt.
func (q *Queries) DailyConfirmedIncome(ctx context.Context, workspaceIDs []int64, m core.Month) (map[int]core.Money, error) {
	in, args := inInt64(workspaceIDs)
	args = append(args, m.First().String(), m.Last().String())
	out := make(map[int]core.Money)
	err := q.sumByBucket(ctx, fmt.Sprintf(confirmedIncomeSQL, "substr(receipt_date, 9, 2)", in), args,
		func(bucket string, cents int64) error {
			day, err := strconv.Atoi(bucket)
			if err != nil {
				return err
			}
			out[day] = core.Cents(cents)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("daily confirmed income: %w", err)
	}
	return out, nil
}

// DailyConfirmedExpense sums paid expenses and statements of m by due day.
func (q *Queries) DailyConfirmedExpense(ctx context.Context, workspaceIDs []int64, m core.Month) (map[int]core.Money, error) {
	in, wsArgs := inInt64(workspaceIDs)
	var args []interface{}
	args = append(args, wsArgs...)
	args = append(args, m.First().String(), m.Last().String())
	args = append(args, wsArgs...)
	args = append(args, m.First().String(), m.Last().String())

	out := make(map[int]core.Money)
	err := q.sumByBucket(ctx, fmt.Sprintf(confirmedExpenseSQL, "substr(due_date, 9, 2)", in), args,
		func(bucket string, cents int64) error {
			day, err := strconv.Atoi(bucket)
			if err != nil {
				return err
			}
			out[day] = core.Cents(cents)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("daily confirmed expense: %w", err)
	}
	return out, nil
}

// OpenInvoiceTotal sums the statements of the workspaces still open and
// due in m.
func (q *Queries) OpenInvoiceTotal(ctx context.Context, workspaceIDs []int64, m core.Month) (core.Money, error) {
	in, args := inInt64(workspaceIDs)
	args = append(args, m.First().String(), m.Last().String())
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_cents), 0) FROM invoices
		 WHERE workspace_id IN (`+in+`) AND active = 1 AND status = 'open' AND due_date BETWEEN ? AND ?`,
		args...,
	).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("open invoice total: %w", err)
	}
	return core.Cents(total), nil
}

// UnpaidAlerts lists unpaid one-off expenses not tied to a card. With
// overdue set it returns rows due strictly before today, oldest first;
// otherwise rows due today, largest first.
func (q *Queries) UnpaidAlerts(ctx context.Context, workspaceIDs []int64, today core.Date, overdue bool, limit int) ([]core.Alert, error) {
	in, args := inInt64(workspaceIDs)
	args = append(args, today.String(), limit)
	cond, order := "due_date = ?", "amount_cents DESC, id"
	if overdue {
		cond, order = "due_date < ?", "due_date ASC, id"
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, workspace_id, description, amount_cents, due_date FROM expenses
		 WHERE workspace_id IN (`+in+`) AND active = 1 AND paid = 0 AND recurring = 0 AND card_id IS NULL
		   AND `+cond+`
		 ORDER BY `+order+` LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []core.Alert{}
	for rows.Next() {
		var (
			a   core.Alert
			due string
		)
		if err := rows.Scan(&a.ExpenseID, &a.WorkspaceID, &a.Description, &a.Amount.Cents, &due); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if a.DueDate, err = core.ParseDate(due); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// CardSpend sums paid and unpaid active expenses of each card due in m,
// across every workspace.
func (q *Queries) CardSpend(ctx context.Context, cardIDs []int64, m core.Month) (map[int64]core.Money, error) {
	in, args := inInt64(cardIDs)
	args = append(args, m.First().String(), m.Last().String())
	rows, err := q.db.QueryContext(ctx,
		`SELECT card_id, COALESCE(SUM(amount_cents), 0) FROM expenses
		 WHERE card_id IN (`+in+`) AND active = 1 AND due_date BETWEEN ? AND ?
		 GROUP BY card_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("card spend: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]core.Money)
	for rows.Next() {
		var id, cents int64
		if err := rows.Scan(&id, &cents); err != nil {
			return nil, fmt.Errorf("scan card spend: %w", err)
		}
		out[id] = core.Cents(cents)
	}
	return out, rows.Err()
}

// TopCategories ranks expense categories by the amount of active expenses
// due in m, card purchases included.
func (q *Queries) TopCategories(ctx context.Context, workspaceIDs []int64, m core.Month, limit int) ([]core.CategoryAmount, error) {
	in, args := inInt64(workspaceIDs)
	args = append(args, m.First().String(), m.Last().String(), limit)
	rows, err := q.db.QueryContext(ctx,
		`SELECT COALESCE(c.id, 0), COALESCE(c.name, 'Uncategorized'), SUM(e.amount_cents) AS total
		 FROM expenses e
		 LEFT JOIN categories c ON c.id = e.category_id
		 WHERE e.workspace_id IN (`+in+`) AND e.active = 1 AND e.due_date BETWEEN ? AND ?
		 GROUP BY COALESCE(c.id, 0), COALESCE(c.name, 'Uncategorized')
		 ORDER BY total DESC
		 LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
