package services

import (
	"context"
	"log/slog"

	"mesa/internal/core"
	"mesa/internal/metrics"
	"mesa/internal/storage"
)

// Confirmation kinds reported by ConfirmIncome and UndoConfirmation.
const (
	ConfirmTemplate = "template"
	ConfirmDirect   = "direct"
)

// MonthView is everything a workspace shows for one month. Card purchases
// are reachable only through Invoices.
type MonthView struct {
	WorkspaceID int64                 `json:"workspace_id"`
	Month       core.Month            `json:"month"`
	Expenses    []core.VisibleExpense `json:"expenses"`
	Incomes     []core.VisibleIncome  `json:"incomes"`
	Invoices    []core.Invoice        `json:"invoices"`
}

type ConfirmResult struct {
	Kind  string `json:"kind"`
	NewID int64  `json:"new_id,omitempty"`
}

// RecurrenceResolver expands recurring templates and their per-month
// confirmations or cancellations into month views.
type RecurrenceResolver struct {
	clock
	repo   *storage.SQLiteRepository
	events EventPublisher
}

func NewRecurrenceResolver(repo *storage.SQLiteRepository, events EventPublisher) *RecurrenceResolver {
	return &RecurrenceResolver{repo: repo, events: events}
}

func (r *RecurrenceResolver) VisibleExpenses(ctx context.Context, workspaceIDs []int64, m core.Month) ([]core.VisibleExpense, error) {
	candidates, err := r.repo.Queries().ListExpenseCandidates(ctx, workspaceIDs, m)
	if err != nil {
		return nil, err
	}
	return core.ResolveExpenses(m, candidates), nil
}

func (r *RecurrenceResolver) VisibleIncomes(ctx context.Context, workspaceIDs []int64, m core.Month) ([]core.VisibleIncome, error) {
	candidates, err := r.repo.Queries().ListIncomeCandidates(ctx, workspaceIDs, m)
	if err != nil {
		return nil, err
	}
	return core.ResolveIncomes(m, candidates), nil
}

// MonthView lists the visible entries of a workspace for m.
func (r *RecurrenceResolver) MonthView(ctx context.Context, workspaceID int64, m core.Month) (MonthView, error) {
	if m.IsZero() {
		return MonthView{}, core.Invalid("month is required")
	}
	ws := []int64{workspaceID}
	expenses, err := r.VisibleExpenses(ctx, ws, m)
	if err != nil {
		return MonthView{}, err
	}
	incomes, err := r.VisibleIncomes(ctx, ws, m)
	if err != nil {
		return MonthView{}, err
	}
	invoices, err := r.repo.Queries().ListInvoicesDue(ctx, workspaceID, m)
	if err != nil {
		return MonthView{}, err
	}
	if invoices == nil {
		invoices = []core.Invoice{}
	}
	return MonthView{
		WorkspaceID: workspaceID,
		Month:       m,
		Expenses:    expenses,
		Incomes:     incomes,
		Invoices:    invoices,
	}, nil
}

// ConfirmIncome records the receipt of an income. A one-off income is
// confirmed in place. For a recurring template a confirmation row for m is
// inserted and the template itself is left untouched. A zero amount means
// the provisioned amount; a zero date means today.
func (r *RecurrenceResolver) ConfirmIncome(ctx context.Context, id, workspaceID int64, m core.Month, amount core.Money, on core.Date) (ConfirmResult, error) {
	if amount.Cents < 0 {
		return ConfirmResult{}, core.Invalid("received amount cannot be negative")
	}
	if on.IsZero() {
		on = r.today()
	}

	var res ConfirmResult
	err := r.repo.InTx(ctx, func(q *storage.Queries) error {
		inc, err := q.GetIncome(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		if !inc.Active {
			return core.NotFound("income %d is inactive", id)
		}
		if amount.IsZero() {
			amount = inc.Amount
		}

		switch inc.Shape() {
		case core.ShapeOccurrence:
			return core.Conflict("income %d is already a confirmation of %d", id, inc.OriginID)

		case core.ShapeStandalone:
			if inc.Status == core.IncomeReceived {
				return core.Conflict("income %d is already received", id)
			}
			m = core.MonthOf(inc.ReceiptDate.Time)
			res = ConfirmResult{Kind: ConfirmDirect}
			return q.SetIncomeStatus(ctx, id, core.IncomeReceived, amount, on)
		}

		if m.IsZero() {
			return core.Invalid("month is required to confirm a recurring income")
		}
		if m.Before(core.MonthOf(inc.ReceiptDate.Time)) {
			return core.Invalid("income %d does not recur before %s", id, core.MonthOf(inc.ReceiptDate.Time))
		}
		if _, err := q.FindConfirmation(ctx, id, m); err == nil {
			return core.Conflict("income %d is already confirmed for %s", id, m)
		} else if !isNotFound(err) {
			return err
		}

		newID, err := q.InsertIncome(ctx, core.Income{
			WorkspaceID:      inc.WorkspaceID,
			Description:      inc.Description,
			Amount:           inc.Amount,
			ReceiptDate:      inc.OccurrenceDate(m),
			CategoryID:       inc.CategoryID,
			PaymentTypeID:    inc.PaymentTypeID,
			Status:           core.IncomeReceived,
			ReceivedAmount:   amount,
			ConfirmedOn:      on,
			InstallmentCount: 1,
			InstallmentIndex: 1,
			InstallmentGroup: inc.InstallmentGroup,
			OriginID:         inc.ID,
			ReferenceMonth:   m,
		})
		if err != nil {
			return err
		}
		res = ConfirmResult{Kind: ConfirmTemplate, NewID: newID}
		return nil
	})
	if err != nil {
		return res, err
	}

	metrics.IncomeConfirmations.WithLabelValues(res.Kind).Inc()
	slog.InfoContext(ctx, "Income confirmed",
		"income_id", id,
		"workspace_id", workspaceID,
		"kind", res.Kind,
		"confirmation_id", res.NewID,
		"amount_cents", amount.Cents)
	publish(ctx, r.events, core.EventIncomeConfirmed, workspaceID, m, id)
	return res, nil
}

// UndoConfirmation deletes a template confirmation or reverts a one-off
// income to pending. id may name the confirmation row itself, or the
// template together with the month to undo.
func (r *RecurrenceResolver) UndoConfirmation(ctx context.Context, id, workspaceID int64, m core.Month) (ConfirmResult, error) {
	var res ConfirmResult
	err := r.repo.InTx(ctx, func(q *storage.Queries) error {
		inc, err := q.GetIncome(ctx, id, workspaceID)
		if err != nil {
			return err
		}

		switch inc.Shape() {
		case core.ShapeOccurrence:
			m = inc.ReferenceMonth
			res = ConfirmResult{Kind: ConfirmTemplate}
			return q.DeleteIncome(ctx, id)

		case core.ShapeTemplate:
			if m.IsZero() {
				return core.Invalid("month is required to undo a recurring confirmation")
			}
			conf, err := q.FindConfirmation(ctx, id, m)
			if err != nil {
				return err
			}
			res = ConfirmResult{Kind: ConfirmTemplate}
			return q.DeleteIncome(ctx, conf.ID)
		}

		if inc.Status != core.IncomeReceived {
			return core.Invalid("income %d is not confirmed", id)
		}
		m = core.MonthOf(inc.ReceiptDate.Time)
		res = ConfirmResult{Kind: ConfirmDirect}
		return q.SetIncomeStatus(ctx, id, core.IncomePending, core.Money{}, core.Date{})
	})
	if err != nil {
		return res, err
	}

	metrics.IncomeConfirmations.WithLabelValues("undo").Inc()
	slog.InfoContext(ctx, "Income confirmation reverted", "income_id", id, "workspace_id", workspaceID, "kind", res.Kind)
	publish(ctx, r.events, core.EventIncomeUnconfirmed, workspaceID, m, id)
	return res, nil
}

// CancelSeries stops a recurring expense from the first day of from
// onwards. Months before from are not affected.
func (r *RecurrenceResolver) CancelSeries(ctx context.Context, id, workspaceID int64, from core.Month) error {
	if from.IsZero() {
		return core.Invalid("cancellation month is required")
	}
	if err := r.setCancellation(ctx, id, workspaceID, from.First()); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Recurring expense cancelled", "expense_id", id, "workspace_id", workspaceID, "from", from.String())
	publish(ctx, r.events, core.EventSeriesCancelled, workspaceID, from, id)
	return nil
}

// ResumeSeries removes a cancellation, restoring every month it hid.
func (r *RecurrenceResolver) ResumeSeries(ctx context.Context, id, workspaceID int64) error {
	if err := r.setCancellation(ctx, id, workspaceID, core.Date{}); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Recurring expense resumed", "expense_id", id, "workspace_id", workspaceID)
	publish(ctx, r.events, core.EventSeriesResumed, workspaceID, core.Month{}, id)
	return nil
}

func (r *RecurrenceResolver) setCancellation(ctx context.Context, id, workspaceID int64, from core.Date) error {
	return r.repo.InTx(ctx, func(q *storage.Queries) error {
		e, err := q.GetExpense(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		if !e.Recurring {
			return core.Invalid("expense %d is not recurring", id)
		}
		return q.SetExpenseCancellation(ctx, id, from)
	})
}
