package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"mesa/internal/core"
	"mesa/internal/metrics"
	"mesa/internal/storage"
)

// PlannedRow is one ledger row an entry request expands into.
type PlannedRow struct {
	Index       int
	Description string
	Amount      core.Money
	Date        core.Date
}

// Plan is the expansion of an entry request before it touches the store.
type Plan struct {
	Group string
	Count int
	Rows  []PlannedRow
}

// PlanEntries splits a request into its monthly rows. Installment i is
// dated i-1 months after the start date, clamped to the target month, and
// its description carries an "(i/n)" suffix when there is more than one.
func PlanEntries(req core.EntryRequest, group string) Plan {
	count := req.InstallmentCount()
	amounts := req.Total.Split(count)
	plan := Plan{Group: group, Count: count, Rows: make([]PlannedRow, count)}
	for i := 0; i < count; i++ {
		desc := req.Description
		if count > 1 {
			desc = fmt.Sprintf("%s (%d/%d)", req.Description, i+1, count)
		}
		plan.Rows[i] = PlannedRow{
			Index:       i + 1,
			Description: desc,
			Amount:      amounts[i],
			Date:        req.StartDate.AddMonths(i),
		}
	}
	return plan
}

// EntryGenerator turns user transactions into ledger rows.
type EntryGenerator struct {
	repo       *storage.SQLiteRepository
	events     EventPublisher
	newGroupID func() string
}

func NewEntryGenerator(repo *storage.SQLiteRepository, events EventPublisher) *EntryGenerator {
	return &EntryGenerator{
		repo:       repo,
		events:     events,
		newGroupID: func() string { return uuid.NewString() },
	}
}

// Create writes every row of the request and returns their ids in
// installment order. Card purchases are linked to their statement before
// insertion and the statement total is recomputed after each row, all in
// one transaction.
func (g *EntryGenerator) Create(ctx context.Context, kind core.EntryKind, req core.EntryRequest) ([]int64, error) {
	if err := req.Validate(kind); err != nil {
		return nil, err
	}
	plan := PlanEntries(req, g.newGroupID())

	var ids []int64
	err := g.repo.InTx(ctx, func(q *storage.Queries) error {
		card, err := checkReferences(ctx, q, kind, req)
		if err != nil {
			return err
		}
		if kind == core.EntryIncome {
			ids, err = insertIncomes(ctx, q, req, plan)
			return err
		}
		ids, err = insertExpenses(ctx, q, req, plan, card)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.EntriesCreated.WithLabelValues(string(kind)).Add(float64(len(ids)))
	slog.InfoContext(ctx, "Ledger entries created",
		"kind", kind,
		"workspace_id", req.WorkspaceID,
		"rows", len(ids),
		"installment_group", plan.Group,
		"amount_cents", req.Total.Cents,
		"card_id", req.CardID)
	publish(ctx, g.events, core.EventEntriesCreated, req.WorkspaceID, core.MonthOf(req.StartDate.Time), ids[0])
	return ids, nil
}

func (g *EntryGenerator) CreateExpenses(ctx context.Context, req core.EntryRequest) ([]int64, error) {
	return g.Create(ctx, core.EntryExpense, req)
}

func (g *EntryGenerator) CreateIncomes(ctx context.Context, req core.EntryRequest) ([]int64, error) {
	return g.Create(ctx, core.EntryIncome, req)
}

// checkReferences validates the foreign keys of the request and returns the
// card a purchase is charged to, if any.
func checkReferences(ctx context.Context, q *storage.Queries, kind core.EntryKind, req core.EntryRequest) (*core.Card, error) {
	if req.CategoryID != 0 {
		ok, err := q.ActiveCategory(ctx, req.CategoryID, string(kind))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, core.BadReference("category %d does not exist or is inactive", req.CategoryID)
		}
	}

	creditCard := false
	if req.PaymentTypeID != 0 {
		pt, err := q.GetPaymentType(ctx, req.PaymentTypeID)
		if errors.Is(err, core.ErrNotFound) || (err == nil && !pt.Active) {
			return nil, core.BadReference("payment type %d does not exist or is inactive", req.PaymentTypeID)
		}
		if err != nil {
			return nil, err
		}
		creditCard = pt.CreditCard
	}

	if kind == core.EntryIncome {
		if creditCard {
			return nil, core.Invalid("incomes cannot use a credit card payment type")
		}
		return nil, nil
	}

	switch {
	case req.CardID == 0 && creditCard:
		return nil, core.Invalid("credit card payments require a card")
	case req.CardID == 0:
		return nil, nil
	case !creditCard:
		return nil, core.Invalid("a card can only be used with a credit card payment type")
	}

	card, err := cardFor(ctx, q, req.CardID, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func insertExpenses(ctx context.Context, q *storage.Queries, req core.EntryRequest, plan Plan, card *core.Card) ([]int64, error) {
	ids := make([]int64, 0, len(plan.Rows))
	for _, row := range plan.Rows {
		e := core.Expense{
			WorkspaceID:      req.WorkspaceID,
			Description:      row.Description,
			Kind:             req.Kind,
			Amount:           row.Amount,
			DueDate:          row.Date,
			CategoryID:       req.CategoryID,
			PaymentTypeID:    req.PaymentTypeID,
			Recurring:        req.Recurring,
			InstallmentCount: plan.Count,
			InstallmentIndex: row.Index,
			InstallmentGroup: plan.Group,
		}
		if card != nil {
			inv, err := resolveInvoice(ctx, q, *card, req.WorkspaceID, row.Date)
			if err != nil {
				return nil, err
			}
			e.CardID, e.InvoiceID = card.ID, inv.ID
		}

		id, err := q.InsertExpense(ctx, e)
		if err != nil {
			return nil, err
		}
		if e.InvoiceID != 0 {
			if _, err := recalculateInvoice(ctx, q, e.InvoiceID); err != nil {
				return nil, err
			}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func insertIncomes(ctx context.Context, q *storage.Queries, req core.EntryRequest, plan Plan) ([]int64, error) {
	ids := make([]int64, 0, len(plan.Rows))
	for _, row := range plan.Rows {
		id, err := q.InsertIncome(ctx, core.Income{
			WorkspaceID:      req.WorkspaceID,
			Description:      row.Description,
			Amount:           row.Amount,
			ReceiptDate:      row.Date,
			CategoryID:       req.CategoryID,
			PaymentTypeID:    req.PaymentTypeID,
			Recurring:        req.Recurring,
			Status:           core.IncomePending,
			InstallmentCount: plan.Count,
			InstallmentIndex: row.Index,
			InstallmentGroup: plan.Group,
		})
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
