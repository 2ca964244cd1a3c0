package services

import (
	"context"
	"log/slog"
	"strings"

	"mesa/internal/core"
	"mesa/internal/storage"
)

type IncomeUpdate struct {
	Description *string     `json:"description"`
	Amount      *core.Money `json:"amount"`
	ReceiptDate *core.Date  `json:"receipt_date"`
	CategoryID  *int64      `json:"category_id"`
}

// IncomeService maintains single incomes.
type IncomeService struct {
	repo   *storage.SQLiteRepository
	events EventPublisher
}

func NewIncomeService(repo *storage.SQLiteRepository, events EventPublisher) *IncomeService {
	return &IncomeService{repo: repo, events: events}
}

func (s *IncomeService) Get(ctx context.Context, id, workspaceID int64) (core.Income, error) {
	return s.repo.Queries().GetIncome(ctx, id, workspaceID)
}

// Update applies the changes. A confirmation must stay inside the month it
// confirms.
func (s *IncomeService) Update(ctx context.Context, id, workspaceID int64, u IncomeUpdate) (core.Income, error) {
	var inc core.Income
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		inc, err = q.GetIncome(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		if u.Description != nil {
			d := strings.TrimSpace(*u.Description)
			if d == "" {
				return core.Invalid("description is required")
			}
			if len(d) > 200 {
				return core.Invalid("description too long (max 200 characters)")
			}
			inc.Description = d
		}
		if u.Amount != nil {
			if err := u.Amount.Validate(); err != nil {
				return err
			}
			inc.Amount = *u.Amount
		}
		if u.ReceiptDate != nil {
			if u.ReceiptDate.IsZero() {
				return core.Invalid("receipt date is required")
			}
			if inc.Shape() == core.ShapeOccurrence && !inc.ReferenceMonth.Contains(*u.ReceiptDate) {
				return core.Invalid("a confirmation for %s must be dated inside that month", inc.ReferenceMonth)
			}
			inc.ReceiptDate = *u.ReceiptDate
		}
		if u.CategoryID != nil {
			inc.CategoryID = *u.CategoryID
			if inc.CategoryID != 0 {
				ok, err := q.ActiveCategory(ctx, inc.CategoryID, string(core.EntryIncome))
				if err != nil {
					return err
				}
				if !ok {
					return core.BadReference("category %d does not exist or is inactive", inc.CategoryID)
				}
			}
		}
		return q.UpdateIncome(ctx, inc)
	})
	if err != nil {
		return inc, err
	}

	slog.InfoContext(ctx, "Income updated", "income_id", id, "workspace_id", workspaceID)
	publish(ctx, s.events, core.EventIncomeUpdated, workspaceID, core.MonthOf(inc.ReceiptDate.Time), id)
	return inc, nil
}

// SetActive deactivates or reactivates an income. Confirmations are
// withdrawn through UndoConfirmation, never deactivated.
func (s *IncomeService) SetActive(ctx context.Context, id, workspaceID int64, active bool) error {
	var inc core.Income
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		inc, err = q.GetIncome(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		if inc.Shape() == core.ShapeOccurrence {
			return core.Conflict("income %d confirms income %d for %s; undo the confirmation instead",
				id, inc.OriginID, inc.ReferenceMonth)
		}
		return q.SetIncomeActive(ctx, id, active)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Income active flag changed", "income_id", id, "workspace_id", workspaceID, "active", active)
	publish(ctx, s.events, core.EventIncomeUpdated, workspaceID, core.MonthOf(inc.ReceiptDate.Time), id)
	return nil
}

// Delete removes the income. Deleting a template also removes every
// confirmation of it.
func (s *IncomeService) Delete(ctx context.Context, id, workspaceID int64) error {
	var inc core.Income
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		inc, err = q.GetIncome(ctx, id, workspaceID)
		if err != nil {
			return err
		}
		return q.DeleteIncome(ctx, id)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Income deleted", "income_id", id, "workspace_id", workspaceID)
	publish(ctx, s.events, core.EventIncomeDeleted, workspaceID, core.MonthOf(inc.ReceiptDate.Time), id)
	return nil
}
