package core

// EntryShape tags what a ledger row represents over time.
type EntryShape string

const (
	// ShapeStandalone is a one-off row, possibly one installment of a group.
	ShapeStandalone EntryShape = "standalone"
	// ShapeTemplate is an open-ended monthly recurring row.
	ShapeTemplate EntryShape = "template"
	// ShapeOccurrence is the confirmation of one month of a template.
	ShapeOccurrence EntryShape = "occurrence"
)

// Shape resolves the row kind. Occurrences are never recurring themselves.
func (e Expense) Shape() EntryShape {
	if e.Recurring {
		return ShapeTemplate
	}
	return ShapeStandalone
}

// Shape resolves the row kind from the back-reference and recurring flag.
func (i Income) Shape() EntryShape {
	switch {
	case i.OriginID != 0:
		return ShapeOccurrence
	case i.Recurring:
		return ShapeTemplate
	default:
		return ShapeStandalone
	}
}

// VisibleIn reports whether the expense belongs to the month view of m.
// Card purchases never do: they surface through their statement. A
// recurring row is visible from its first due month until the month its
// cancellation takes effect, exclusive.
func (e Expense) VisibleIn(m Month) bool {
	if !e.Active || e.CardID != 0 {
		return false
	}
	if e.Shape() == ShapeStandalone {
		return m.Contains(e.DueDate)
	}
	if e.DueDate.After(m.Last().Time) {
		return false
	}
	return e.CancelledFrom.IsZero() || e.CancelledFrom.After(m.Last().Time)
}

// OccurrenceDate is the day a template's occurrence falls on in m.
func (e Expense) OccurrenceDate(m Month) Date {
	if e.Shape() == ShapeTemplate {
		return m.Day(e.DueDate.Day())
	}
	return e.DueDate
}

// OccurrenceDate is the day a template's occurrence falls on in m.
func (i Income) OccurrenceDate(m Month) Date {
	if i.Shape() == ShapeTemplate {
		return m.Day(i.ReceiptDate.Day())
	}
	return i.ReceiptDate
}

// Pending reports whether a visible expense still counts as a provision
// for m rather than a confirmed payment in m.
func (e Expense) Pending(m Month) bool {
	return !(e.Paid && m.Contains(e.DueDate))
}

// VisibleExpense is one row of a month view with its resolved shape.
type VisibleExpense struct {
	Expense
	Shape   EntryShape `json:"shape"`
	Date    Date       `json:"date"`
	Pending bool       `json:"pending"`
}

// VisibleIncome is one row of a month view with its resolved shape. A
// template in the view is always pending: once confirmed for the month it
// is replaced by its occurrence.
type VisibleIncome struct {
	Income
	Shape   EntryShape `json:"shape"`
	Date    Date       `json:"date"`
	Pending bool       `json:"pending"`
}

// ResolveExpenses filters candidate rows down to the month view of m.
func ResolveExpenses(m Month, candidates []Expense) []VisibleExpense {
	out := make([]VisibleExpense, 0, len(candidates))
	for _, e := range candidates {
		if !e.VisibleIn(m) {
			continue
		}
		out = append(out, VisibleExpense{
			Expense: e,
			Shape:   e.Shape(),
			Date:    e.OccurrenceDate(m),
			Pending: e.Pending(m),
		})
	}
	return out
}

// ResolveIncomes builds the income month view of m from candidate rows:
// standalone rows received in m, templates started on or before m without
// a confirmation for m, and the confirmations whose reference month is m.
// Each template is represented exactly once.
func ResolveIncomes(m Month, candidates []Income) []VisibleIncome {
	confirmed := make(map[int64]bool)
	for _, i := range candidates {
		if i.Active && i.Shape() == ShapeOccurrence && i.ReferenceMonth == m {
			confirmed[i.OriginID] = true
		}
	}

	out := make([]VisibleIncome, 0, len(candidates))
	seen := make(map[int64]bool)
	for _, i := range candidates {
		if !i.Active || seen[i.ID] {
			continue
		}
		shape := i.Shape()
		switch shape {
		case ShapeStandalone:
			if !m.Contains(i.ReceiptDate) {
				continue
			}
		case ShapeTemplate:
			if i.ReceiptDate.After(m.Last().Time) || confirmed[i.ID] {
				continue
			}
		case ShapeOccurrence:
			if i.ReferenceMonth != m {
				continue
			}
		}
		seen[i.ID] = true
		out = append(out, VisibleIncome{
			Income:  i,
			Shape:   shape,
			Date:    i.OccurrenceDate(m),
			Pending: shape == ShapeTemplate || i.Status != IncomeReceived,
		})
	}
	return out
}
