package google

import (
	"fmt"
	"strings"
	"time"

	"mesa/internal/core"
)

// SummaryHeader labels the columns written by summaryRow.
var SummaryHeader = []any{
	"Exported at", "Workspace", "Month",
	"Confirmed income", "Confirmed expense", "Provisioned income", "Provisioned expense",
	"Real balance", "Projected balance", "Overdue", "Due today", "Critical cards",
}

func summaryRow(workspaceID int64, r core.ProjectionReport, at time.Time) []any {
	critical := make([]string, 0, len(r.Cards))
	for _, c := range r.Cards {
		if c.Critical {
			critical = append(critical, c.Name)
		}
	}
	return []any{
		at.UTC().Format(time.RFC3339),
		workspaceID,
		r.Month.String(),
		r.ConfirmedIncome.String(),
		r.ConfirmedExpense.String(),
		r.ProvisionedIncome.String(),
		r.ProvisionedExpense.String(),
		r.RealBalance.String(),
		r.ProjectedBalance.String(),
		len(r.Overdue),
		len(r.DueToday),
		strings.Join(critical, ", "),
	}
}

// cashFlowRows emits only days with movement.
func cashFlowRows(workspaceID int64, r core.ProjectionReport) [][]any {
	var rows [][]any
	for _, d := range r.CashFlow {
		if d.Income.IsZero() && d.Expense.IsZero() {
			continue
		}
		rows = append(rows, []any{
			workspaceID,
			r.Month.Day(d.Day).String(),
			d.Income.String(),
			d.Expense.String(),
			d.Net.String(),
			d.Cumulative.String(),
			r.Month.String(),
		})
	}
	return rows
}

func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return fmt.Sprintf("%d", year)
	}
	return fmt.Sprintf("%d %s", year, base)
}
