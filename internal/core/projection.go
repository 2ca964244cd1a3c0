package core

import "github.com/shopspring/decimal"

// CriticalUtilization is the share of a credit card's limit from which the
// card is flagged on the dashboard.
var CriticalUtilization = decimal.NewFromFloat(0.8)

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Amount     Money  `json:"amount"`
}

// Alert is an unpaid expense that is overdue or due today.
type Alert struct {
	ExpenseID   int64  `json:"expense_id"`
	WorkspaceID int64  `json:"workspace_id"`
	Description string `json:"description"`
	Amount      Money  `json:"amount"`
	DueDate     Date   `json:"due_date"`
}

// CardUsage is a card's spend in the month against its limit.
type CardUsage struct {
	CardID      int64           `json:"card_id"`
	Name        string          `json:"name"`
	Type        CardType        `json:"type"`
	Spent       Money           `json:"spent"`
	Limit       Money           `json:"limit"`
	Utilization decimal.Decimal `json:"utilization"`
	Critical    bool            `json:"critical"`
}

// MonthTotals are the confirmed figures of one month.
type MonthTotals struct {
	Month   Month `json:"month"`
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// DayFlow is one day of the cash-flow series. Cumulative is the running
// balance from the first day of the month through this day.
type DayFlow struct {
	Day        int   `json:"day"`
	Income     Money `json:"income"`
	Expense    Money `json:"expense"`
	Net        Money `json:"net"`
	Cumulative Money `json:"cumulative"`
}

// ProjectionReport is the dashboard view of one month across workspaces.
type ProjectionReport struct {
	WorkspaceIDs []int64 `json:"workspace_ids"`
	Month        Month   `json:"month"`
	Today        Date    `json:"today"`

	ConfirmedIncome    Money `json:"confirmed_income"`
	ConfirmedExpense   Money `json:"confirmed_expense"`
	ProvisionedIncome  Money `json:"provisioned_income"`
	ProvisionedExpense Money `json:"provisioned_expense"`
	RealBalance        Money `json:"real_balance"`
	ProjectedBalance   Money `json:"projected_balance"`

	Overdue  []Alert          `json:"overdue"`
	DueToday []Alert          `json:"due_today"`
	Cards    []CardUsage      `json:"cards"`
	Top      []CategoryAmount `json:"top_categories"`
	Trend    []MonthTotals    `json:"trend"`
	CashFlow []DayFlow        `json:"cash_flow"`
}

// NewCardUsage computes utilization against the card's limit.
func NewCardUsage(c Card, spent Money) CardUsage {
	limit := c.Limit()
	ratio := spent.Ratio(limit)
	return CardUsage{
		CardID:      c.ID,
		Name:        c.Name,
		Type:        c.Type,
		Spent:       spent,
		Limit:       limit,
		Utilization: ratio,
		Critical:    c.Type == CardCredit && limit.Cents > 0 && ratio.GreaterThanOrEqual(CriticalUtilization),
	}
}

// BuildCashFlow turns per-day confirmed sums into the daily series of m
// with a running balance.
func BuildCashFlow(m Month, income, expense map[int]Money) []DayFlow {
	out := make([]DayFlow, 0, m.Days())
	var running Money
	for day := 1; day <= m.Days(); day++ {
		in, ex := income[day], expense[day]
		net := in.Sub(ex)
		running = running.Add(net)
		out = append(out, DayFlow{
			Day:        day,
			Income:     in,
			Expense:    ex,
			Net:        net,
			Cumulative: running,
		})
	}
	return out
}
