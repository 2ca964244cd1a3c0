package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"mesa/internal/core"
	"mesa/internal/metrics"
	"mesa/internal/storage"
)

const (
	trendMonths = 6
	alertLimit  = 5
	topLimit    = 5
)

// ProjectionService composes the month views of several workspaces into the
// dashboard report. Every figure is computed fresh from the store.
type ProjectionService struct {
	clock
	repo     *storage.SQLiteRepository
	resolver *RecurrenceResolver
}

func NewProjectionService(repo *storage.SQLiteRepository, resolver *RecurrenceResolver) *ProjectionService {
	return &ProjectionService{repo: repo, resolver: resolver}
}

// Projection builds the report of workspaceIDs for m.
func (s *ProjectionService) Projection(ctx context.Context, workspaceIDs []int64, m core.Month) (core.ProjectionReport, error) {
	if len(workspaceIDs) == 0 {
		return core.ProjectionReport{}, core.Invalid("at least one workspace is required")
	}
	if m.IsZero() {
		return core.ProjectionReport{}, core.Invalid("month is required")
	}

	start := time.Now()
	defer func() { metrics.ProjectionDuration.Observe(time.Since(start).Seconds()) }()

	q := s.repo.Queries()
	today := s.today()
	report := core.ProjectionReport{
		WorkspaceIDs: workspaceIDs,
		Month:        m,
		Today:        today,
	}

	var (
		monthlyIncome, monthlyExpense map[core.Month]core.Money
		dailyIncome, dailyExpense     map[int]core.Money
		pendingIncome, pendingExpense core.Money
		openInvoices                  core.Money
	)
	from := m.Add(-(trendMonths - 1))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		monthlyIncome, err = q.MonthlyConfirmedIncome(ctx, workspaceIDs, from, m)
		return err
	})
	g.Go(func() (err error) {
		monthlyExpense, err = q.MonthlyConfirmedExpense(ctx, workspaceIDs, from, m)
		return err
	})
	g.Go(func() (err error) {
		dailyIncome, err = q.DailyConfirmedIncome(ctx, workspaceIDs, m)
		return err
	})
	g.Go(func() (err error) {
		dailyExpense, err = q.DailyConfirmedExpense(ctx, workspaceIDs, m)
		return err
	})
	g.Go(func() error {
		rows, err := s.resolver.VisibleIncomes(ctx, workspaceIDs, m)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if r.Pending {
				pendingIncome = pendingIncome.Add(r.Amount)
			}
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.resolver.VisibleExpenses(ctx, workspaceIDs, m)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if r.Pending {
				pendingExpense = pendingExpense.Add(r.Amount)
			}
		}
		return nil
	})
	g.Go(func() (err error) {
		openInvoices, err = q.OpenInvoiceTotal(ctx, workspaceIDs, m)
		return err
	})
	g.Go(func() (err error) {
		report.Overdue, err = q.UnpaidAlerts(ctx, workspaceIDs, today, true, alertLimit)
		return err
	})
	g.Go(func() (err error) {
		report.DueToday, err = q.UnpaidAlerts(ctx, workspaceIDs, today, false, alertLimit)
		return err
	})
	g.Go(func() (err error) {
		report.Top, err = q.TopCategories(ctx, workspaceIDs, m, topLimit)
		return err
	})
	g.Go(func() (err error) {
		report.Cards, err = s.cardUsage(ctx, q, workspaceIDs, m)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.ProjectionReport{}, err
	}

	report.ConfirmedIncome = monthlyIncome[m]
	report.ConfirmedExpense = monthlyExpense[m]
	report.ProvisionedIncome = report.ConfirmedIncome.Add(pendingIncome)
	report.ProvisionedExpense = report.ConfirmedExpense.Add(pendingExpense).Add(openInvoices)
	report.RealBalance = report.ConfirmedIncome.Sub(report.ConfirmedExpense)
	report.ProjectedBalance = report.ProvisionedIncome.Sub(report.ProvisionedExpense)

	report.Trend = make([]core.MonthTotals, 0, trendMonths)
	for mm := from; !m.Before(mm); mm = mm.Add(1) {
		in, out := monthlyIncome[mm], monthlyExpense[mm]
		report.Trend = append(report.Trend, core.MonthTotals{
			Month:   mm,
			Income:  in,
			Expense: out,
			Balance: in.Sub(out),
		})
	}
	report.CashFlow = core.BuildCashFlow(m, dailyIncome, dailyExpense)

	slog.DebugContext(ctx, "Projection computed",
		"workspaces", workspaceIDs,
		"month", m.String(),
		"duration", time.Since(start))
	return report, nil
}

// cardUsage reports every active card of the workspaces' members. Spend is
// counted across all workspaces the card is used in.
func (s *ProjectionService) cardUsage(ctx context.Context, q *storage.Queries, workspaceIDs []int64, m core.Month) ([]core.CardUsage, error) {
	members, err := q.WorkspaceMembers(ctx, workspaceIDs)
	if err != nil {
		return nil, err
	}
	cards, err := q.ListActiveCardsForUsers(ctx, members)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	spend, err := q.CardSpend(ctx, ids, m)
	if err != nil {
		return nil, err
	}

	usage := make([]core.CardUsage, 0, len(cards))
	for _, c := range cards {
		usage = append(usage, core.NewCardUsage(c, spend[c.ID]))
	}
	sort.SliceStable(usage, func(i, j int) bool {
		return usage[i].Utilization.GreaterThan(usage[j].Utilization)
	})
	return usage, nil
}
