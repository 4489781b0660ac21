package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/repository"
)

// countedStatuses are the expense statuses that reduce profit
var countedStatuses = []string{models.ExpenseStatusApproved, models.ExpenseStatusPaid}

// TenantProfit is invoiced revenue less accepted expenses
type TenantProfit struct {
	Revenue      float64 `json:"revenue"`
	Expenses     float64 `json:"expenses"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
}

// ProjectProfit is a project's billable work less its accepted expenses
type ProjectProfit struct {
	ProjectID    uint    `json:"project_id"`
	ProjectName  string  `json:"project_name"`
	Earnings     float64 `json:"earnings"`
	Hours        float64 `json:"hours"`
	Expenses     float64 `json:"expenses"`
	ExpenseCount int     `json:"expense_count"`
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profit_margin"`
}

// MonthlyExpenses totals the accepted expenses of one month
type MonthlyExpenses struct {
	Month    int     `json:"month"`
	Year     int     `json:"year"`
	Total    float64 `json:"total"`
	Approved float64 `json:"approved"`
	Paid     float64 `json:"paid"`
	Count    int     `json:"count"`
}

// ExpensePoint is one month of the expense trend
type ExpensePoint struct {
	Month    string  `json:"month"`
	Expenses float64 `json:"expenses"`
	Count    int     `json:"count"`
}

// margin is profit as a percentage of earnings, two decimals. No earnings
// means no margin.
func margin(profitCents, earningsCents int64) float64 {
	if earningsCents == 0 {
		return 0
	}
	return ledger.RoundCurrency(float64(profitCents) * 100 / float64(earningsCents))
}

func expenseCents(expenses []models.Expense) int64 {
	var total int64
	for i := range expenses {
		total += ledger.ToCents(expenses[i].Amount)
	}
	return total
}

// TenantProfit compares everything invoiced with every accepted expense
func (s *DashboardService) TenantProfit(ctx context.Context, p models.Principal) (*TenantProfit, error) {
	invoices, err := s.repos.Invoice.ListAll(ctx, repository.Scope{UserID: p.UserID})
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}
	expenses, err := s.repos.Expense.Find(ctx, p.UserID, repository.ExpenseFilter{Statuses: countedStatuses})
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	var revenue int64
	for i := range invoices {
		revenue += invoices[i].Financials().TotalCents()
	}
	spent := expenseCents(expenses)
	profit := revenue - spent
	return &TenantProfit{
		Revenue:      ledger.FromCents(revenue),
		Expenses:     ledger.FromCents(spent),
		Profit:       ledger.FromCents(profit),
		ProfitMargin: margin(profit, revenue),
	}, nil
}

// ProjectProfit values a project by its billable work, invoiced or not, and
// subtracts the accepted expenses booked against it.
func (s *DashboardService) ProjectProfit(ctx context.Context, p models.Principal, projectID uint) (*ProjectProfit, error) {
	project, err := s.repos.Project.FindForTenant(ctx, p.UserID, projectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}
	logs, err := s.repos.WorkLog.BillableForTenant(ctx, p.UserID, &project.ID)
	if err != nil {
		return nil, fmt.Errorf("load work logs: %w", err)
	}
	expenses, err := s.repos.Expense.Find(ctx, p.UserID, repository.ExpenseFilter{ProjectID: &project.ID, Statuses: countedStatuses})
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	pp := projectProfit(project, logs, expenses)
	return &pp, nil
}

// ProjectProfitability ranks the tenant's projects by profit, best first
func (s *DashboardService) ProjectProfitability(ctx context.Context, p models.Principal, limit int) ([]ProjectProfit, error) {
	if limit < 1 {
		limit = 10
	}
	projects, err := s.repos.Project.AllForTenant(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	logs, err := s.repos.WorkLog.BillableForTenant(ctx, p.UserID, nil)
	if err != nil {
		return nil, fmt.Errorf("load work logs: %w", err)
	}
	expenses, err := s.repos.Expense.Find(ctx, p.UserID, repository.ExpenseFilter{Statuses: countedStatuses})
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	logsBy := map[uint][]models.WorkLog{}
	for _, l := range logs {
		logsBy[l.ProjectID] = append(logsBy[l.ProjectID], l)
	}
	expensesBy := map[uint][]models.Expense{}
	for _, e := range expenses {
		if e.ProjectID != nil {
			expensesBy[*e.ProjectID] = append(expensesBy[*e.ProjectID], e)
		}
	}

	ranked := make([]ProjectProfit, 0, len(projects))
	for i := range projects {
		ranked = append(ranked, projectProfit(&projects[i], logsBy[projects[i].ID], expensesBy[projects[i].ID]))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ledger.ToCents(ranked[i].Profit) > ledger.ToCents(ranked[j].Profit)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// MonthlyExpenses totals accepted expenses dated in the given month. A zero
// month or year means the current one.
func (s *DashboardService) MonthlyExpenses(ctx context.Context, p models.Principal, year, month int) (*MonthlyExpenses, error) {
	now := s.now()
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		month = int(now.Month())
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	expenses, err := s.repos.Expense.Find(ctx, p.UserID, repository.ExpenseFilter{Statuses: countedStatuses, From: &from, To: &to})
	if err != nil {
		return nil, err
	}

	var approved, paid int64
	for i := range expenses {
		if expenses[i].Status == models.ExpenseStatusPaid {
			paid += ledger.ToCents(expenses[i].Amount)
		} else {
			approved += ledger.ToCents(expenses[i].Amount)
		}
	}
	return &MonthlyExpenses{
		Month:    month,
		Year:     year,
		Total:    ledger.FromCents(approved + paid),
		Approved: ledger.FromCents(approved),
		Paid:     ledger.FromCents(paid),
		Count:    len(expenses),
	}, nil
}

// ExpensesTrend returns accepted expenses for the last months calendar
// months, oldest first.
func (s *DashboardService) ExpensesTrend(ctx context.Context, p models.Principal, months int) ([]ExpensePoint, error) {
	if months < 1 || months > 36 {
		months = 12
	}
	now := s.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)

	expenses, err := s.repos.Expense.Find(ctx, p.UserID, repository.ExpenseFilter{Statuses: countedStatuses, From: &first})
	if err != nil {
		return nil, err
	}

	points := make([]ExpensePoint, months)
	index := make(map[string]int, months)
	for i := range points {
		points[i].Month = first.AddDate(0, i, 0).Format("2006-01")
		index[points[i].Month] = i
	}
	cents := make([]int64, months)
	for i := range expenses {
		if at, ok := index[expenses[i].Date.In(now.Location()).Format("2006-01")]; ok {
			cents[at] += ledger.ToCents(expenses[i].Amount)
			points[at].Count++
		}
	}
	for i := range points {
		points[i].Expenses = ledger.FromCents(cents[i])
	}
	return points, nil
}

// ExpensesByCategory groups accepted expenses by category, largest first
func (s *DashboardService) ExpensesByCategory(ctx context.Context, p models.Principal) ([]CategoryTotal, error) {
	expenses, err := s.repos.Expense.Find(ctx, p.UserID, repository.ExpenseFilter{Statuses: countedStatuses})
	if err != nil {
		return nil, err
	}
	return groupByCategory(expenses), nil
}

func projectProfit(project *models.Project, logs []models.WorkLog, expenses []models.Expense) ProjectProfit {
	var earned int64
	var hours float64
	for i := range logs {
		earned += ledger.ToCents(logs[i].BillableAmount)
		hours += logs[i].Hours
	}
	spent := expenseCents(expenses)
	profit := earned - spent
	return ProjectProfit{
		ProjectID:    project.ID,
		ProjectName:  project.Name,
		Earnings:     ledger.FromCents(earned),
		Hours:        ledger.RoundCurrency(hours),
		Expenses:     ledger.FromCents(spent),
		ExpenseCount: len(expenses),
		Profit:       ledger.FromCents(profit),
		ProfitMargin: margin(profit, earned),
	}
}
