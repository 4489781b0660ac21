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

// MonthlyRevenue sums the invoices issued in one calendar month
type MonthlyRevenue struct {
	Month        int     `json:"month"`
	Year         int     `json:"year"`
	TotalRevenue float64 `json:"total_revenue"`
	TotalPaid    float64 `json:"total_paid"`
	TotalDue     float64 `json:"total_due"`
	InvoiceCount int     `json:"invoice_count"`
}

// DashboardSummary is the tenant-wide overview
type DashboardSummary struct {
	ClientCount      int64          `json:"client_count"`
	ProjectCount     int64          `json:"project_count"`
	TotalHours       float64        `json:"total_hours"`
	TotalInvoiced    float64        `json:"total_invoiced"`
	TotalPaid        float64        `json:"total_paid"`
	TotalOutstanding float64        `json:"total_outstanding"`
	MonthlyRevenue   MonthlyRevenue `json:"monthly_revenue"`
}

// StatusBucket counts invoices and their totals in one breakdown bucket
type StatusBucket struct {
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// StatusBreakdown groups invoices by what the customer still has to do
type StatusBreakdown struct {
	Paid    StatusBucket `json:"paid"`
	Pending StatusBucket `json:"pending"`
	Overdue StatusBucket `json:"overdue"`
	Draft   StatusBucket `json:"draft"`
}

// RevenuePoint is one month of the revenue trend
type RevenuePoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
	Paid    float64 `json:"paid"`
	Due     float64 `json:"due"`
}

// ClientRevenue is a client ranked by total invoiced
type ClientRevenue struct {
	ClientID uint    `json:"client_id"`
	Name     string  `json:"name"`
	Revenue  float64 `json:"revenue"`
}

type DashboardService struct {
	repos *repository.Repositories
	now   func() time.Time
}

func NewDashboardService(repos *repository.Repositories, now func() time.Time) *DashboardService {
	if now == nil {
		now = time.Now
	}
	return &DashboardService{repos: repos, now: now}
}

type centsTriple struct {
	total, paid, due int64
}

func (c *centsTriple) add(f ledger.Financials) {
	c.total += f.TotalCents()
	c.paid += f.PaidCents()
	c.due += f.DueCents()
}

// Summary computes the dashboard headline figures. All money is summed in cents.
func (s *DashboardService) Summary(ctx context.Context, p models.Principal) (*DashboardSummary, error) {
	clients, err := s.repos.Client.CountForTenant(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	projects, err := s.repos.Project.CountForTenant(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}
	hours, err := s.repos.WorkLog.SumHours(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("sum hours: %w", err)
	}
	invoices, err := s.repos.Invoice.ListAll(ctx, repository.Scope{UserID: p.UserID})
	if err != nil {
		return nil, fmt.Errorf("load invoices: %w", err)
	}

	now := s.now()
	var all, month centsTriple
	monthCount := 0
	for i := range invoices {
		fin := invoices[i].Financials()
		all.add(fin)
		issued := invoices[i].IssueDate.In(now.Location())
		if issued.Year() == now.Year() && issued.Month() == now.Month() {
			month.add(fin)
			monthCount++
		}
	}

	return &DashboardSummary{
		ClientCount:      clients,
		ProjectCount:     projects,
		TotalHours:       ledger.RoundCurrency(hours),
		TotalInvoiced:    ledger.FromCents(all.total),
		TotalPaid:        ledger.FromCents(all.paid),
		TotalOutstanding: ledger.FromCents(all.due),
		MonthlyRevenue: MonthlyRevenue{
			Month:        int(now.Month()),
			Year:         now.Year(),
			TotalRevenue: ledger.FromCents(month.total),
			TotalPaid:    ledger.FromCents(month.paid),
			TotalDue:     ledger.FromCents(month.due),
			InvoiceCount: monthCount,
		},
	}, nil
}

// StatusBreakdown buckets invoices by derived status. Sent and partially-paid
// invoices count as pending.
func (s *DashboardService) StatusBreakdown(ctx context.Context, p models.Principal) (*StatusBreakdown, error) {
	invoices, err := s.repos.Invoice.ListAll(ctx, repository.ScopeFor(p))
	if err != nil {
		return nil, err
	}

	now := s.now()
	var cents [4]int64
	out := &StatusBreakdown{}
	buckets := [4]*StatusBucket{&out.Paid, &out.Pending, &out.Overdue, &out.Draft}
	for i := range invoices {
		idx := 1
		switch invoices[i].DerivedStatus(now) {
		case ledger.StatusPaid:
			idx = 0
		case ledger.StatusOverdue:
			idx = 2
		case ledger.StatusDraft:
			idx = 3
		}
		buckets[idx].Count++
		cents[idx] += invoices[i].Financials().TotalCents()
	}
	for i, b := range buckets {
		b.Amount = ledger.FromCents(cents[i])
	}
	return out, nil
}

// RevenueTrend returns the last months calendar months, oldest first, with
// invoices bucketed by issue month.
func (s *DashboardService) RevenueTrend(ctx context.Context, p models.Principal, months int) ([]RevenuePoint, error) {
	if months < 1 || months > 36 {
		months = 12
	}
	invoices, err := s.repos.Invoice.ListAll(ctx, repository.Scope{UserID: p.UserID})
	if err != nil {
		return nil, err
	}

	now := s.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)
	keys := make([]string, months)
	sums := make(map[string]*centsTriple, months)
	for i := 0; i < months; i++ {
		keys[i] = first.AddDate(0, i, 0).Format("2006-01")
		sums[keys[i]] = &centsTriple{}
	}

	for i := range invoices {
		key := invoices[i].IssueDate.In(now.Location()).Format("2006-01")
		if bucket, ok := sums[key]; ok {
			bucket.add(invoices[i].Financials())
		}
	}

	points := make([]RevenuePoint, months)
	for i, key := range keys {
		points[i] = RevenuePoint{
			Month:   key,
			Revenue: ledger.FromCents(sums[key].total),
			Paid:    ledger.FromCents(sums[key].paid),
			Due:     ledger.FromCents(sums[key].due),
		}
	}
	return points, nil
}

// TopClients ranks clients by reconciled total invoiced
func (s *DashboardService) TopClients(ctx context.Context, p models.Principal, limit int) ([]ClientRevenue, error) {
	if limit < 1 {
		limit = 5
	}
	invoices, err := s.repos.Invoice.ListAll(ctx, repository.Scope{UserID: p.UserID})
	if err != nil {
		return nil, err
	}

	byClient := map[uint]*ClientRevenue{}
	cents := map[uint]int64{}
	for i := range invoices {
		inv := &invoices[i]
		if _, ok := byClient[inv.ClientID]; !ok {
			name := inv.Client.Name
			if name == "" {
				name = "Unknown"
			}
			byClient[inv.ClientID] = &ClientRevenue{ClientID: inv.ClientID, Name: name}
		}
		cents[inv.ClientID] += inv.Financials().TotalCents()
	}

	ranked := make([]ClientRevenue, 0, len(byClient))
	for id, c := range byClient {
		c.Revenue = ledger.FromCents(cents[id])
		ranked = append(ranked, *c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if cents[ranked[i].ClientID] != cents[ranked[j].ClientID] {
			return cents[ranked[i].ClientID] > cents[ranked[j].ClientID]
		}
		return ranked[i].ClientID < ranked[j].ClientID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
