package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/repository"
)

// ExpenseInput creates or replaces an expense. Date defaults to now and
// status to pending.
type ExpenseInput struct {
	ProjectID     *uint      `json:"project_id"`
	Category      string     `json:"category" validate:"required,oneof=software hardware labor utilities office-supplies travel marketing hosting subscription maintenance other"`
	Description   string     `json:"description" validate:"required,max=4000"`
	Amount        float64    `json:"amount" validate:"gt=0"`
	Vendor        string     `json:"vendor" validate:"max=255"`
	Date          *time.Time `json:"date"`
	Status        string     `json:"status" validate:"omitempty,oneof=pending approved rejected paid"`
	PaymentMethod string     `json:"payment_method" validate:"omitempty,oneof=cash credit-card bank-transfer check other"`
	Receipt       string     `json:"receipt" validate:"max=500"`
	Notes         string     `json:"notes" validate:"max=4000"`
	Tags          []string   `json:"tags" validate:"max=20,dive,max=50"`
	Currency      string     `json:"currency" validate:"omitempty,len=3"`
	TaxDeductible bool       `json:"tax_deductible"`
}

// BulkExpenseStatusInput moves several expenses to one status
type BulkExpenseStatusInput struct {
	ExpenseIDs []uint `json:"expense_ids" validate:"required,min=1,max=500"`
	Status     string `json:"status" validate:"required,oneof=pending approved rejected paid"`
}

// ExpenseSummary totals a tenant's expenses by status over a date range
type ExpenseSummary struct {
	TotalExpenses float64 `json:"total_expenses"`
	Count         int     `json:"count"`
	Approved      float64 `json:"approved"`
	Pending       float64 `json:"pending"`
	Paid          float64 `json:"paid"`
	Rejected      float64 `json:"rejected"`
	TaxDeductible float64 `json:"tax_deductible"`
}

// CategoryTotal is the spend in one expense category
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// MonthTotal is the spend in one calendar month
type MonthTotal struct {
	Year  int     `json:"year"`
	Month int     `json:"month"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// DateRange bounds a report. Nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

type ExpenseService struct {
	repos     *repository.Repositories
	auditSvc  *AuditService
	validator *ValidationHelper
	now       func() time.Time
}

func NewExpenseService(repos *repository.Repositories, auditSvc *AuditService, now func() time.Time) *ExpenseService {
	if now == nil {
		now = time.Now
	}
	return &ExpenseService{
		repos:     repos,
		auditSvc:  auditSvc,
		validator: NewValidationHelper(),
		now:       now,
	}
}

func (s *ExpenseService) Get(ctx context.Context, p models.Principal, id uint) (*models.Expense, error) {
	expense, err := s.repos.Expense.FindForTenant(ctx, p.UserID, id)
	if err != nil {
		return nil, notFound(err, ErrExpenseNotFound)
	}
	return expense, nil
}

func (s *ExpenseService) List(ctx context.Context, p models.Principal, query *repository.ListQuery) ([]models.Expense, int64, error) {
	return s.repos.Expense.List(ctx, p.UserID, query)
}

func (s *ExpenseService) Create(ctx context.Context, p models.Principal, in ExpenseInput, meta RequestMeta) (*models.Expense, error) {
	expense := &models.Expense{UserID: p.UserID, Status: models.ExpenseStatusPending}
	if err := s.fill(ctx, p, expense, in); err != nil {
		return nil, err
	}
	if err := s.repos.Expense.Create(ctx, expense); err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, p.UserID, models.AuditActionCreate, models.AuditEntityExpense, expense.ID, map[string]any{
		"category": expense.Category,
		"amount":   expense.Amount,
		"status":   expense.Status,
	}, meta)
	return expense, nil
}

// Update replaces an expense. An empty status keeps the current one.
func (s *ExpenseService) Update(ctx context.Context, p models.Principal, id uint, in ExpenseInput, meta RequestMeta) (*models.Expense, error) {
	expense, err := s.repos.Expense.FindForTenant(ctx, p.UserID, id)
	if err != nil {
		return nil, notFound(err, ErrExpenseNotFound)
	}
	expense.Project = nil
	if err := s.fill(ctx, p, expense, in); err != nil {
		return nil, err
	}
	if err := s.repos.Expense.Update(ctx, expense); err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, p.UserID, models.AuditActionUpdate, models.AuditEntityExpense, expense.ID, map[string]any{
		"amount": expense.Amount,
		"status": expense.Status,
	}, meta)
	return expense, nil
}

func (s *ExpenseService) Delete(ctx context.Context, p models.Principal, id uint, meta RequestMeta) error {
	n, err := s.repos.Expense.Delete(ctx, p.UserID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrExpenseNotFound
	}
	s.auditSvc.Record(ctx, p.UserID, models.AuditActionDelete, models.AuditEntityExpense, id, nil, meta)
	return nil
}

// BulkUpdateStatus returns how many of the listed expenses changed. Ids the
// tenant does not own are ignored.
func (s *ExpenseService) BulkUpdateStatus(ctx context.Context, p models.Principal, in BulkExpenseStatusInput, meta RequestMeta) (int64, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return 0, err
	}
	n, err := s.repos.Expense.BulkUpdateStatus(ctx, p.UserID, in.ExpenseIDs, in.Status)
	if err != nil {
		return 0, err
	}
	s.auditSvc.Record(ctx, p.UserID, models.AuditActionUpdate, models.AuditEntityExpense, 0, map[string]any{
		"expense_ids": in.ExpenseIDs,
		"status":      in.Status,
		"modified":    n,
	}, meta)
	return n, nil
}

// Summary totals every expense in the range, split by status
func (s *ExpenseService) Summary(ctx context.Context, p models.Principal, r DateRange) (*ExpenseSummary, error) {
	expenses, err := s.repos.Expense.Find(ctx, p.UserID, repository.ExpenseFilter{From: r.From, To: r.To})
	if err != nil {
		return nil, err
	}

	var total, taxDeductible int64
	byStatus := map[string]int64{}
	for i := range expenses {
		c := ledger.ToCents(expenses[i].Amount)
		total += c
		byStatus[expenses[i].Status] += c
		if expenses[i].TaxDeductible {
			taxDeductible += c
		}
	}
	return &ExpenseSummary{
		TotalExpenses: ledger.FromCents(total),
		Count:         len(expenses),
		Approved:      ledger.FromCents(byStatus[models.ExpenseStatusApproved]),
		Pending:       ledger.FromCents(byStatus[models.ExpenseStatusPending]),
		Paid:          ledger.FromCents(byStatus[models.ExpenseStatusPaid]),
		Rejected:      ledger.FromCents(byStatus[models.ExpenseStatusRejected]),
		TaxDeductible: ledger.FromCents(taxDeductible),
	}, nil
}

// ByCategory groups every expense in the range by category, largest first
func (s *ExpenseService) ByCategory(ctx context.Context, p models.Principal, r DateRange) ([]CategoryTotal, error) {
	expenses, err := s.repos.Expense.Find(ctx, p.UserID, repository.ExpenseFilter{From: r.From, To: r.To})
	if err != nil {
		return nil, err
	}
	return groupByCategory(expenses), nil
}

// ByMonth groups every expense in the range by calendar month, oldest first
func (s *ExpenseService) ByMonth(ctx context.Context, p models.Principal, r DateRange) ([]MonthTotal, error) {
	expenses, err := s.repos.Expense.Find(ctx, p.UserID, repository.ExpenseFilter{From: r.From, To: r.To})
	if err != nil {
		return nil, err
	}

	type key struct{ year, month int }
	cents := map[key]int64{}
	counts := map[key]int{}
	for i := range expenses {
		d := expenses[i].Date.UTC()
		k := key{d.Year(), int(d.Month())}
		cents[k] += ledger.ToCents(expenses[i].Amount)
		counts[k]++
	}

	out := make([]MonthTotal, 0, len(cents))
	for k, c := range cents {
		out = append(out, MonthTotal{Year: k.year, Month: k.month, Total: ledger.FromCents(c), Count: counts[k]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (s *ExpenseService) fill(ctx context.Context, p models.Principal, expense *models.Expense, in ExpenseInput) error {
	if err := s.validator.ValidateStruct(in); err != nil {
		return err
	}
	amount, err := normalizeAmount(in.Amount)
	if err != nil {
		return ErrExpenseAmount
	}
	if in.ProjectID != nil {
		if _, err := s.repos.Project.FindForTenant(ctx, p.UserID, *in.ProjectID); err != nil {
			return notFound(err, ErrProjectNotFound)
		}
	}

	expense.ProjectID = in.ProjectID
	expense.Category = in.Category
	expense.Description = in.Description
	expense.Amount = amount
	expense.Vendor = in.Vendor
	expense.PaymentMethod = in.PaymentMethod
	expense.Receipt = in.Receipt
	expense.Notes = in.Notes
	expense.Tags = in.Tags
	expense.TaxDeductible = in.TaxDeductible
	expense.Currency = strings.ToUpper(in.Currency)
	if expense.Currency == "" {
		expense.Currency = "USD"
	}
	if in.Status != "" {
		expense.Status = in.Status
	}
	switch {
	case in.Date != nil:
		expense.Date = *in.Date
	case expense.Date.IsZero():
		expense.Date = s.now()
	}
	return nil
}

func groupByCategory(expenses []models.Expense) []CategoryTotal {
	cents := map[string]int64{}
	counts := map[string]int{}
	for i := range expenses {
		cents[expenses[i].Category] += ledger.ToCents(expenses[i].Amount)
		counts[expenses[i].Category]++
	}

	out := make([]CategoryTotal, 0, len(cents))
	for cat, c := range cents {
		out = append(out, CategoryTotal{Category: cat, Total: ledger.FromCents(c), Count: counts[cat]})
	}
	sort.Slice(out, func(i, j int) bool {
		if cents[out[i].Category] != cents[out[j].Category] {
			return cents[out[i].Category] > cents[out[j].Category]
		}
		return out[i].Category < out[j].Category
	})
	return out
}
