package services

import (
	"testing"
	"time"

	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExpenses(f *fixture) *ExpenseService {
	return NewExpenseService(f.repos, NewAuditService(f.db), func() time.Time { return testNow })
}

// addExpense stores an expense row directly for the reporting tests
func (f *fixture) addExpense(t *testing.T, projectID *uint, category, status string, amount float64, date time.Time) *models.Expense {
	t.Helper()
	e := &models.Expense{
		UserID:      tenantID,
		ProjectID:   projectID,
		Category:    category,
		Description: category,
		Amount:      amount,
		Date:        date,
		Status:      status,
		Currency:    "USD",
	}
	require.NoError(t, f.repos.Expense.Create(f.ctx, e))
	return e
}

func TestExpense_CreateDefaults(t *testing.T) {
	f := newFixture(t)
	svc := newExpenses(f)

	e, err := svc.Create(f.ctx, staff, ExpenseInput{
		ProjectID:   &f.project.ID,
		Category:    "hosting",
		Description: "VPS",
		Amount:      10.005,
		Currency:    "eur",
		Tags:        []string{"infra", "monthly"},
	}, noRequest)
	require.NoError(t, err)
	assert.Equal(t, 10.01, e.Amount)
	assert.Equal(t, models.ExpenseStatusPending, e.Status)
	assert.Equal(t, "EUR", e.Currency)
	assert.True(t, e.Date.Equal(testNow))

	stored, err := svc.Get(f.ctx, staff, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"infra", "monthly"}, stored.Tags)
	require.NotNil(t, stored.Project)
	assert.Equal(t, f.project.ID, stored.Project.ID)

	var audits int64
	require.NoError(t, f.db.Model(&models.AuditLog{}).Where("entity = ?", models.AuditEntityExpense).Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestExpense_CreateRejections(t *testing.T) {
	f := newFixture(t)
	svc := newExpenses(f)
	other := f.newProject(t, f.newClient(t, 99, "Other"), 10)

	valid := func() ExpenseInput {
		return ExpenseInput{Category: "travel", Description: "Train", Amount: 12}
	}
	cases := []struct {
		name  string
		edit  func(*ExpenseInput)
		want  error
		field string
	}{
		{"unknown category", func(in *ExpenseInput) { in.Category = "snacks" }, ErrValidation, "category"},
		{"missing description", func(in *ExpenseInput) { in.Description = "" }, ErrValidation, "description"},
		{"zero amount", func(in *ExpenseInput) { in.Amount = 0 }, ErrValidation, "amount"},
		{"unknown status", func(in *ExpenseInput) { in.Status = "void" }, ErrValidation, "status"},
		{"sub-cent amount", func(in *ExpenseInput) { in.Amount = 0.004 }, ErrExpenseAmount, ""},
		{"foreign project", func(in *ExpenseInput) { in.ProjectID = &other.ID }, ErrProjectNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid()
			tc.edit(&in)
			_, err := svc.Create(f.ctx, staff, in, noRequest)
			require.ErrorIs(t, err, tc.want)
			if tc.field != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Details, tc.field)
			}
		})
	}

	_, total, err := svc.List(f.ctx, staff, repository.NewListQuery())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestExpense_UpdateAndDeleteAreTenantScoped(t *testing.T) {
	f := newFixture(t)
	svc := newExpenses(f)
	e, err := svc.Create(f.ctx, staff, ExpenseInput{Category: "software", Description: "IDE", Amount: 99, Status: models.ExpenseStatusApproved}, noRequest)
	require.NoError(t, err)

	_, err = svc.Update(f.ctx, outsider, e.ID, ExpenseInput{Category: "software", Description: "IDE", Amount: 1}, noRequest)
	assert.ErrorIs(t, err, ErrExpenseNotFound)
	assert.ErrorIs(t, svc.Delete(f.ctx, outsider, e.ID, noRequest), ErrExpenseNotFound)

	updated, err := svc.Update(f.ctx, staff, e.ID, ExpenseInput{Category: "software", Description: "IDE licence", Amount: 89.5}, noRequest)
	require.NoError(t, err)
	assert.Equal(t, 89.5, updated.Amount)
	assert.Equal(t, models.ExpenseStatusApproved, updated.Status, "empty status keeps the current one")
	assert.True(t, updated.Date.Equal(testNow))

	require.NoError(t, svc.Delete(f.ctx, staff, e.ID, noRequest))
	_, err = svc.Get(f.ctx, staff, e.ID)
	assert.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestExpense_BulkUpdateStatus(t *testing.T) {
	f := newFixture(t)
	svc := newExpenses(f)
	a := f.addExpense(t, nil, "travel", models.ExpenseStatusPending, 10, testNow)
	b := f.addExpense(t, nil, "travel", models.ExpenseStatusPending, 20, testNow)
	foreign := &models.Expense{UserID: 99, Category: "travel", Description: "x", Amount: 5, Date: testNow, Status: models.ExpenseStatusPending, Currency: "USD"}
	require.NoError(t, f.repos.Expense.Create(f.ctx, foreign))

	n, err := svc.BulkUpdateStatus(f.ctx, staff, BulkExpenseStatusInput{ExpenseIDs: []uint{a.ID, b.ID, foreign.ID}, Status: models.ExpenseStatusApproved}, noRequest)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var stillPending models.Expense
	require.NoError(t, f.db.First(&stillPending, foreign.ID).Error)
	assert.Equal(t, models.ExpenseStatusPending, stillPending.Status)

	_, err = svc.BulkUpdateStatus(f.ctx, staff, BulkExpenseStatusInput{Status: models.ExpenseStatusPaid}, noRequest)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.BulkUpdateStatus(f.ctx, staff, BulkExpenseStatusInput{ExpenseIDs: []uint{a.ID}, Status: "void"}, noRequest)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExpense_SummaryAndGrouping(t *testing.T) {
	f := newFixture(t)
	svc := newExpenses(f)
	f.addExpense(t, nil, "hosting", models.ExpenseStatusApproved, 0.1, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	f.addExpense(t, nil, "hosting", models.ExpenseStatusPaid, 0.2, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	f.addExpense(t, nil, "travel", models.ExpenseStatusPending, 1.5, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))
	rejected := f.addExpense(t, nil, "office-supplies", models.ExpenseStatusRejected, 4, time.Date(2025, 12, 24, 0, 0, 0, 0, time.UTC))
	require.NoError(t, f.db.Model(rejected).Update("tax_deductible", true).Error)

	sum, err := svc.Summary(f.ctx, staff, DateRange{})
	require.NoError(t, err)
	assert.Equal(t, ExpenseSummary{
		TotalExpenses: 5.8,
		Count:         4,
		Approved:      0.1,
		Pending:       1.5,
		Paid:          0.2,
		Rejected:      4,
		TaxDeductible: 4,
	}, *sum)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	march, err := svc.Summary(f.ctx, staff, DateRange{From: &from})
	require.NoError(t, err)
	assert.Equal(t, 0.3, march.TotalExpenses)
	assert.Equal(t, 2, march.Count)

	cats, err := svc.ByCategory(f.ctx, staff, DateRange{})
	require.NoError(t, err)
	assert.Equal(t, []CategoryTotal{
		{Category: "office-supplies", Total: 4, Count: 1},
		{Category: "travel", Total: 1.5, Count: 1},
		{Category: "hosting", Total: 0.3, Count: 2},
	}, cats)

	months, err := svc.ByMonth(f.ctx, staff, DateRange{})
	require.NoError(t, err)
	assert.Equal(t, []MonthTotal{
		{Year: 2025, Month: 12, Total: 4, Count: 1},
		{Year: 2026, Month: 2, Total: 1.5, Count: 1},
		{Year: 2026, Month: 3, Total: 0.3, Count: 2},
	}, months)

	empty, err := svc.Summary(f.ctx, outsider, DateRange{})
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
}
