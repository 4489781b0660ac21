package services

import (
	"context"
	"testing"
	"time"

	"github.com/sjperalta/billtrack-api/internal/database"
	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/numbering"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const tenantID uint = 1

var (
	testNow   = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	staff     = models.Principal{UserID: tenantID, Role: models.RoleStaff}
	admin     = models.Principal{UserID: tenantID, Role: models.RoleAdmin}
	outsider  = models.Principal{UserID: 99, Role: models.RoleStaff}
	noRequest = RequestMeta{IP: "127.0.0.1", UserAgent: "go-test"}
)

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	repos    *repository.Repositories
	billing  *BillingService
	invoices *InvoiceService
	payments *PaymentService
	workLogs *WorkLogService
	client   *models.Client
	project  *models.Project
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithSequencer(t, numbering.NewDatabaseSequencer())
}

func newFixtureWithSequencer(t *testing.T, seq numbering.Sequencer) *fixture {
	t.Helper()
	db, err := database.Connect("sqlite://:memory:", database.Options{Production: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	repos := repository.NewRepositories(db)
	audit := NewAuditService(db)
	billing := NewBillingService(repos, seq, audit, nil, BillingOptions{
		NumberRetries: 3,
		Now:           func() time.Time { return testNow },
	})
	invoices := NewInvoiceService(repos, billing, audit)

	f := &fixture{
		ctx:      context.Background(),
		db:       db,
		repos:    repos,
		billing:  billing,
		invoices: invoices,
		payments: NewPaymentService(repos, billing, audit),
		workLogs: NewWorkLogService(repos.WorkLog, repos.Project, audit),
	}
	f.client = f.newClient(t, tenantID, "Acme")
	f.project = f.newProject(t, f.client, 50)
	return f
}

func (f *fixture) newClient(t *testing.T, userID uint, name string) *models.Client {
	t.Helper()
	c := &models.Client{UserID: userID, Name: name, Status: models.ClientStatusActive}
	require.NoError(t, f.repos.Client.Create(f.ctx, c))
	return c
}

func (f *fixture) newProject(t *testing.T, client *models.Client, rate float64) *models.Project {
	t.Helper()
	p := &models.Project{UserID: client.UserID, ClientID: client.ID, Name: "Website", HourlyRate: rate, Status: models.ProjectStatusActive}
	require.NoError(t, f.repos.Project.Create(f.ctx, p))
	return p
}

func (f *fixture) logHours(t *testing.T, hours float64, billable bool) *models.WorkLog {
	t.Helper()
	wl := &models.WorkLog{
		UserID:    f.project.UserID,
		ProjectID: f.project.ID,
		ClientID:  f.project.ClientID,
		Date:      testNow.AddDate(0, 0, -7),
		Hours:     hours,
		Billable:  billable,
	}
	if billable {
		wl.BillableAmount = ledger.Multiply(hours, f.project.HourlyRate)
	}
	require.NoError(t, f.repos.WorkLog.Create(f.ctx, wl))
	return wl
}

// generate bills the given logs for the fixture client without tax
func (f *fixture) generate(t *testing.T, logs ...*models.WorkLog) *models.Invoice {
	t.Helper()
	ids := make([]uint, len(logs))
	for i, wl := range logs {
		ids[i] = wl.ID
	}
	inv, err := f.billing.GenerateInvoice(f.ctx, staff, GenerateInvoiceInput{
		ClientID:   f.client.ID,
		WorkLogIDs: ids,
	}, noRequest)
	require.NoError(t, err)
	return inv
}

// storedInvoice writes an invoice row directly, bypassing generation
func (f *fixture) storedInvoice(t *testing.T, number string, total, paid, due float64, status ledger.Status, dueDate *time.Time) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		UserID:        tenantID,
		ClientID:      f.client.ID,
		InvoiceNumber: number,
		Status:        status,
		Subtotal:      total,
		Total:         total,
		AmountPaid:    paid,
		DueAmount:     due,
		IssueDate:     testNow.AddDate(0, 0, -30),
		DueDate:       dueDate,
	}
	require.NoError(t, f.repos.Invoice.Create(f.ctx, inv))
	return inv
}

func (f *fixture) reloadInvoice(t *testing.T, id uint) *models.Invoice {
	t.Helper()
	inv, err := f.repos.Invoice.FindByID(f.ctx, id)
	require.NoError(t, err)
	return inv
}

func (f *fixture) reloadClient(t *testing.T) *models.Client {
	t.Helper()
	c, err := f.repos.Client.FindByID(f.ctx, f.client.ID)
	require.NoError(t, err)
	return c
}

func datePtr(t time.Time) *time.Time { return &t }
