package services

import (
	"time"

	"github.com/sjperalta/billtrack-api/internal/config"
	"github.com/sjperalta/billtrack-api/internal/jobs"
	"github.com/sjperalta/billtrack-api/internal/numbering"
	"github.com/sjperalta/billtrack-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Billing   *BillingService
	Invoice   *InvoiceService
	Payment   *PaymentService
	WorkLog   *WorkLogService
	Expense   *ExpenseService
	Client    *ClientService
	Project   *ProjectService
	Dashboard *DashboardService
	Export    *ExportService
	Audit     *AuditService
	Job       *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, sequencer numbering.Sequencer, cfg *config.Config) *Services {
	auditSvc := NewAuditService(repos.DB())
	billingSvc := NewBillingService(repos, sequencer, auditSvc, worker, BillingOptions{
		NumberRetries: cfg.InvoiceNumberRetries,
		Now:           time.Now,
	})
	invoiceSvc := NewInvoiceService(repos, billingSvc, auditSvc)

	return &Services{
		Billing:   billingSvc,
		Invoice:   invoiceSvc,
		Payment:   NewPaymentService(repos, billingSvc, auditSvc),
		WorkLog:   NewWorkLogService(repos.WorkLog, repos.Project, auditSvc),
		Expense:   NewExpenseService(repos, auditSvc, time.Now),
		Client:    NewClientService(repos.Client, billingSvc),
		Project:   NewProjectService(repos.Project, repos.Client),
		Dashboard: NewDashboardService(repos, time.Now),
		Export:    NewExportService(repos, invoiceSvc),
		Audit:     auditSvc,
		Job:       NewJobService(worker, invoiceSvc, billingSvc),
	}
}
