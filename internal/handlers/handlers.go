package handlers

import (
	"time"

	"github.com/sjperalta/billtrack-api/internal/services"
)

// Handlers holds all handler instances
type Handlers struct {
	Health    *HealthHandler
	Client    *ClientHandler
	Project   *ProjectHandler
	WorkLog   *WorkLogHandler
	Expense   *ExpenseHandler
	Invoice   *InvoiceHandler
	Payment   *PaymentHandler
	Dashboard *DashboardHandler
	Audit     *AuditHandler
	Job       *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(),
		Client:    NewClientHandler(svcs.Client, svcs.Export),
		Project:   NewProjectHandler(svcs.Project),
		WorkLog:   NewWorkLogHandler(svcs.WorkLog),
		Expense:   NewExpenseHandler(svcs.Expense),
		Invoice:   NewInvoiceHandler(svcs.Billing, svcs.Invoice, svcs.Export, time.Now),
		Payment:   NewPaymentHandler(svcs.Payment),
		Dashboard: NewDashboardHandler(svcs.Dashboard),
		Audit:     NewAuditHandler(svcs.Audit),
		Job:       NewJobHandler(svcs.Job),
	}
}
