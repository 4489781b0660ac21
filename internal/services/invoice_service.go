package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/sjperalta/billtrack-api/internal/statemachine"
	"github.com/sjperalta/billtrack-api/pkg/logger"
)

// UpdateInvoiceInput holds the editable parts of an invoice. Nil means unchanged.
type UpdateInvoiceInput struct {
	Notes         *string        `json:"notes" validate:"omitempty,max=4000"`
	DueDate       *time.Time     `json:"due_date"`
	TaxEnabled    *bool          `json:"tax_enabled"`
	TaxPercentage *float64       `json:"tax_percentage" validate:"omitempty,gte=0,lte=100"`
	Status        *ledger.Status `json:"status" validate:"omitempty,oneof=draft sent partially-paid overdue paid"`
}

// InvoiceStats summarises one client's invoices
type InvoiceStats struct {
	TotalInvoiced float64 `json:"total_invoiced"`
	TotalPaid     float64 `json:"total_paid"`
	TotalDue      float64 `json:"total_due"`
	InvoiceCount  int     `json:"invoice_count"`
	PaidCount     int     `json:"paid_count"`
}

type InvoiceService struct {
	repos     *repository.Repositories
	billing   *BillingService
	auditSvc  *AuditService
	validator *ValidationHelper
	now       func() time.Time
}

func NewInvoiceService(repos *repository.Repositories, billing *BillingService, auditSvc *AuditService) *InvoiceService {
	return &InvoiceService{
		repos:     repos,
		billing:   billing,
		auditSvc:  auditSvc,
		validator: NewValidationHelper(),
		now:       billing.now,
	}
}

// List returns the invoices visible to p. Derived overdue statuses are
// written back so the stored column stays useful for filtering.
func (s *InvoiceService) List(ctx context.Context, p models.Principal, query *repository.ListQuery) ([]models.Invoice, int64, error) {
	invoices, total, err := s.repos.Invoice.List(ctx, repository.ScopeFor(p), query)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i := range invoices {
		s.writeBackOverdue(ctx, &invoices[i], now)
	}
	return invoices, total, nil
}

// Get returns one invoice visible to p
func (s *InvoiceService) Get(ctx context.Context, p models.Principal, id uint) (*models.Invoice, error) {
	invoice, err := s.repos.Invoice.FindScoped(ctx, repository.ScopeFor(p), id)
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}
	s.writeBackOverdue(ctx, invoice, s.now())
	return invoice, nil
}

func (s *InvoiceService) writeBackOverdue(ctx context.Context, invoice *models.Invoice, now time.Time) {
	derived := invoice.DerivedStatus(now)
	if derived != ledger.StatusOverdue || invoice.Status == ledger.StatusOverdue {
		return
	}
	if err := s.repos.Invoice.UpdateStatus(ctx, invoice.ID, derived); err != nil {
		logger.FromContext(ctx).Warn("overdue write-back failed", "invoice_id", invoice.ID, "error", err)
		return
	}
	invoice.Status = derived
}

// Update edits notes, due date, tax and status. A manual status goes through
// the transition guard; manual paid settles the ledger in full. Without one the
// status is re-derived from the new figures.
func (s *InvoiceService) Update(ctx context.Context, p models.Principal, id uint, in UpdateInvoiceInput, meta RequestMeta) (*models.Invoice, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.repos.Invoice.FindScoped(ctx, repository.ScopeFor(p), id); err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}

	var (
		invoice *models.Invoice
		from    ledger.Status
	)
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		invoice, err = tx.Invoice.FindForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrInvoiceNotFound)
		}
		from = invoice.Status
		now := s.now()

		fin := invoice.Financials()
		if in.TaxEnabled != nil || in.TaxPercentage != nil {
			fin = s.retax(invoice, in, fin)
		}
		invoice.SetFinancials(fin)

		if in.Notes != nil {
			invoice.Notes = *in.Notes
		}
		if in.DueDate != nil {
			invoice.DueDate = in.DueDate
		}

		if in.Status != nil && *in.Status != invoice.Status {
			machine := statemachine.NewInvoiceFSM(invoice)
			if err := machine.Transition(ctx, *in.Status, p.Role); err != nil {
				return err
			}
			if invoice.Status == ledger.StatusPaid {
				invoice.SetFinancials(ledger.Financials{Total: fin.Total, Paid: fin.Total, Due: 0})
				invoice.PaidDate = &now
			}
		} else {
			invoice.Status = invoice.DerivedStatus(now)
			if invoice.Status == ledger.StatusPaid && invoice.PaidDate == nil {
				invoice.PaidDate = &now
			}
		}

		return tx.Invoice.UpdateFields(ctx, invoice.ID, map[string]interface{}{
			"notes":          invoice.Notes,
			"due_date":       invoice.DueDate,
			"tax_enabled":    invoice.TaxEnabled,
			"tax_percentage": invoice.TaxPercentage,
			"tax":            invoice.Tax,
			"total":          invoice.Total,
			"amount_paid":    invoice.AmountPaid,
			"due_amount":     invoice.DueAmount,
			"status":         invoice.Status,
			"paid_date":      invoice.PaidDate,
		})
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, p.UserID, models.AuditActionUpdate, models.AuditEntityInvoice, invoice.ID, map[string]any{
		"from_status": from,
		"to_status":   invoice.Status,
		"total":       invoice.Total,
		"amount_due":  invoice.DueAmount,
	}, meta)

	s.billing.scheduleClientBalance(ctx, invoice.ClientID)
	return s.billing.reload(ctx, invoice), nil
}

// retax recomputes tax and total from the stored subtotal. Paid is clipped to
// the new total and due closes the ledger.
func (s *InvoiceService) retax(invoice *models.Invoice, in UpdateInvoiceInput, fin ledger.Financials) ledger.Financials {
	if in.TaxEnabled != nil {
		invoice.TaxEnabled = *in.TaxEnabled
	}
	if in.TaxPercentage != nil {
		invoice.TaxPercentage = *in.TaxPercentage
	}
	invoice.TaxPercentage = effectiveTaxPercentage(invoice.TaxEnabled, invoice.TaxPercentage)
	invoice.Tax = ledger.Percent(invoice.Subtotal, invoice.TaxPercentage)
	total := ledger.RoundCurrency(invoice.Subtotal + invoice.Tax)
	paid := math.Min(fin.Paid, total)
	return ledger.Reconcile(total, paid, ledger.RoundCurrency(total-paid))
}

// Delete removes an invoice and returns its work logs to the unbilled pool.
// Non-admins may only delete drafts. Payments that referenced it are kept.
func (s *InvoiceService) Delete(ctx context.Context, p models.Principal, id uint, meta RequestMeta) error {
	invoice, err := s.repos.Invoice.FindScoped(ctx, repository.ScopeFor(p), id)
	if err != nil {
		return notFound(err, ErrInvoiceNotFound)
	}
	if !p.IsAdmin() && invoice.Status != ledger.StatusDraft {
		return ErrInvoiceNotDraft
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.WorkLog.ReleaseFromInvoice(ctx, invoice.ID); err != nil {
			return fmt.Errorf("release work logs: %w", err)
		}
		return tx.Invoice.Delete(ctx, invoice.ID)
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("invoice deleted", "invoice_id", invoice.ID, "invoice_number", invoice.InvoiceNumber)
	s.auditSvc.Record(ctx, p.UserID, models.AuditActionDelete, models.AuditEntityInvoice, invoice.ID, map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"status":         invoice.Status,
	}, meta)

	s.billing.scheduleClientBalance(ctx, invoice.ClientID)
	return nil
}

// ClientStats aggregates a client's invoices in cents
func (s *InvoiceService) ClientStats(ctx context.Context, p models.Principal, clientID uint) (*InvoiceStats, error) {
	if p.IsClient() {
		if p.ClientID != clientID {
			return nil, ErrClientNotFound
		}
	} else if _, err := s.repos.Client.FindForTenant(ctx, p.UserID, clientID); err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}

	invoices, err := s.repos.Invoice.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var totalC, paidC, dueC int64
	stats := &InvoiceStats{InvoiceCount: len(invoices)}
	for i := range invoices {
		fin := invoices[i].Financials()
		totalC += fin.TotalCents()
		paidC += fin.PaidCents()
		dueC += fin.DueCents()
		if invoices[i].DerivedStatus(now) == ledger.StatusPaid {
			stats.PaidCount++
		}
	}
	stats.TotalInvoiced = ledger.FromCents(totalC)
	stats.TotalPaid = ledger.FromCents(paidC)
	stats.TotalDue = ledger.FromCents(dueC)
	return stats, nil
}

// SweepOverdue persists the overdue status for every invoice that has become
// overdue since it was last written. Returns the number updated.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (int, error) {
	now := s.now()
	invoices, err := s.repos.Invoice.ListPastDue(ctx, now)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range invoices {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if invoices[i].DerivedStatus(now) != ledger.StatusOverdue {
			continue
		}
		if err := s.repos.Invoice.UpdateStatus(ctx, invoices[i].ID, ledger.StatusOverdue); err != nil {
			return updated, fmt.Errorf("mark invoice %d overdue: %w", invoices[i].ID, err)
		}
		updated++
	}
	if updated > 0 {
		logger.FromContext(ctx).Info("overdue sweep", "updated", updated)
	}
	return updated, nil
}
