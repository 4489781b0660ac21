package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sjperalta/billtrack-api/internal/jobs"
	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/numbering"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/sjperalta/billtrack-api/pkg/logger"
	"gorm.io/gorm"
)

// overpayment tolerance when comparing an amount against the due balance
const dueEpsilon = 0.000001

const balanceRetryAttempts = 3

// GenerateInvoiceInput is the request to bill a set of work logs
type GenerateInvoiceInput struct {
	ClientID      uint       `json:"client_id" validate:"required"`
	ProjectID     *uint      `json:"project_id"`
	WorkLogIDs    []uint     `json:"work_log_ids" validate:"required,min=1"`
	TaxPercentage float64    `json:"tax_percentage" validate:"gte=0,lte=100"`
	TaxEnabled    bool       `json:"tax_enabled"`
	DueDate       *time.Time `json:"due_date"`
	Notes         string     `json:"notes" validate:"max=4000"`
}

// BillingOptions tune the billing service
type BillingOptions struct {
	NumberRetries int
	BalanceRetry  time.Duration
	Now           func() time.Time
}

// BillingService owns every write that moves money on an invoice: generation
// from work logs, payment application and the client balance aggregate.
type BillingService struct {
	repos     *repository.Repositories
	sequencer numbering.Sequencer
	auditSvc  *AuditService
	worker    *jobs.Worker
	validator *ValidationHelper
	retries   int
	backoff   time.Duration
	now       func() time.Time
}

func NewBillingService(
	repos *repository.Repositories,
	sequencer numbering.Sequencer,
	auditSvc *AuditService,
	worker *jobs.Worker,
	opts BillingOptions,
) *BillingService {
	if opts.NumberRetries < 1 {
		opts.NumberRetries = 1
	}
	if opts.BalanceRetry <= 0 {
		opts.BalanceRetry = 2 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BillingService{
		repos:     repos,
		sequencer: sequencer,
		auditSvc:  auditSvc,
		worker:    worker,
		validator: NewValidationHelper(),
		retries:   opts.NumberRetries,
		backoff:   opts.BalanceRetry,
		now:       opts.Now,
	}
}

// GenerateInvoice creates a draft invoice from the caller's billable, unbilled
// work logs. Ids that fail those filters are skipped; if none survive the call
// fails with ErrNoBillableWorkLogs and nothing is written.
func (s *BillingService) GenerateInvoice(ctx context.Context, p models.Principal, in GenerateInvoiceInput, meta RequestMeta) (*models.Invoice, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, err
	}

	client, err := s.repos.Client.FindForTenant(ctx, p.UserID, in.ClientID)
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}
	if in.ProjectID != nil {
		project, err := s.repos.Project.FindForTenant(ctx, p.UserID, *in.ProjectID)
		if err != nil {
			return nil, notFound(err, ErrProjectNotFound)
		}
		if project.ClientID != client.ID {
			return nil, ErrClientMismatch
		}
	}

	var invoice *models.Invoice
	for attempt := 1; ; attempt++ {
		invoice, err = s.generateOnce(ctx, p, in)
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) || attempt >= s.retries {
			break
		}
		logger.FromContext(ctx).Warn("invoice number collision, retrying", "attempt", attempt)
		if r, ok := s.sequencer.(numbering.Resetter); ok {
			if rerr := r.Reset(ctx, s.repos.Invoice); rerr != nil {
				logger.FromContext(ctx).Warn("invoice sequence reset failed", "error", rerr)
			}
		}
	}
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: could not allocate a unique invoice number", ErrConflict)
		}
		return nil, err
	}

	logger.FromContext(ctx).Info("invoice generated",
		"invoice_id", invoice.ID,
		"invoice_number", invoice.InvoiceNumber,
		"client_id", invoice.ClientID,
		"total", invoice.Total,
	)
	s.auditSvc.Record(ctx, p.UserID, models.AuditActionCreate, models.AuditEntityInvoice, invoice.ID, map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"total":          invoice.Total,
		"work_logs":      len(invoice.WorkLogs),
	}, meta)

	s.refreshClientBalance(ctx, invoice.ClientID)
	return s.reload(ctx, invoice), nil
}

func (s *BillingService) generateOnce(ctx context.Context, p models.Principal, in GenerateInvoiceInput) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		logs, err := tx.WorkLog.FindBillable(ctx, p.UserID, in.WorkLogIDs)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			return ErrNoBillableWorkLogs
		}

		amounts := make([]float64, len(logs))
		ids := make([]uint, len(logs))
		for i, wl := range logs {
			amounts[i] = wl.BillableAmount
			ids[i] = wl.ID
		}
		subtotal := ledger.FromCents(ledger.SumCents(amounts...))
		taxPct := effectiveTaxPercentage(in.TaxEnabled, in.TaxPercentage)
		tax := ledger.Percent(subtotal, taxPct)
		total := ledger.RoundCurrency(subtotal + tax)

		number, err := s.sequencer.Next(ctx, tx.Invoice)
		if err != nil {
			return err
		}

		invoice = &models.Invoice{
			UserID:        p.UserID,
			ClientID:      in.ClientID,
			ProjectID:     in.ProjectID,
			InvoiceNumber: number,
			Status:        ledger.StatusDraft,
			Subtotal:      subtotal,
			Tax:           tax,
			TaxPercentage: taxPct,
			TaxEnabled:    in.TaxEnabled,
			Total:         total,
			AmountPaid:    0,
			DueAmount:     total,
			IssueDate:     s.now(),
			DueDate:       in.DueDate,
			Notes:         in.Notes,
		}
		if err := tx.Invoice.Create(ctx, invoice); err != nil {
			return err
		}

		claimed, err := tx.WorkLog.ClaimForInvoice(ctx, p.UserID, invoice.ID, ids)
		if err != nil {
			return err
		}
		if claimed != int64(len(ids)) {
			return ErrWorkLogsClaimed
		}
		invoice.WorkLogs = logs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// ApplyPayment credits amount against an invoice's reconciled due balance and
// refreshes the owning client's aggregate. A failed balance refresh does not
// fail the payment; it is retried in the background.
func (s *BillingService) ApplyPayment(ctx context.Context, invoiceID uint, amount float64) (*models.Invoice, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return nil, err
	}

	var invoice *models.Invoice
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		invoice, err = s.applyPaymentTx(ctx, tx, invoiceID, amount)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.refreshClientBalance(ctx, invoice.ClientID)
	return s.reload(ctx, invoice), nil
}

// RecordPayment is ApplyPayment restricted to invoices the caller can see
func (s *BillingService) RecordPayment(ctx context.Context, p models.Principal, invoiceID uint, amount float64, meta RequestMeta) (*models.Invoice, error) {
	amount, err := normalizeAmount(amount)
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.Invoice.FindScoped(ctx, repository.ScopeFor(p), invoiceID); err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}

	invoice, err := s.ApplyPayment(ctx, invoiceID, amount)
	if err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, p.UserID, models.AuditActionApplyPayment, models.AuditEntityInvoice, invoice.ID, map[string]any{
		"amount":     amount,
		"amount_due": invoice.DueAmount,
	}, meta)
	return invoice, nil
}

// applyPaymentTx is the single place a completed payment moves an invoice's
// ledger. It must run inside tx so the row lock covers read and write.
func (s *BillingService) applyPaymentTx(ctx context.Context, tx *repository.Repositories, invoiceID uint, amount float64) (*models.Invoice, error) {
	invoice, err := tx.Invoice.FindForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}

	fin := invoice.Financials()
	if amount > fin.Due+dueEpsilon {
		return nil, ErrPaymentExceedsDue
	}

	newPaid := ledger.RoundCurrency(fin.Paid + amount)
	newDue := ledger.RoundCurrency(math.Max(0, fin.Total-newPaid))
	invoice.SetFinancials(ledger.Financials{Total: fin.Total, Paid: newPaid, Due: newDue})

	now := s.now()
	invoice.Status = invoice.DerivedStatus(now)

	fields := map[string]interface{}{
		"total":       invoice.Total,
		"amount_paid": invoice.AmountPaid,
		"due_amount":  invoice.DueAmount,
		"status":      invoice.Status,
	}
	if invoice.Status == ledger.StatusPaid {
		invoice.PaidDate = &now
		fields["paid_date"] = now
	}
	if err := tx.Invoice.UpdateFields(ctx, invoice.ID, fields); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("payment applied",
		"invoice_id", invoice.ID,
		"amount", amount,
		"amount_paid", invoice.AmountPaid,
		"due_amount", invoice.DueAmount,
		"status", invoice.Status,
	)
	return invoice, nil
}

// RecomputeClientBalance rebuilds a client's outstanding balance and total
// billed from every one of its invoices, reconciled and summed in cents.
func (s *BillingService) RecomputeClientBalance(ctx context.Context, clientID uint) error {
	if _, err := s.repos.Client.FindByID(ctx, clientID); err != nil {
		return notFound(err, ErrClientNotFound)
	}

	invoices, err := s.repos.Invoice.ListByClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("load invoices for client %d: %w", clientID, err)
	}

	var dueCents, totalCents int64
	for i := range invoices {
		fin := invoices[i].Financials()
		dueCents += fin.DueCents()
		totalCents += fin.TotalCents()
	}

	if err := s.repos.Client.UpdateBalances(ctx, clientID, ledger.FromCents(dueCents), ledger.FromCents(totalCents)); err != nil {
		return fmt.Errorf("update balances for client %d: %w", clientID, err)
	}
	return nil
}

// RecomputeAllBalances runs RecomputeClientBalance for every client and
// returns how many were refreshed. It keeps going past individual failures.
func (s *BillingService) RecomputeAllBalances(ctx context.Context) (int, error) {
	ids, err := s.repos.Client.AllIDs(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if err := s.RecomputeClientBalance(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// refreshClientBalance recomputes after a committed money change. Failure
// leaves the ledger valid and the aggregate stale, so it is reported and
// retried instead of returned.
func (s *BillingService) refreshClientBalance(ctx context.Context, clientID uint) {
	err := s.RecomputeClientBalance(ctx, clientID)
	if err == nil {
		return
	}

	logger.FromContext(ctx).Error("client balance recompute failed", "client_id", clientID, "error", err)
	sentry.CaptureException(err)
	if s.worker == nil {
		return
	}
	s.worker.EnqueueWithRetry(fmt.Sprintf("recompute-client-balance:%d", clientID), balanceRetryAttempts, s.backoff,
		func(ctx context.Context) error {
			return s.RecomputeClientBalance(ctx, clientID)
		})
}

// scheduleClientBalance refreshes the client aggregate off the request path
// when a worker is available, and inline otherwise.
func (s *BillingService) scheduleClientBalance(ctx context.Context, clientID uint) {
	if s.worker == nil {
		s.refreshClientBalance(ctx, clientID)
		return
	}
	s.worker.EnqueueAsync(fmt.Sprintf("refresh-client-balance:%d", clientID), func(jobCtx context.Context) error {
		s.refreshClientBalance(jobCtx, clientID)
		return nil
	})
}

// reload fetches the invoice with its associations, falling back to what we have
func (s *BillingService) reload(ctx context.Context, invoice *models.Invoice) *models.Invoice {
	fresh, err := s.repos.Invoice.FindByID(ctx, invoice.ID)
	if err != nil {
		logger.FromContext(ctx).Warn("invoice reload failed", "invoice_id", invoice.ID, "error", err)
		return invoice
	}
	return fresh
}

// normalizeAmount rounds a payment to cents before it is checked, so a
// sub-cent amount is rejected rather than recorded as a no-op.
func normalizeAmount(amount float64) (float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	rounded := ledger.RoundCurrency(amount)
	if rounded <= 0 {
		return 0, ErrInvalidAmount
	}
	return rounded, nil
}

// effectiveTaxPercentage is the rate stored on an invoice: zero whenever tax
// is switched off.
func effectiveTaxPercentage(enabled bool, pct float64) float64 {
	if !enabled {
		return 0
	}
	return ledger.RoundCurrency(pct)
}

// notFound maps a missing row to the given sentinel and passes other errors through
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
