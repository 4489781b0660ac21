package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/sjperalta/billtrack-api/internal/statemachine"
	"github.com/sjperalta/billtrack-api/pkg/logger"
)

// CreatePaymentInput is a payment received against one invoice
type CreatePaymentInput struct {
	InvoiceID     uint       `json:"invoice_id" validate:"required"`
	ClientID      uint       `json:"client_id" validate:"required"`
	Amount        float64    `json:"amount" validate:"gt=0"`
	PaymentMethod string     `json:"payment_method" validate:"omitempty,oneof=cash bank-transfer credit-card check other"`
	PaymentDate   *time.Time `json:"payment_date"`
	Reference     string     `json:"reference" validate:"max=64"`
	Notes         string     `json:"notes" validate:"max=4000"`
	Status        string     `json:"status" validate:"omitempty,oneof=pending completed failed"`
}

// UpdatePaymentInput changes a payment's status or bookkeeping fields. The
// amount is fixed once recorded.
type UpdatePaymentInput struct {
	Status        *string `json:"status" validate:"omitempty,oneof=pending completed failed"`
	PaymentMethod *string `json:"payment_method" validate:"omitempty,oneof=cash bank-transfer credit-card check other"`
	Reference     *string `json:"reference" validate:"omitempty,max=64"`
	Notes         *string `json:"notes" validate:"omitempty,max=4000"`
}

type PaymentService struct {
	repos     *repository.Repositories
	billing   *BillingService
	auditSvc  *AuditService
	validator *ValidationHelper
}

func NewPaymentService(repos *repository.Repositories, billing *BillingService, auditSvc *AuditService) *PaymentService {
	return &PaymentService{
		repos:     repos,
		billing:   billing,
		auditSvc:  auditSvc,
		validator: NewValidationHelper(),
	}
}

func (s *PaymentService) Get(ctx context.Context, p models.Principal, id uint) (*models.Payment, error) {
	payment, err := s.repos.Payment.FindScoped(ctx, repository.ScopeFor(p), id)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	return payment, nil
}

func (s *PaymentService) List(ctx context.Context, p models.Principal, query *repository.ListQuery) ([]models.Payment, int64, error) {
	return s.repos.Payment.List(ctx, repository.ScopeFor(p), query)
}

// ClientPayments lists one client's payments with what has been received
type ClientPayments struct {
	Payments []models.Payment     `json:"payments"`
	Summary  ClientPaymentSummary `json:"summary"`
}

// ClientPaymentSummary counts every payment but only sums completed ones
type ClientPaymentSummary struct {
	TotalReceived float64 `json:"total_received"`
	PaymentCount  int     `json:"payment_count"`
}

// ListByClient returns every payment of one client, newest first. Client
// users may only ask about their own client.
func (s *PaymentService) ListByClient(ctx context.Context, p models.Principal, clientID uint) (*ClientPayments, error) {
	if p.IsClient() {
		if p.ClientID != clientID {
			return nil, ErrClientNotFound
		}
	} else if _, err := s.repos.Client.FindForTenant(ctx, p.UserID, clientID); err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}

	query := &repository.ListQuery{Filters: map[string]string{"client_id": strconv.FormatUint(uint64(clientID), 10)}}
	payments, _, err := s.repos.Payment.List(ctx, repository.ScopeFor(p), query)
	if err != nil {
		return nil, err
	}

	var received int64
	for i := range payments {
		if payments[i].IsCompleted() {
			received += ledger.ToCents(payments[i].Amount)
		}
	}
	return &ClientPayments{
		Payments: payments,
		Summary: ClientPaymentSummary{
			TotalReceived: ledger.FromCents(received),
			PaymentCount:  len(payments),
		},
	}, nil
}

// Create records a payment. A completed payment is applied to its invoice in
// the same transaction, so the record and the ledger move together.
func (s *PaymentService) Create(ctx context.Context, p models.Principal, in CreatePaymentInput, meta RequestMeta) (*models.Payment, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, err
	}
	amount, err := normalizeAmount(in.Amount)
	if err != nil {
		return nil, err
	}

	invoice, err := s.repos.Invoice.FindScoped(ctx, repository.ScopeFor(p), in.InvoiceID)
	if err != nil {
		return nil, notFound(err, ErrInvoiceNotFound)
	}
	if invoice.ClientID != in.ClientID {
		return nil, ErrPaymentClient
	}
	if amount > invoice.Financials().Due+dueEpsilon {
		return nil, ErrPaymentExceedsDue
	}

	payment := &models.Payment{
		UserID:        invoice.UserID,
		InvoiceID:     invoice.ID,
		ClientID:      invoice.ClientID,
		Amount:        amount,
		PaymentMethod: in.PaymentMethod,
		PaymentDate:   s.billing.now(),
		Reference:     in.Reference,
		Notes:         in.Notes,
		Status:        in.Status,
	}
	if payment.PaymentMethod == "" {
		payment.PaymentMethod = models.PaymentMethodBankTransfer
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusCompleted
	}
	if in.PaymentDate != nil {
		payment.PaymentDate = *in.PaymentDate
	}
	if payment.Reference == "" {
		payment.Reference = newPaymentReference()
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Payment.Create(ctx, payment); err != nil {
			return err
		}
		if payment.IsCompleted() {
			_, err := s.billing.applyPaymentTx(ctx, tx, payment.InvoiceID, payment.Amount)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("payment recorded",
		"payment_id", payment.ID,
		"invoice_id", payment.InvoiceID,
		"amount", payment.Amount,
		"status", payment.Status,
	)
	s.auditSvc.Record(ctx, p.UserID, models.AuditActionCreate, models.AuditEntityPayment, payment.ID, map[string]any{
		"invoice_id": payment.InvoiceID,
		"amount":     payment.Amount,
		"status":     payment.Status,
	}, meta)

	s.billing.refreshClientBalance(ctx, payment.ClientID)
	return payment, nil
}

// Update moves a payment through its status machine and edits bookkeeping
// fields. Entering completed applies the amount exactly once: the status
// write is conditional on the previous status, so a racing request that
// already completed it makes this one fail with ErrPaymentApplied.
func (s *PaymentService) Update(ctx context.Context, p models.Principal, id uint, in UpdatePaymentInput, meta RequestMeta) (*models.Payment, error) {
	if err := s.validator.ValidateStruct(in); err != nil {
		return nil, err
	}

	payment, err := s.repos.Payment.FindScoped(ctx, repository.ScopeFor(p), id)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	from := payment.Status

	if in.Status != nil && *in.Status != from {
		machine := statemachine.NewPaymentFSM(payment)
		if err := machine.MoveTo(ctx, *in.Status); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentState, err)
		}
	}

	fields := map[string]interface{}{}
	if in.PaymentMethod != nil {
		payment.PaymentMethod = *in.PaymentMethod
		fields["payment_method"] = payment.PaymentMethod
	}
	if in.Reference != nil {
		payment.Reference = *in.Reference
		fields["reference"] = payment.Reference
	}
	if in.Notes != nil {
		payment.Notes = *in.Notes
		fields["notes"] = payment.Notes
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if payment.Status != from {
			n, err := tx.Payment.UpdateStatus(ctx, payment.ID, from, payment.Status)
			if err != nil {
				return err
			}
			if n == 0 {
				return ErrPaymentApplied
			}
			if payment.IsCompleted() {
				if _, err := s.billing.applyPaymentTx(ctx, tx, payment.InvoiceID, payment.Amount); err != nil {
					return err
				}
			}
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Payment.UpdateFields(ctx, payment.ID, fields)
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Record(ctx, p.UserID, models.AuditActionUpdate, models.AuditEntityPayment, payment.ID, map[string]any{
		"from_status": from,
		"to_status":   payment.Status,
	}, meta)

	s.billing.refreshClientBalance(ctx, payment.ClientID)
	return payment, nil
}

// Delete removes the payment record. The invoice ledger is left as it is;
// only the client aggregate is refreshed.
func (s *PaymentService) Delete(ctx context.Context, p models.Principal, id uint, meta RequestMeta) error {
	payment, err := s.repos.Payment.FindScoped(ctx, repository.ScopeFor(p), id)
	if err != nil {
		return notFound(err, ErrPaymentNotFound)
	}
	if err := s.repos.Payment.Delete(ctx, payment.ID); err != nil {
		return err
	}

	s.auditSvc.Record(ctx, p.UserID, models.AuditActionDelete, models.AuditEntityPayment, payment.ID, map[string]any{
		"invoice_id": payment.InvoiceID,
		"amount":     payment.Amount,
	}, meta)

	s.billing.refreshClientBalance(ctx, payment.ClientID)
	return nil
}

func newPaymentReference() string {
	return "PAY-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
