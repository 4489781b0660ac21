package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/sjperalta/billtrack-api/internal/models"
)

// PaymentFSM wraps a payment with its state machine
type PaymentFSM struct {
	payment *models.Payment
	fsm     *fsm.FSM
}

// NewPaymentFSM creates a new payment state machine
func NewPaymentFSM(payment *models.Payment) *PaymentFSM {
	pfsm := &PaymentFSM{
		payment: payment,
	}

	pfsm.fsm = fsm.NewFSM(
		payment.Status,
		fsm.Events{
			// pending → completed (money arrived, applied to the invoice)
			{Name: "complete", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusCompleted},

			// pending → failed
			{Name: "fail", Src: []string{models.PaymentStatusPending}, Dst: models.PaymentStatusFailed},

			// failed → pending
			{Name: "retry", Src: []string{models.PaymentStatusFailed}, Dst: models.PaymentStatusPending},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Complete transitions payment to completed state
func (p *PaymentFSM) Complete(ctx context.Context) error {
	if !p.payment.MayComplete() {
		return fmt.Errorf("payment cannot be completed in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "complete"); err != nil {
		return fmt.Errorf("failed to complete payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Fail transitions payment to failed state
func (p *PaymentFSM) Fail(ctx context.Context) error {
	if !p.payment.MayFail() {
		return fmt.Errorf("payment cannot be failed in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "fail"); err != nil {
		return fmt.Errorf("failed to fail payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Retry moves a failed payment back to pending
func (p *PaymentFSM) Retry(ctx context.Context) error {
	if !p.payment.MayRetry() {
		return fmt.Errorf("payment cannot be retried in current state: %s", p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "retry"); err != nil {
		return fmt.Errorf("failed to retry payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// MoveTo fires whichever event leads to the requested status.
func (p *PaymentFSM) MoveTo(ctx context.Context, status string) error {
	switch status {
	case models.PaymentStatusCompleted:
		return p.Complete(ctx)
	case models.PaymentStatusFailed:
		return p.Fail(ctx)
	case models.PaymentStatusPending:
		return p.Retry(ctx)
	}
	return fmt.Errorf("unknown payment status: %s", status)
}

// Current returns the current state
func (p *PaymentFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *PaymentFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
