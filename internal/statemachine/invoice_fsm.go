package statemachine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/looplab/fsm"
	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
)

// ErrIllegalTransition is wrapped by every rejected manual status change.
var ErrIllegalTransition = errors.New("illegal status transition")

// ErrUnknownStatus is returned when the requested status is not an invoice status at all.
var ErrUnknownStatus = errors.New("unknown invoice status")

// TransitionError names the rejected move and what would have been allowed.
type TransitionError struct {
	From    ledger.Status
	To      ledger.Status
	Allowed []ledger.Status
}

func (e *TransitionError) Error() string {
	allowed := "none (terminal state)"
	if len(e.Allowed) > 0 {
		names := make([]string, len(e.Allowed))
		for i, s := range e.Allowed {
			names[i] = string(s)
		}
		allowed = strings.Join(names, ", ")
	}
	return fmt.Sprintf("cannot transition from %s to %s. Allowed transitions: %s", e.From, e.To, allowed)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// Events are named after their destination status so a requested status maps
// straight onto an event.
func invoiceEvents() fsm.Events {
	draft := string(ledger.StatusDraft)
	sent := string(ledger.StatusSent)
	partial := string(ledger.StatusPartiallyPaid)
	overdue := string(ledger.StatusOverdue)
	paid := string(ledger.StatusPaid)

	return fsm.Events{
		// draft → sent, or re-save as draft
		{Name: sent, Src: []string{draft}, Dst: sent},
		{Name: draft, Src: []string{draft}, Dst: draft},

		{Name: partial, Src: []string{sent, overdue}, Dst: partial},
		{Name: overdue, Src: []string{sent, partial}, Dst: overdue},
		{Name: paid, Src: []string{sent, partial, overdue}, Dst: paid},
		// paid has no outgoing events
	}
}

// InvoiceFSM wraps an invoice with its manual status machine
type InvoiceFSM struct {
	invoice *models.Invoice
	fsm     *fsm.FSM
}

// NewInvoiceFSM creates a new invoice state machine
func NewInvoiceFSM(invoice *models.Invoice) *InvoiceFSM {
	return &InvoiceFSM{
		invoice: invoice,
		fsm:     newFSM(invoice.Status),
	}
}

func newFSM(current ledger.Status) *fsm.FSM {
	return fsm.NewFSM(string(current), invoiceEvents(), fsm.Callbacks{})
}

// Allowed lists the statuses a non-admin may move to, in lifecycle order.
func (f *InvoiceFSM) Allowed() []ledger.Status {
	return allowedFrom(f.fsm)
}

// Transition moves the invoice to the requested status if role permits it.
// Admins skip the table but the status must still be a known one
// (ErrUnknownStatus otherwise).
func (f *InvoiceFSM) Transition(ctx context.Context, to ledger.Status, role string) error {
	if err := guard(f.fsm, ledger.Status(f.fsm.Current()), to, role); err != nil {
		return err
	}

	if role != models.RoleAdmin {
		err := f.fsm.Event(ctx, string(to))
		var noTransition fsm.NoTransitionError
		if err != nil && !errors.As(err, &noTransition) {
			return fmt.Errorf("failed to transition invoice: %w", err)
		}
	} else {
		f.fsm.SetState(string(to))
	}

	f.invoice.Status = ledger.Status(f.fsm.Current())
	return nil
}

// Current returns the current state
func (f *InvoiceFSM) Current() ledger.Status {
	return ledger.Status(f.fsm.Current())
}

// GuardTransition checks a manual status change without touching any invoice.
func GuardTransition(current, requested ledger.Status, role string) error {
	return guard(newFSM(current), current, requested, role)
}

func guard(machine *fsm.FSM, current, requested ledger.Status, role string) error {
	if _, err := ledger.ParseStatus(string(requested)); err != nil {
		return fmt.Errorf("%w %q", ErrUnknownStatus, requested)
	}
	if role == models.RoleAdmin {
		return nil
	}
	if !machine.Can(string(requested)) {
		return &TransitionError{From: current, To: requested, Allowed: allowedFrom(machine)}
	}
	return nil
}

func allowedFrom(machine *fsm.FSM) []ledger.Status {
	events := machine.AvailableTransitions()
	out := make([]ledger.Status, 0, len(events))
	for _, e := range events {
		out = append(out, ledger.Status(e))
	}
	sort.Slice(out, func(i, j int) bool {
		return lifecycleRank(out[i]) < lifecycleRank(out[j])
	})
	return out
}

func lifecycleRank(s ledger.Status) int {
	for i, st := range ledger.AllStatuses {
		if st == s {
			return i
		}
	}
	return len(ledger.AllStatuses)
}
