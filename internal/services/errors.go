package services

import (
	"errors"

	"github.com/sjperalta/billtrack-api/internal/statemachine"
)

// Error kinds. Every error a service returns matches one of these with
// errors.Is, which is what the HTTP layer maps to a status code.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("business rule violated")
	ErrForbidden  = errors.New("forbidden")
)

// ErrIllegalTransition is returned for a manual status change the caller's
// role may not perform. errors.As against *statemachine.TransitionError gives
// the allowed targets.
var ErrIllegalTransition = statemachine.ErrIllegalTransition

// ErrUnknownStatus is a requested invoice status outside the known set. It is
// a validation failure, not a transition conflict.
var ErrUnknownStatus = statemachine.ErrUnknownStatus

// Specific failures, each wrapping one of the kinds above.
var (
	ErrInvoiceNotFound    = kindError(ErrNotFound, "invoice not found")
	ErrClientNotFound     = kindError(ErrNotFound, "client not found")
	ErrProjectNotFound    = kindError(ErrNotFound, "project not found")
	ErrWorkLogNotFound    = kindError(ErrNotFound, "work log not found")
	ErrPaymentNotFound    = kindError(ErrNotFound, "payment not found")
	ErrExpenseNotFound    = kindError(ErrNotFound, "expense not found")
	ErrNoBillableWorkLogs = kindError(ErrValidation, "no billable work logs found")
	ErrInvalidAmount      = kindError(ErrValidation, "payment amount must be a positive number")
	ErrExpenseAmount      = kindError(ErrValidation, "expense amount must be a positive number")
	ErrPaymentExceedsDue  = kindError(ErrConflict, "payment amount exceeds due amount")
	ErrWorkLogsClaimed    = kindError(ErrConflict, "work logs were invoiced by another request")
	ErrWorkLogInvoiced    = kindError(ErrConflict, "work log is already invoiced")
	ErrPaymentApplied     = kindError(ErrConflict, "payment was already applied")
	ErrInvoiceNotDraft    = kindError(ErrForbidden, "only draft invoices can be deleted")
	ErrClientMismatch     = kindError(ErrValidation, "project does not belong to client")
	ErrPaymentClient      = kindError(ErrValidation, "payment client does not match invoice client")
	ErrPaymentState       = kindError(ErrConflict, "payment status change not allowed")
)

type serviceError struct {
	kind error
	msg  string
}

func kindError(kind error, msg string) error {
	return &serviceError{kind: kind, msg: msg}
}

func (e *serviceError) Error() string { return e.msg }

func (e *serviceError) Unwrap() error { return e.kind }
