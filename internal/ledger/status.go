package ledger

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Status is the lifecycle state of an invoice.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusPartiallyPaid Status = "partially-paid"
	StatusPaid          Status = "paid"
	StatusOverdue       Status = "overdue"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []Status{StatusDraft, StatusSent, StatusPartiallyPaid, StatusOverdue, StatusPaid}

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown invoice status %q", s)
}

func (s Status) String() string { return string(s) }

// Value implements driver.Valuer so gorm stores the plain string.
func (s Status) Value() (driver.Value, error) {
	return string(s), nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*s = Status(v)
	case []byte:
		*s = Status(v)
	case nil:
		*s = ""
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
	return nil
}

// paidEpsilon is the due balance at or below which an invoice counts as settled.
const paidEpsilon = 0.000001

// StatusFacts are the inputs the status derivation depends on.
type StatusFacts struct {
	Financials Financials
	DueDate    *time.Time
	Current    Status
}

// DeriveStatus computes an invoice's status from its reconciled ledger and due
// date. It is pure: the same facts and now always give the same answer.
func DeriveStatus(f StatusFacts, now time.Time) Status {
	due := f.Financials.Due
	if due <= paidEpsilon {
		return StatusPaid
	}
	if f.DueDate != nil && f.DueDate.Before(now) {
		return StatusOverdue
	}
	if f.Financials.Paid > 0 {
		return StatusPartiallyPaid
	}
	if f.Current == StatusDraft {
		return StatusDraft
	}
	return StatusSent
}
