package ledger

// Financials is a repaired ledger triple. Paid + Due == Total always holds.
type Financials struct {
	Total float64 `json:"total"`
	Paid  float64 `json:"paid"`
	Due   float64 `json:"due"`
}

// TotalCents returns Total in integer cents.
func (f Financials) TotalCents() int64 { return ToCents(f.Total) }

// PaidCents returns Paid in integer cents.
func (f Financials) PaidCents() int64 { return ToCents(f.Paid) }

// DueCents returns Due in integer cents.
func (f Financials) DueCents() int64 { return ToCents(f.Due) }

// Reconcile derives a consistent (total, paid, due) triple from stored
// fields that may have drifted apart.
//
// A stored paid or due is usable when it lies in [0, total]. When both are
// usable and close the ledger within one cent they are kept as they are.
// Otherwise due wins over paid, and when neither is usable the invoice is
// treated as unpaid.
func Reconcile(total, paid, due float64) Financials {
	totalC := ToCents(total)
	paidC := ToCents(paid)
	dueC := ToCents(due)

	paidValid := paidC >= 0 && paidC <= totalC
	dueValid := dueC >= 0 && dueC <= totalC

	if paidValid && dueValid && absCents(totalC-(paidC+dueC)) <= 1 {
		return fromCentsTriple(totalC, paidC, dueC)
	}

	if dueValid {
		p := max64(0, totalC-dueC)
		return fromCentsTriple(totalC, p, totalC-p)
	}

	if paidValid {
		d := max64(0, totalC-paidC)
		return fromCentsTriple(totalC, totalC-d, d)
	}

	return fromCentsTriple(totalC, 0, totalC)
}

func fromCentsTriple(total, paid, due int64) Financials {
	return Financials{
		Total: FromCents(total),
		Paid:  FromCents(paid),
		Due:   FromCents(due),
	}
}

func absCents(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
