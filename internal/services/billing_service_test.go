package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/numbering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBilling_GenerateAndPayInFull(t *testing.T) {
	f := newFixture(t)
	a := f.logHours(t, 3, true)
	b := f.logHours(t, 5, true)

	inv := f.generate(t, a, b)
	assert.Equal(t, "INV-1001", inv.InvoiceNumber)
	assert.Equal(t, 400.0, inv.Subtotal)
	assert.Equal(t, 0.0, inv.Tax)
	assert.Equal(t, 400.0, inv.Total)
	assert.Equal(t, 0.0, inv.AmountPaid)
	assert.Equal(t, 400.0, inv.DueAmount)
	assert.Equal(t, ledger.StatusDraft, inv.Status)
	assert.Len(t, inv.WorkLogs, 2)

	client := f.reloadClient(t)
	assert.Equal(t, 400.0, client.OutstandingBalance)
	assert.Equal(t, 400.0, client.TotalBilled)

	inv, err := f.billing.ApplyPayment(f.ctx, inv.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, 150.0, inv.AmountPaid)
	assert.Equal(t, 250.0, inv.DueAmount)
	assert.Equal(t, ledger.StatusPartiallyPaid, inv.Status)
	assert.Nil(t, inv.PaidDate)
	assert.Equal(t, 250.0, f.reloadClient(t).OutstandingBalance)

	inv, err = f.billing.ApplyPayment(f.ctx, inv.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, 400.0, inv.AmountPaid)
	assert.Equal(t, 0.0, inv.DueAmount)
	assert.Equal(t, ledger.StatusPaid, inv.Status)
	require.NotNil(t, inv.PaidDate)
	assert.True(t, inv.PaidDate.Equal(testNow))
	assert.Equal(t, 0.0, f.reloadClient(t).OutstandingBalance)
	assert.Equal(t, 400.0, f.reloadClient(t).TotalBilled)
}

func TestBilling_GenerateWithTax(t *testing.T) {
	f := newFixture(t)
	wl := f.logHours(t, 8, true)

	inv, err := f.billing.GenerateInvoice(f.ctx, staff, GenerateInvoiceInput{
		ClientID:      f.client.ID,
		ProjectID:     &f.project.ID,
		WorkLogIDs:    []uint{wl.ID},
		TaxPercentage: 15,
		TaxEnabled:    true,
		Notes:         "March retainer",
	}, noRequest)
	require.NoError(t, err)

	assert.Equal(t, 400.0, inv.Subtotal)
	assert.Equal(t, 60.0, inv.Tax)
	assert.Equal(t, 460.0, inv.Total)
	assert.Equal(t, 460.0, inv.DueAmount)
	assert.Equal(t, "March retainer", inv.Notes)
}

func TestBilling_TaxDisabledIgnoresPercentage(t *testing.T) {
	f := newFixture(t)
	wl := f.logHours(t, 2, true)

	inv, err := f.billing.GenerateInvoice(f.ctx, staff, GenerateInvoiceInput{
		ClientID:      f.client.ID,
		WorkLogIDs:    []uint{wl.ID},
		TaxPercentage: 20,
	}, noRequest)
	require.NoError(t, err)
	assert.Equal(t, 0.0, inv.Tax)
	assert.Equal(t, 0.0, inv.TaxPercentage)
	assert.False(t, inv.TaxEnabled)
	assert.Equal(t, 100.0, inv.Total)
	assert.Equal(t, 0.0, f.reloadInvoice(t, inv.ID).TaxPercentage)
}

func TestBilling_NoDoubleBilling(t *testing.T) {
	f := newFixture(t)
	wl := f.logHours(t, 3, true)
	f.generate(t, wl)

	_, err := f.billing.GenerateInvoice(f.ctx, staff, GenerateInvoiceInput{
		ClientID:   f.client.ID,
		WorkLogIDs: []uint{wl.ID},
	}, noRequest)
	assert.ErrorIs(t, err, ErrNoBillableWorkLogs)
	assert.ErrorIs(t, err, ErrValidation)

	var count int64
	require.NoError(t, f.db.Model(&models.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestBilling_SkipsIneligibleWorkLogs(t *testing.T) {
	f := newFixture(t)
	billable := f.logHours(t, 2, true)
	unbillable := f.logHours(t, 4, false)

	otherClient := f.newClient(t, 2, "Other tenant client")
	otherProject := f.newProject(t, otherClient, 100)
	foreign := &models.WorkLog{UserID: 2, ProjectID: otherProject.ID, ClientID: otherClient.ID, Date: testNow, Hours: 10, Billable: true, BillableAmount: 1000}
	require.NoError(t, f.repos.WorkLog.Create(f.ctx, foreign))

	inv, err := f.billing.GenerateInvoice(f.ctx, staff, GenerateInvoiceInput{
		ClientID:   f.client.ID,
		WorkLogIDs: []uint{billable.ID, unbillable.ID, foreign.ID, 12345},
	}, noRequest)
	require.NoError(t, err)
	assert.Equal(t, 100.0, inv.Total)
	require.Len(t, inv.WorkLogs, 1)
	assert.Equal(t, billable.ID, inv.WorkLogs[0].ID)

	stillFree, err := f.repos.WorkLog.FindForTenant(f.ctx, tenantID, unbillable.ID)
	require.NoError(t, err)
	assert.Nil(t, stillFree.InvoiceID)
}

func TestBilling_OnlyIneligibleLogsCreatesNothing(t *testing.T) {
	f := newFixture(t)
	unbillable := f.logHours(t, 4, false)

	_, err := f.billing.GenerateInvoice(f.ctx, staff, GenerateInvoiceInput{
		ClientID:   f.client.ID,
		WorkLogIDs: []uint{unbillable.ID},
	}, noRequest)
	assert.ErrorIs(t, err, ErrNoBillableWorkLogs)
	assert.Equal(t, 0.0, f.reloadClient(t).TotalBilled)
}

func TestBilling_GenerateValidatesInput(t *testing.T) {
	f := newFixture(t)
	wl := f.logHours(t, 1, true)

	_, err := f.billing.GenerateInvoice(f.ctx, staff, GenerateInvoiceInput{ClientID: f.client.ID}, noRequest)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Details, "work_log_ids")

	_, err = f.billing.GenerateInvoice(f.ctx, staff, GenerateInvoiceInput{
		ClientID:      f.client.ID,
		WorkLogIDs:    []uint{wl.ID},
		TaxPercentage: 120,
		TaxEnabled:    true,
	}, noRequest)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Details, "tax_percentage")

	_, err = f.billing.GenerateInvoice(f.ctx, outsider, GenerateInvoiceInput{
		ClientID:   f.client.ID,
		WorkLogIDs: []uint{wl.ID},
	}, noRequest)
	assert.ErrorIs(t, err, ErrClientNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBilling_ProjectMustBelongToClient(t *testing.T) {
	f := newFixture(t)
	wl := f.logHours(t, 1, true)
	other := f.newClient(t, tenantID, "Globex")
	otherProject := f.newProject(t, other, 80)

	_, err := f.billing.GenerateInvoice(f.ctx, staff, GenerateInvoiceInput{
		ClientID:   f.client.ID,
		ProjectID:  &otherProject.ID,
		WorkLogIDs: []uint{wl.ID},
	}, noRequest)
	assert.ErrorIs(t, err, ErrClientMismatch)
}

func TestBilling_SequentialNumbers(t *testing.T) {
	f := newFixture(t)
	first := f.generate(t, f.logHours(t, 1, true))
	second := f.generate(t, f.logHours(t, 1, true))

	assert.Equal(t, "INV-1001", first.InvoiceNumber)
	assert.Equal(t, "INV-1002", second.InvoiceNumber)
}

type scriptedSequencer struct {
	numbers []string
	calls   int
}

func (s *scriptedSequencer) Next(ctx context.Context, src numbering.Source) (string, error) {
	n := s.numbers[s.calls]
	s.calls++
	return n, nil
}

func TestBilling_RetriesOnNumberCollision(t *testing.T) {
	seq := &scriptedSequencer{numbers: []string{"INV-1001", "INV-1001", "INV-1002"}}
	f := newFixtureWithSequencer(t, seq)

	f.generate(t, f.logHours(t, 1, true))
	wl := f.logHours(t, 2, true)
	inv := f.generate(t, wl)

	assert.Equal(t, "INV-1002", inv.InvoiceNumber)
	assert.Equal(t, 3, seq.calls)
	assert.Equal(t, inv.ID, *f.reloadInvoice(t, inv.ID).WorkLogs[0].InvoiceID)
}

func TestBilling_GivesUpAfterRetries(t *testing.T) {
	seq := &scriptedSequencer{numbers: []string{"INV-1001", "INV-1001", "INV-1001", "INV-1001"}}
	f := newFixtureWithSequencer(t, seq)
	f.generate(t, f.logHours(t, 1, true))

	wl := f.logHours(t, 2, true)
	_, err := f.billing.GenerateInvoice(f.ctx, staff, GenerateInvoiceInput{
		ClientID:   f.client.ID,
		WorkLogIDs: []uint{wl.ID},
	}, noRequest)
	assert.ErrorIs(t, err, ErrConflict)

	free, err := f.repos.WorkLog.FindForTenant(f.ctx, tenantID, wl.ID)
	require.NoError(t, err)
	assert.Nil(t, free.InvoiceID, "rolled back claim must leave the log billable")
}

func TestBilling_RejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))
	_, err := f.billing.ApplyPayment(f.ctx, inv.ID, 60)
	require.NoError(t, err)

	_, err = f.billing.ApplyPayment(f.ctx, inv.ID, 40.01)
	assert.ErrorIs(t, err, ErrPaymentExceedsDue)
	assert.ErrorIs(t, err, ErrConflict)

	stored := f.reloadInvoice(t, inv.ID)
	assert.Equal(t, 60.0, stored.AmountPaid)
	assert.Equal(t, 40.0, stored.DueAmount)
}

func TestBilling_RejectsBadAmounts(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))

	for _, amount := range []float64{0, -5, 0.004, -0.001, math.NaN(), math.Inf(1)} {
		_, err := f.billing.ApplyPayment(f.ctx, inv.ID, amount)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %v", amount)

		_, err = f.billing.RecordPayment(f.ctx, staff, inv.ID, amount, noRequest)
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %v", amount)
	}
	assert.Equal(t, 0.0, f.reloadInvoice(t, inv.ID).AmountPaid)

	_, err := f.billing.ApplyPayment(f.ctx, 4242, 10)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestBilling_OverduePaidInFullBecomesPaid(t *testing.T) {
	f := newFixture(t)
	yesterday := testNow.AddDate(0, 0, -1)
	inv := f.storedInvoice(t, "INV-2001", 200, 0, 200, ledger.StatusSent, &yesterday)

	assert.Equal(t, ledger.StatusOverdue, inv.DerivedStatus(testNow))

	paid, err := f.billing.ApplyPayment(f.ctx, inv.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPaid, paid.Status)
	assert.Equal(t, 0.0, paid.DueAmount)
}

func TestBilling_PaymentUsesReconciledDue(t *testing.T) {
	f := newFixture(t)
	// total 100, paid 40, due 70 reconciles to paid 30, due 70
	inv := f.storedInvoice(t, "INV-3001", 100, 40, 70, ledger.StatusSent, nil)

	_, err := f.billing.ApplyPayment(f.ctx, inv.ID, 70.5)
	assert.ErrorIs(t, err, ErrPaymentExceedsDue)

	paid, err := f.billing.ApplyPayment(f.ctx, inv.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 50.0, paid.AmountPaid)
	assert.Equal(t, 50.0, paid.DueAmount)
	assert.Equal(t, ledger.StatusPartiallyPaid, paid.Status)
}

func TestBilling_RecomputeClientBalanceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.storedInvoice(t, "INV-4001", 100, 40, 70, ledger.StatusSent, nil)
	f.storedInvoice(t, "INV-4002", 0.1, 0, 0.1, ledger.StatusSent, nil)
	f.storedInvoice(t, "INV-4003", 0.2, 0, 0.2, ledger.StatusSent, nil)

	require.NoError(t, f.billing.RecomputeClientBalance(f.ctx, f.client.ID))
	first := f.reloadClient(t)
	require.NoError(t, f.billing.RecomputeClientBalance(f.ctx, f.client.ID))
	second := f.reloadClient(t)

	assert.Equal(t, 70.3, first.OutstandingBalance)
	assert.Equal(t, 100.3, first.TotalBilled)
	assert.Equal(t, first.OutstandingBalance, second.OutstandingBalance)
	assert.Equal(t, first.TotalBilled, second.TotalBilled)
}

func TestBilling_RecomputeUnknownClient(t *testing.T) {
	f := newFixture(t)
	err := f.billing.RecomputeClientBalance(f.ctx, 777)
	assert.True(t, errors.Is(err, ErrClientNotFound))
}

func TestBilling_RecomputeAllBalances(t *testing.T) {
	f := newFixture(t)
	f.newClient(t, tenantID, "Initech")
	f.storedInvoice(t, "INV-5001", 80, 0, 80, ledger.StatusSent, nil)

	n, err := f.billing.RecomputeAllBalances(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 80.0, f.reloadClient(t).OutstandingBalance)
}

func TestBilling_RecordPaymentScopesToTenant(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))

	_, err := f.billing.RecordPayment(f.ctx, outsider, inv.ID, 10, noRequest)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	updated, err := f.billing.RecordPayment(f.ctx, staff, inv.ID, 10, noRequest)
	require.NoError(t, err)
	assert.Equal(t, 90.0, updated.DueAmount)

	var audits int64
	require.NoError(t, f.db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionApplyPayment).Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}
