package services

import (
	"testing"

	"github.com/sjperalta/billtrack-api/internal/ledger"
	"github.com/sjperalta/billtrack-api/internal/models"
	"github.com/sjperalta/billtrack-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func (f *fixture) pay(t *testing.T, invoiceID uint, amount float64, status string) *models.Payment {
	t.Helper()
	p, err := f.payments.Create(f.ctx, staff, CreatePaymentInput{
		InvoiceID: invoiceID,
		ClientID:  f.client.ID,
		Amount:    amount,
		Status:    status,
	}, noRequest)
	require.NoError(t, err)
	return p
}

func TestPayment_CompletedPaymentMovesLedger(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))

	p := f.pay(t, inv.ID, 40, "")
	assert.Equal(t, models.PaymentStatusCompleted, p.Status)
	assert.Equal(t, models.PaymentMethodBankTransfer, p.PaymentMethod)
	assert.Regexp(t, `^PAY-[0-9A-F]{12}$`, p.Reference)
	assert.True(t, p.PaymentDate.Equal(testNow))

	stored := f.reloadInvoice(t, inv.ID)
	assert.Equal(t, 40.0, stored.AmountPaid)
	assert.Equal(t, 60.0, stored.DueAmount)
	assert.Equal(t, ledger.StatusPartiallyPaid, stored.Status)
	assert.Equal(t, 60.0, f.reloadClient(t).OutstandingBalance)
}

func TestPayment_PendingLeavesLedgerUntilCompleted(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))

	p := f.pay(t, inv.ID, 100, models.PaymentStatusPending)
	assert.Equal(t, 100.0, f.reloadInvoice(t, inv.ID).DueAmount)

	done, err := f.payments.Update(f.ctx, staff, p.ID, UpdatePaymentInput{Status: strPtr(models.PaymentStatusCompleted)}, noRequest)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, done.Status)

	stored := f.reloadInvoice(t, inv.ID)
	assert.Equal(t, 0.0, stored.DueAmount)
	assert.Equal(t, ledger.StatusPaid, stored.Status)

	// same status again is a no-op, not a second application
	_, err = f.payments.Update(f.ctx, staff, p.ID, UpdatePaymentInput{
		Status: strPtr(models.PaymentStatusCompleted),
		Notes:  strPtr("wire received"),
	}, noRequest)
	require.NoError(t, err)
	assert.Equal(t, 100.0, f.reloadInvoice(t, inv.ID).AmountPaid)

	got, err := f.payments.Get(f.ctx, staff, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "wire received", got.Notes)
}

func TestPayment_CompletedCannotMove(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))
	p := f.pay(t, inv.ID, 10, "")

	_, err := f.payments.Update(f.ctx, staff, p.ID, UpdatePaymentInput{Status: strPtr(models.PaymentStatusFailed)}, noRequest)
	assert.ErrorIs(t, err, ErrPaymentState)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPayment_FailAndRetry(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))
	p := f.pay(t, inv.ID, 30, models.PaymentStatusPending)

	failed, err := f.payments.Update(f.ctx, staff, p.ID, UpdatePaymentInput{Status: strPtr(models.PaymentStatusFailed)}, noRequest)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, failed.Status)

	_, err = f.payments.Update(f.ctx, staff, p.ID, UpdatePaymentInput{Status: strPtr(models.PaymentStatusCompleted)}, noRequest)
	assert.ErrorIs(t, err, ErrPaymentState)

	pending, err := f.payments.Update(f.ctx, staff, p.ID, UpdatePaymentInput{Status: strPtr(models.PaymentStatusPending)}, noRequest)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, pending.Status)
	assert.Equal(t, 100.0, f.reloadInvoice(t, inv.ID).DueAmount)
}

func TestPayment_CompletingStalePendingCannotOverpay(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))
	pending := f.pay(t, inv.ID, 80, models.PaymentStatusPending)
	f.pay(t, inv.ID, 50, "")

	_, err := f.payments.Update(f.ctx, staff, pending.ID, UpdatePaymentInput{Status: strPtr(models.PaymentStatusCompleted)}, noRequest)
	assert.ErrorIs(t, err, ErrPaymentExceedsDue)

	got, err := f.payments.Get(f.ctx, staff, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, got.Status, "status change rolls back with the ledger")
	assert.Equal(t, 50.0, f.reloadInvoice(t, inv.ID).DueAmount)
}

func TestPayment_CreateRejections(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))
	other := f.newClient(t, tenantID, "Globex")

	tests := []struct {
		name string
		in   CreatePaymentInput
		want error
	}{
		{"over due", CreatePaymentInput{InvoiceID: inv.ID, ClientID: f.client.ID, Amount: 100.5}, ErrPaymentExceedsDue},
		{"wrong client", CreatePaymentInput{InvoiceID: inv.ID, ClientID: other.ID, Amount: 10}, ErrPaymentClient},
		{"zero amount", CreatePaymentInput{InvoiceID: inv.ID, ClientID: f.client.ID, Amount: 0}, ErrValidation},
		{"sub-cent amount", CreatePaymentInput{InvoiceID: inv.ID, ClientID: f.client.ID, Amount: 0.004}, ErrInvalidAmount},
		{"bad method", CreatePaymentInput{InvoiceID: inv.ID, ClientID: f.client.ID, Amount: 10, PaymentMethod: "barter"}, ErrValidation},
		{"unknown invoice", CreatePaymentInput{InvoiceID: 9999, ClientID: f.client.ID, Amount: 10}, ErrInvoiceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.payments.Create(f.ctx, staff, tt.in, noRequest)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, total, err := f.payments.List(f.ctx, staff, repository.NewListQuery())
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Equal(t, 100.0, f.reloadInvoice(t, inv.ID).DueAmount)
}

func TestPayment_AmountIsStoredRounded(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))

	p := f.pay(t, inv.ID, 10.005, "")
	assert.Equal(t, 10.01, p.Amount)

	stored, err := f.payments.Get(f.ctx, staff, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.01, stored.Amount)

	fin := f.reloadInvoice(t, inv.ID).Financials()
	assert.Equal(t, 10.01, fin.Paid)
	assert.Equal(t, 89.99, fin.Due)
}

func TestPayment_DeleteLeavesLedger(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))
	p := f.pay(t, inv.ID, 25, "")

	require.NoError(t, f.payments.Delete(f.ctx, staff, p.ID, noRequest))
	_, err := f.payments.Get(f.ctx, staff, p.ID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	stored := f.reloadInvoice(t, inv.ID)
	assert.Equal(t, 25.0, stored.AmountPaid)
	assert.Equal(t, 75.0, stored.DueAmount)
	assert.Equal(t, 75.0, f.reloadClient(t).OutstandingBalance)
}

func TestPayment_ListScopeAndFilters(t *testing.T) {
	f := newFixture(t)
	first := f.generate(t, f.logHours(t, 2, true))
	second := f.generate(t, f.logHours(t, 2, true))
	f.pay(t, first.ID, 10, "")
	f.pay(t, first.ID, 10, models.PaymentStatusPending)
	f.pay(t, second.ID, 10, "")

	q := repository.NewListQuery()
	q.Filters["invoice_id"] = "1"
	byInvoice, total, err := f.payments.List(f.ctx, staff, q)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, p := range byInvoice {
		assert.Equal(t, first.ID, p.InvoiceID)
	}

	q = repository.NewListQuery()
	q.Filters["status"] = models.PaymentStatusPending
	_, total, err = f.payments.List(f.ctx, staff, q)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	portal := models.Principal{Role: models.RoleClient, ClientID: f.client.ID}
	_, total, err = f.payments.List(f.ctx, portal, repository.NewListQuery())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, total, err = f.payments.List(f.ctx, outsider, repository.NewListQuery())
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestPayment_ListByClient(t *testing.T) {
	f := newFixture(t)
	inv := f.generate(t, f.logHours(t, 2, true))
	f.pay(t, inv.ID, 10.1, models.PaymentStatusCompleted)
	f.pay(t, inv.ID, 20.2, models.PaymentStatusCompleted)
	pending := f.pay(t, inv.ID, 5, models.PaymentStatusPending)

	other := f.newClient(t, tenantID, "Globex")
	require.NoError(t, f.repos.Payment.Create(f.ctx, &models.Payment{
		UserID: tenantID, InvoiceID: inv.ID, ClientID: other.ID, Amount: 1,
		PaymentDate: testNow, Status: models.PaymentStatusCompleted, PaymentMethod: models.PaymentMethodCash,
	}))

	res, err := f.payments.ListByClient(f.ctx, staff, f.client.ID)
	require.NoError(t, err)
	require.Len(t, res.Payments, 3)
	assert.Equal(t, pending.ID, res.Payments[0].ID, "newest first")
	assert.Equal(t, ClientPaymentSummary{TotalReceived: 30.3, PaymentCount: 3}, res.Summary)

	portal := models.Principal{Role: models.RoleClient, ClientID: f.client.ID}
	res, err = f.payments.ListByClient(f.ctx, portal, f.client.ID)
	require.NoError(t, err)
	assert.Len(t, res.Payments, 3)

	_, err = f.payments.ListByClient(f.ctx, portal, other.ID)
	assert.ErrorIs(t, err, ErrClientNotFound)
	_, err = f.payments.ListByClient(f.ctx, outsider, f.client.ID)
	assert.ErrorIs(t, err, ErrClientNotFound)
}
