package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPayment(t *testing.T) {
	at := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	p := &PartialPayment{PartialPaymentAmountPaid: 12500, PartialPaymentRemaining: 12500, PartialPaymentTotalAmount: 25000}

	done, err := p.ApplyPayment(5000, at)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, int64(17500), p.PartialPaymentAmountPaid)
	assert.Equal(t, int64(7500), p.PartialPaymentRemaining)
	assert.Equal(t, p.PartialPaymentTotalAmount, p.PartialPaymentAmountPaid+p.PartialPaymentRemaining)

	_, err = p.ApplyPayment(7501, at)
	assert.ErrorIs(t, err, ErrOverpayment)
	assert.Equal(t, int64(7500), p.PartialPaymentRemaining, "rejected payment leaves the balance alone")

	_, err = p.ApplyPayment(0, at)
	assert.Error(t, err)

	done, err = p.ApplyPayment(7500, at)
	require.NoError(t, err)
	assert.True(t, done)
	assert.False(t, p.IsOpen())
	require.NotNil(t, p.PartialPaymentCompletedAt)
	assert.Equal(t, at, *p.PartialPaymentCompletedAt)
}

func TestDeriveStatus(t *testing.T) {
	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, PartialPending, DeriveStatus(100, due, 7, due.AddDate(0, 0, 6)))
	assert.Equal(t, PartialOverdue, DeriveStatus(100, due, 7, due.AddDate(0, 0, 7)))
	assert.Equal(t, PartialPending, DeriveStatus(0, due, 7, due.AddDate(0, 0, 30)), "settled balances are never overdue")
	assert.Equal(t, PartialOverdue, DeriveStatus(1, due, 0, due))
}

func TestDueDateFor(t *testing.T) {
	first := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, expiry, DueDateFor(&expiry, first, 14))
	assert.Equal(t, first.AddDate(0, 0, 14), DueDateFor(nil, first, 14))
	assert.Equal(t, first.AddDate(0, 0, 30), DueDateFor(nil, first, 0))
}

func TestCountByStatus(t *testing.T) {
	c := CountByStatus([]PartialPayment{
		{PartialPaymentStatus: PartialPending},
		{PartialPaymentStatus: PartialOverdue},
		{PartialPaymentStatus: PartialPending},
	})
	assert.Equal(t, Counts{PendingCount: 2, OverdueCount: 1}, c)
}
