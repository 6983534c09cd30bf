package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tutorhub_backend/internals/databases/dbtest"
	linkModel "tutorhub_backend/internals/features/payments/links/model"
	partialModel "tutorhub_backend/internals/features/payments/partials/model"
	partialSvc "tutorhub_backend/internals/features/payments/partials/service"
	model "tutorhub_backend/internals/features/payments/transactions/model"
)

var t0 = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func seedLink(t *testing.T, db *gorm.DB, amount int64, pct int, maxPayments int) *linkModel.PaymentLink {
	t.Helper()
	l := &linkModel.PaymentLink{
		PaymentLinkTitle:       "Term 1 Tuition Fee",
		PaymentLinkAmount:      amount,
		PaymentLinkSlug:        "term-1-" + uuid.NewString()[:8],
		PaymentLinkMaxPayments: maxPayments,
	}
	if pct > 0 {
		l.PaymentLinkAllowPartial = true
		l.PaymentLinkPartialPercentage = &pct
	}
	l.ApplyPartialPolicy()
	require.NoError(t, db.Create(l).Error)
	return l
}

func newLedger(t *testing.T) (*Ledger, *gorm.DB, *time.Time) {
	db := dbtest.Open(t)
	clock := t0
	l := NewLedger(db)
	l.Now = func() time.Time { return clock }
	return l, db, &clock
}

func reload(t *testing.T, db *gorm.DB, id any) *linkModel.PaymentLink {
	t.Helper()
	var l linkModel.PaymentLink
	require.NoError(t, db.First(&l, "payment_link_id = ?", id).Error)
	return &l
}

func assertCounters(t *testing.T, l *linkModel.PaymentLink) {
	t.Helper()
	assert.Equal(t, l.PaymentLinkCompletedPayments+l.PaymentLinkPartialPayments, l.PaymentLinkCollected)
}

func TestRecordFullPayment(t *testing.T) {
	ledger, db, _ := newLedger(t)
	link := seedLink(t, db, 350000, 0, 0)

	out, err := ledger.Record(context.Background(), PaymentInput{
		LinkID: link.PaymentLinkID, StudentName: "Ayu", Email: "AYU@mail.test ", Amount: 350000, Method: "cash",
	})
	require.NoError(t, err)
	assert.Equal(t, model.TxCompleted, out.Transaction.TransactionStatus)
	assert.Equal(t, "ayu@mail.test", out.Transaction.TransactionEmail)
	assert.Nil(t, out.Partial)
	assert.NotEmpty(t, out.Transaction.TransactionReference)

	got := reload(t, db, link.PaymentLinkID)
	assert.Equal(t, 1, got.PaymentLinkCompletedPayments)
	assert.Equal(t, int64(350000), got.PaymentLinkTotalAmount)
	assert.Zero(t, got.PaymentLinkPendingAmount)
	assertCounters(t, got)
}

func TestPartialLifecycle(t *testing.T) {
	ledger, db, clock := newLedger(t)
	ctx := context.Background()
	link := seedLink(t, db, 25000, 50, 0)
	payer := PaymentInput{LinkID: link.PaymentLinkID, StudentName: "Bima", Email: "bima@mail.test", Method: "bank_transfer"}

	first := payer
	first.Amount = 12500
	out, err := ledger.Record(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, out.Partial)
	assert.Equal(t, model.TxPartial, out.Transaction.TransactionStatus)
	assert.True(t, out.Transaction.TransactionIsPartial)
	assert.Equal(t, int64(12500), out.Transaction.TransactionRemaining)
	assert.Equal(t, partialModel.PartialPending, out.Partial.PartialPaymentStatus)
	assert.Equal(t, t0.AddDate(0, 0, 30), out.Partial.PartialPaymentDueDate)

	got := reload(t, db, link.PaymentLinkID)
	assert.Equal(t, 1, got.PaymentLinkPartialPayments)
	assert.Equal(t, int64(12500), got.PaymentLinkPendingAmount)
	assertCounters(t, got)

	// due date + 7 grace days
	*clock = t0.AddDate(0, 0, 37)
	n, err := partialSvc.MarkOverdue(ctx, db, *clock)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	var p partialModel.PartialPayment
	require.NoError(t, db.First(&p, "partial_payment_id = ?", out.Partial.PartialPaymentID).Error)
	assert.Equal(t, partialModel.PartialOverdue, p.PartialPaymentStatus)

	over := payer
	over.Amount = 12501
	_, err = ledger.Record(ctx, over)
	assert.ErrorIs(t, err, ErrOverpayment)

	second := payer
	second.Amount = 5000
	out, err = ledger.Record(ctx, second)
	require.NoError(t, err)
	assert.False(t, out.PartialCompleted)
	assert.Equal(t, int64(7500), out.Partial.PartialPaymentRemaining)
	assert.Equal(t, partialModel.PartialOverdue, out.Partial.PartialPaymentStatus)

	last := payer
	last.Amount = 7500
	out, err = ledger.Record(ctx, last)
	require.NoError(t, err)
	assert.True(t, out.PartialCompleted)
	assert.Equal(t, model.TxCompleted, out.Transaction.TransactionStatus)
	assert.Equal(t, out.Partial.PartialPaymentTotalAmount, out.Partial.PartialPaymentAmountPaid)

	got = reload(t, db, link.PaymentLinkID)
	assert.Equal(t, 1, got.PaymentLinkCompletedPayments)
	assert.Equal(t, 0, got.PaymentLinkPartialPayments)
	assert.Zero(t, got.PaymentLinkPendingAmount)
	assert.Equal(t, int64(25000), got.PaymentLinkTotalAmount)
	assertCounters(t, got)
}

func TestRecordRejectsPolicyViolations(t *testing.T) {
	ledger, db, _ := newLedger(t)
	ctx := context.Background()
	partial := seedLink(t, db, 25000, 50, 0)
	whole := seedLink(t, db, 25000, 0, 0)

	_, err := ledger.Record(ctx, PaymentInput{LinkID: partial.PaymentLinkID, StudentName: "C", Email: "c@mail.test", Amount: 12499})
	assert.ErrorIs(t, err, ErrBelowMinimum)

	_, err = ledger.Record(ctx, PaymentInput{LinkID: partial.PaymentLinkID, StudentName: "C", Email: "c@mail.test", Amount: 25001})
	assert.ErrorIs(t, err, ErrOverpayment)

	_, err = ledger.Record(ctx, PaymentInput{LinkID: whole.PaymentLinkID, StudentName: "C", Email: "c@mail.test", Amount: 10000})
	assert.ErrorIs(t, err, ErrPartialNotAllowed)

	_, err = ledger.Record(ctx, PaymentInput{LinkID: whole.PaymentLinkID, StudentName: "C", Amount: 25000})
	assert.ErrorIs(t, err, ErrPayerRequired)

	require.NoError(t, db.Model(whole).Update("payment_link_status", linkModel.LinkPaused).Error)
	_, err = ledger.Record(ctx, PaymentInput{LinkID: whole.PaymentLinkID, StudentName: "C", Email: "c@mail.test", Amount: 25000})
	assert.ErrorIs(t, err, ErrLinkNotPayable)

	var n int64
	require.NoError(t, db.Model(&model.Transaction{}).Count(&n).Error)
	assert.Zero(t, n, "rejected payments write nothing")
}

func TestCapacityCompletesLink(t *testing.T) {
	ledger, db, _ := newLedger(t)
	ctx := context.Background()
	link := seedLink(t, db, 1000, 0, 2)

	for _, email := range []string{"a@mail.test", "b@mail.test"} {
		_, err := ledger.Record(ctx, PaymentInput{LinkID: link.PaymentLinkID, StudentName: "S", Email: email, Amount: 1000})
		require.NoError(t, err)
	}
	got := reload(t, db, link.PaymentLinkID)
	assert.Equal(t, linkModel.LinkCompleted, got.PaymentLinkStatus)

	_, err := ledger.Record(ctx, PaymentInput{LinkID: link.PaymentLinkID, StudentName: "S", Email: "c@mail.test", Amount: 1000})
	assert.ErrorIs(t, err, ErrLinkNotPayable)
}

func TestOpenPartialTakesCapacitySlot(t *testing.T) {
	ledger, db, _ := newLedger(t)
	ctx := context.Background()
	link := seedLink(t, db, 25000, 50, 1)
	bima := PaymentInput{LinkID: link.PaymentLinkID, StudentName: "Bima", Email: "bima@mail.test", Amount: 12500}

	_, err := ledger.Record(ctx, bima)
	require.NoError(t, err)
	got := reload(t, db, link.PaymentLinkID)
	assert.Equal(t, 1, got.PaymentLinkCollected)
	assert.Equal(t, linkModel.LinkCompleted, got.PaymentLinkStatus)

	_, err = ledger.Record(ctx, PaymentInput{LinkID: link.PaymentLinkID, StudentName: "Citra", Email: "citra@mail.test", Amount: 25000})
	assert.ErrorIs(t, err, ErrLinkNotPayable)
	_, err = ledger.OpenPending(ctx, PaymentInput{LinkID: link.PaymentLinkID, StudentName: "Citra", Email: "citra@mail.test", Amount: 12500})
	assert.ErrorIs(t, err, ErrLinkNotPayable)

	// the payer holding the slot can still finish
	pending, err := ledger.OpenPending(ctx, bima)
	require.NoError(t, err)
	out, err := ledger.Settle(ctx, pending.TransactionReference, "settlement", nil)
	require.NoError(t, err)
	assert.True(t, out.PartialCompleted)

	got = reload(t, db, link.PaymentLinkID)
	assert.Equal(t, 1, got.PaymentLinkCompletedPayments)
	assert.Equal(t, 0, got.PaymentLinkPartialPayments)
	assert.Equal(t, int64(25000), got.PaymentLinkTotalAmount)
	assert.Equal(t, linkModel.LinkCompleted, got.PaymentLinkStatus)
	assertCounters(t, got)
}

func TestOverduePartialPayableAfterExpiry(t *testing.T) {
	ledger, db, clock := newLedger(t)
	ctx := context.Background()
	expiry := t0.AddDate(0, 0, 10)
	pct := 50
	link := &linkModel.PaymentLink{
		PaymentLinkTitle: "Study Tour", PaymentLinkSlug: "study-tour", PaymentLinkAmount: 25000,
		PaymentLinkAllowPartial: true, PaymentLinkPartialPercentage: &pct, PaymentLinkExpiresAt: &expiry,
	}
	link.ApplyPartialPolicy()
	require.NoError(t, db.Create(link).Error)
	eko := PaymentInput{LinkID: link.PaymentLinkID, StudentName: "Eko", Email: "eko@mail.test", Amount: 12500}

	out, err := ledger.Record(ctx, eko)
	require.NoError(t, err)
	assert.True(t, expiry.Equal(out.Partial.PartialPaymentDueDate), "due date follows the link expiry")

	*clock = expiry.AddDate(0, 0, 20)
	n, err := partialSvc.MarkOverdue(ctx, db, *clock)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, db.Model(link).Update("payment_link_status", linkModel.LinkExpired).Error)

	_, err = ledger.Record(ctx, PaymentInput{LinkID: link.PaymentLinkID, StudentName: "Fajar", Email: "fajar@mail.test", Amount: 25000})
	assert.ErrorIs(t, err, ErrLinkNotPayable, "expired links take no new payers")

	out, err = ledger.Record(ctx, eko)
	require.NoError(t, err)
	assert.True(t, out.PartialCompleted)
	assert.Equal(t, model.TxCompleted, out.Transaction.TransactionStatus)

	got := reload(t, db, link.PaymentLinkID)
	assert.Equal(t, linkModel.LinkExpired, got.PaymentLinkStatus)
	assert.Equal(t, 1, got.PaymentLinkCompletedPayments)
	assert.Zero(t, got.PaymentLinkPendingAmount)
	assertCounters(t, got)
}

func TestPausedLinkRejectsPartialBalance(t *testing.T) {
	ledger, db, _ := newLedger(t)
	ctx := context.Background()
	link := seedLink(t, db, 25000, 50, 0)
	dewi := PaymentInput{LinkID: link.PaymentLinkID, StudentName: "Dewi", Email: "dewi@mail.test", Amount: 12500}

	_, err := ledger.Record(ctx, dewi)
	require.NoError(t, err)
	require.NoError(t, db.Model(link).Update("payment_link_status", linkModel.LinkPaused).Error)

	_, err = ledger.Record(ctx, dewi)
	assert.ErrorIs(t, err, ErrLinkNotPayable)
}

func TestPendingSettleIsIdempotent(t *testing.T) {
	ledger, db, _ := newLedger(t)
	ctx := context.Background()
	link := seedLink(t, db, 25000, 50, 0)

	pending, err := ledger.OpenPending(ctx, PaymentInput{LinkID: link.PaymentLinkID, StudentName: "Dewi", Email: "dewi@mail.test", Amount: 12500})
	require.NoError(t, err)
	assert.Equal(t, model.TxPending, pending.TransactionStatus)
	assert.Zero(t, reload(t, db, link.PaymentLinkID).PaymentLinkCollected, "pending checkouts move no counters")

	out, err := ledger.Settle(ctx, pending.TransactionReference, "settlement", map[string]interface{}{"payment_type": "gopay"})
	require.NoError(t, err)
	assert.False(t, out.AlreadySettled)
	assert.Equal(t, model.TxPartial, out.Transaction.TransactionStatus)

	again, err := ledger.Settle(ctx, pending.TransactionReference, "settlement", nil)
	require.NoError(t, err)
	assert.True(t, again.AlreadySettled)

	got := reload(t, db, link.PaymentLinkID)
	assert.Equal(t, 1, got.PaymentLinkPartialPayments)
	assert.Equal(t, int64(12500), got.PaymentLinkTotalAmount)

	_, err = ledger.Settle(ctx, "PAY-missing", "settlement", nil)
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestFailLeavesCounters(t *testing.T) {
	ledger, db, _ := newLedger(t)
	ctx := context.Background()
	link := seedLink(t, db, 1000, 0, 0)

	pending, err := ledger.OpenPending(ctx, PaymentInput{LinkID: link.PaymentLinkID, StudentName: "E", Email: "e@mail.test", Amount: 1000})
	require.NoError(t, err)
	_, err = ledger.Fail(ctx, pending.TransactionReference, "expire")
	require.NoError(t, err)

	var tx model.Transaction
	require.NoError(t, db.First(&tx, "transaction_reference = ?", pending.TransactionReference).Error)
	assert.Equal(t, model.TxFailed, tx.TransactionStatus)
	assert.Zero(t, reload(t, db, link.PaymentLinkID).PaymentLinkCollected)
}

func TestRecomputeRepairsDrift(t *testing.T) {
	ledger, db, _ := newLedger(t)
	ctx := context.Background()
	link := seedLink(t, db, 25000, 50, 0)
	_, err := ledger.Record(ctx, PaymentInput{LinkID: link.PaymentLinkID, StudentName: "F", Email: "f@mail.test", Amount: 25000})
	require.NoError(t, err)
	_, err = ledger.Record(ctx, PaymentInput{LinkID: link.PaymentLinkID, StudentName: "G", Email: "g@mail.test", Amount: 15000})
	require.NoError(t, err)

	require.NoError(t, db.Model(&linkModel.PaymentLink{}).Where("payment_link_id = ?", link.PaymentLinkID).
		Updates(map[string]interface{}{"payment_link_collected": 9, "payment_link_total_amount": 1}).Error)

	got, err := ledger.Recompute(ctx, link.PaymentLinkID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PaymentLinkCompletedPayments)
	assert.Equal(t, 1, got.PaymentLinkPartialPayments)
	assert.Equal(t, 2, got.PaymentLinkCollected)
	assert.Equal(t, int64(40000), got.PaymentLinkTotalAmount)
	assert.Equal(t, int64(10000), got.PaymentLinkPendingAmount)
}
