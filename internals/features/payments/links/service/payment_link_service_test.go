package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorhub_backend/internals/databases/dbtest"
	dto "tutorhub_backend/internals/features/payments/links/dto"
	model "tutorhub_backend/internals/features/payments/links/model"
)

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) *Service {
	s := New(dbtest.Open(t), "https://pay.tutorhub.test/")
	s.Now = func() time.Time { return now }
	return s
}

func intPtr(v int) *int { return &v }

func TestCreateDerivesSlugAndMinimum(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	l, err := s.Create(ctx, &dto.CreatePaymentLinkRequest{
		Title:               "Term 1 Tuition Fee",
		Amount:              25000,
		AllowPartialPayment: true,
		PartialPercentage:   intPtr(50),
		CustomFields:        []string{" Student ID ", "Class"},
	}, "Admin")
	require.NoError(t, err)

	assert.Equal(t, model.LinkActive, l.PaymentLinkStatus)
	assert.Equal(t, "term-1-tuition-fee", l.PaymentLinkSlug)
	assert.Equal(t, "https://pay.tutorhub.test/pay/term-1-tuition-fee", l.PaymentLinkURL)
	require.NotNil(t, l.PaymentLinkMinimumPayment)
	assert.Equal(t, int64(12500), *l.PaymentLinkMinimumPayment)
	assert.Equal(t, []string{"Student ID", "Class"}, []string(l.PaymentLinkCustomFields))
	assert.Zero(t, l.PaymentLinkCollected)

	again, err := s.Create(ctx, &dto.CreatePaymentLinkRequest{Title: "Term 1 Tuition Fee", Amount: 1000}, "Admin")
	require.NoError(t, err)
	assert.Equal(t, "term-1-tuition-fee-2", again.PaymentLinkSlug)
	assert.Nil(t, again.PaymentLinkMinimumPayment)
}

func TestCreateUsesDefaultPercentage(t *testing.T) {
	s := newService(t)
	l, err := s.Create(context.Background(), &dto.CreatePaymentLinkRequest{
		Title: "Study Tour", Amount: 4000000, AllowPartialPayment: true,
	}, "Admin")
	require.NoError(t, err)
	require.NotNil(t, l.PaymentLinkPartialPercentage)
	assert.Equal(t, 50, *l.PaymentLinkPartialPercentage)
	assert.Equal(t, int64(2000000), *l.PaymentLinkMinimumPayment)
}

func TestCreateRejects(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	past := now.Add(-time.Hour)

	_, err := s.Create(ctx, &dto.CreatePaymentLinkRequest{Title: "Old", Amount: 1000, ExpiresAt: &past}, "Admin")
	assert.ErrorIs(t, err, ErrExpiryInPast)

	_, err = s.Create(ctx, &dto.CreatePaymentLinkRequest{Title: "Zero", Amount: 0}, "Admin")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = s.Create(ctx, &dto.CreatePaymentLinkRequest{Title: "Pct", Amount: 1000, AllowPartialPayment: true, PartialPercentage: intPtr(95)}, "Admin")
	assert.ErrorIs(t, err, ErrPercentageRange)
}

func TestToggle(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	l, err := s.Create(ctx, &dto.CreatePaymentLinkRequest{Title: "Workshop", Amount: 750000}, "Admin")
	require.NoError(t, err)

	got, err := s.Toggle(ctx, l.PaymentLinkID)
	require.NoError(t, err)
	assert.Equal(t, model.LinkPaused, got.PaymentLinkStatus)

	got, err = s.Toggle(ctx, l.PaymentLinkID)
	require.NoError(t, err)
	assert.Equal(t, model.LinkActive, got.PaymentLinkStatus)

	_, err = s.SetStatus(ctx, l.PaymentLinkID, model.LinkCompleted)
	require.NoError(t, err)
	_, err = s.Toggle(ctx, l.PaymentLinkID)
	assert.ErrorIs(t, err, model.ErrTerminalStatus)

	stored, err := s.Get(ctx, l.PaymentLinkID)
	require.NoError(t, err)
	assert.Equal(t, model.LinkCompleted, stored.PaymentLinkStatus)
}

func TestUpdateKeepsSlugAndRecomputesMinimum(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	l, err := s.Create(ctx, &dto.CreatePaymentLinkRequest{
		Title: "Olympiad", Amount: 20000, AllowPartialPayment: true, PartialPercentage: intPtr(50),
	}, "Admin")
	require.NoError(t, err)

	title, amount := "Science Olympiad", int64(30000)
	patch := &dto.PatchPaymentLinkRequest{}
	patch.Title.Set, patch.Title.Value = true, &title
	patch.Amount.Set, patch.Amount.Value = true, &amount

	got, err := s.Update(ctx, l.PaymentLinkID, patch)
	require.NoError(t, err)
	assert.Equal(t, "Science Olympiad", got.PaymentLinkTitle)
	assert.Equal(t, "olympiad", got.PaymentLinkSlug)
	assert.Equal(t, int64(15000), *got.PaymentLinkMinimumPayment)
}

func TestDeleteAndExpireDue(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	soon := now.Add(time.Hour)
	l, err := s.Create(ctx, &dto.CreatePaymentLinkRequest{Title: "Exam Prep", Amount: 1000, ExpiresAt: &soon}, "Admin")
	require.NoError(t, err)

	n, err := s.ExpireDue(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	got, err := s.Get(ctx, l.PaymentLinkID)
	require.NoError(t, err)
	assert.Equal(t, model.LinkExpired, got.PaymentLinkStatus)

	require.NoError(t, s.Delete(ctx, l.PaymentLinkID))
	_, err = s.Get(ctx, l.PaymentLinkID)
	assert.ErrorIs(t, err, ErrLinkNotFound)
	assert.ErrorIs(t, s.Delete(ctx, l.PaymentLinkID), ErrLinkNotFound)
}

func TestListFilters(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	for _, title := range []string{"Term 1 Tuition Fee", "Study Tour", "Term 2 Tuition Fee"} {
		_, err := s.Create(ctx, &dto.CreatePaymentLinkRequest{Title: title, Amount: 1000}, "Admin")
		require.NoError(t, err)
	}

	rows, page, err := s.List(ctx, dto.ListQuery{Search: "tuition"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(2), page.Total)

	rows, _, err = s.List(ctx, dto.ListQuery{Status: string(model.LinkPaused)})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
