package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tutorhub_backend/internals/databases/dbtest"
	linkModel "tutorhub_backend/internals/features/payments/links/model"
	partialModel "tutorhub_backend/internals/features/payments/partials/model"
	dto "tutorhub_backend/internals/features/payments/reminders/dto"
	model "tutorhub_backend/internals/features/payments/reminders/model"
	"tutorhub_backend/internals/helpers/notify"
)

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) Send(_ context.Context, m notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *recorder) sent() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.msgs...)
}

type fixture struct {
	svc   *Service
	db    *gorm.DB
	out   *recorder
	link  *linkModel.PaymentLink
	bima  partialModel.PartialPayment
	citra partialModel.PartialPayment
	eko   partialModel.PartialPayment
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	link := &linkModel.PaymentLink{
		PaymentLinkTitle:  "Term 1 Tuition Fee",
		PaymentLinkAmount: 2500000,
		PaymentLinkSlug:   "term-1-tuition-fee",
		PaymentLinkURL:    "https://pay.tutorhub.test/pay/term-1-tuition-fee",
	}
	require.NoError(t, db.Create(link).Error)

	partial := func(name, email string, status partialModel.PartialStatus, due time.Time) partialModel.PartialPayment {
		p := partialModel.PartialPayment{
			PartialPaymentLinkID:      link.PaymentLinkID,
			PartialPaymentLinkTitle:   link.PaymentLinkTitle,
			PartialPaymentStudentName: name,
			PartialPaymentEmail:       email,
			PartialPaymentAmountPaid:  1250000,
			PartialPaymentRemaining:   1250000,
			PartialPaymentTotalAmount: 2500000,
			PartialPaymentDueDate:     due,
			PartialPaymentStatus:      status,
		}
		require.NoError(t, db.Create(&p).Error)
		return p
	}

	out := &recorder{}
	svc := New(db, out, "https://api.tutorhub.test/")
	svc.Location = time.UTC
	svc.Now = func() time.Time { return now }
	return &fixture{
		svc:   svc,
		db:    db,
		out:   out,
		link:  link,
		bima:  partial("Bima Santoso", "bima@mail.test", partialModel.PartialPending, now.AddDate(0, 0, 10)),
		citra: partial("Citra Dewi", "citra@mail.test", partialModel.PartialPending, now.AddDate(0, 0, 20)),
		eko:   partial("Eko Prasetyo", "eko@mail.test", partialModel.PartialOverdue, now.AddDate(0, 0, -10)),
	}
}

func sendNow(group string, ids ...string) *dto.SendRemindersRequest {
	return &dto.SendRemindersRequest{
		Recipients:         ids,
		RecipientGroup:     group,
		Subject:            "Tuition reminder",
		Message:            "Hi {{name}}, {{remaining}} is still due for {{paymentLink}} by {{dueDate}}.",
		Channels:           []string{"Email", "SMS"},
		IncludePaymentLink: true,
		ScheduleType:       "now",
	}
}

func TestSendToSelected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Send(ctx, sendNow("selected", f.bima.PartialPaymentID.String(), f.eko.PartialPaymentID.String()), "Admin")
	require.NoError(t, err)
	require.NotNil(t, res.Sent)
	assert.Nil(t, res.Scheduled)
	assert.Equal(t, 2, res.Sent.Recipients)
	assert.Equal(t, "Admin", res.Sent.SentBy)

	msgs := f.out.sent()
	require.Len(t, msgs, 2, "SMS is off in default settings")
	for _, m := range msgs {
		assert.Equal(t, notify.ChannelEmail, m.Channel)
		assert.Contains(t, m.Text, "1250000 is still due for Term 1 Tuition Fee")
		assert.Contains(t, m.Text, "https://api.tutorhub.test/api/payments/reminders/track/click/")
		assert.Contains(t, m.HTML, "/track/open/")
	}
	assert.True(t, strings.HasPrefix(msgs[0].Text, "Hi Eko Prasetyo"), "soonest due first")

	rcps, err := f.svc.Recipients(ctx, res.Sent.ID)
	require.NoError(t, err)
	assert.Len(t, rcps, 2)

	var p partialModel.PartialPayment
	require.NoError(t, f.db.First(&p, "partial_payment_id = ?", f.bima.PartialPaymentID).Error)
	assert.Equal(t, 1, p.PartialPaymentRemindersSent)
	require.NotNil(t, p.PartialPaymentLastReminder)
}

func TestSendGroups(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Send(ctx, sendNow("all_pending"), "Admin")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent.Recipients)

	res, err = f.svc.Send(ctx, sendNow("all_overdue"), "Admin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent.Recipients)
}

func TestSendGroupHonorsResolvedIDs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// the console resolved all_pending against a filtered list holding only Bima
	res, err := f.svc.Send(ctx, sendNow("all_pending", f.bima.PartialPaymentID.String()), "Admin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent.Recipients)

	rcps, err := f.svc.Recipients(ctx, res.Sent.ID)
	require.NoError(t, err)
	require.Len(t, rcps, 1)
	assert.Equal(t, f.bima.PartialPaymentID, rcps[0].ReminderRecipientPartialID)
	require.Len(t, f.out.sent(), 1)
	assert.Equal(t, "bima@mail.test", f.out.sent()[0].To.Email)

	// an id outside the group is not widened into it
	_, err = f.svc.Send(ctx, sendNow("all_pending", f.eko.PartialPaymentID.String()), "Admin")
	assert.ErrorIs(t, err, ErrNoRecipients)

	// scheduled group reminders keep the whole group for the run
	later := sendNow("all_pending", f.bima.PartialPaymentID.String())
	later.ScheduleType = "later"
	later.ScheduleDate, later.ScheduleTime = "2026-10-20", "08:00"
	sres, err := f.svc.Send(ctx, later, "Admin")
	require.NoError(t, err)
	assert.Equal(t, "All pending payments", sres.Scheduled.Recipients)
	n, err := f.svc.RunDue(ctx, time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sent, err := f.svc.ListSent(ctx)
	require.NoError(t, err)
	var fromSchedule int
	for _, s := range sent {
		if s.SentReminderFromScheduledID != nil {
			fromSchedule = s.SentReminderRecipients
		}
	}
	assert.Equal(t, 2, fromSchedule)
}

func TestSendWithoutRecipients(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, sendNow("selected"), "Admin")
	assert.ErrorIs(t, err, ErrNoRecipients)

	_, err = f.svc.Send(ctx, sendNow("selected", uuid.NewString()), "Admin")
	assert.ErrorIs(t, err, ErrNoRecipients, "ids of settled or unknown partials resolve to nobody")

	_, err = f.svc.Send(ctx, sendNow("selected", "not-a-uuid"), "Admin")
	assert.ErrorIs(t, err, ErrInvalidRecipientID)

	var n int64
	require.NoError(t, f.db.Model(&model.SentReminder{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, f.out.sent())
}

func TestScheduleAndRunDue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := sendNow("all_overdue")
	req.ScheduleType = "later"
	req.ScheduleDate, req.ScheduleTime = "2026-10-17", "08:00"
	_, err := f.svc.Send(ctx, req, "Admin")
	assert.ErrorIs(t, err, ErrScheduleInPast)

	req.ScheduleDate, req.ScheduleTime = "2026-10-20", "08:00"
	res, err := f.svc.Send(ctx, req, "Admin")
	require.NoError(t, err)
	require.NotNil(t, res.Scheduled)
	assert.Equal(t, "All overdue payments", res.Scheduled.Recipients)
	assert.Equal(t, "One-time", res.Scheduled.Recurrence)

	weekly := sendNow("selected", f.citra.PartialPaymentID.String())
	weekly.ScheduleType, weekly.Recurrence = "later", "Weekly"
	weekly.ScheduleDate, weekly.ScheduleTime = "2026-10-19", "08:00"
	wres, err := f.svc.Send(ctx, weekly, "Admin")
	require.NoError(t, err)

	n, err := f.svc.RunDue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is due yet")

	runAt := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	n, err = f.svc.RunDue(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	scheduled, err := f.svc.ListScheduled(ctx)
	require.NoError(t, err)
	require.Len(t, scheduled, 1, "one-time reminder is removed after it runs")
	assert.Equal(t, wres.Scheduled.ID, scheduled[0].ScheduledReminderID)
	next := time.Date(2026, 10, 26, 8, 0, 0, 0, time.UTC)
	assert.True(t, next.Equal(scheduled[0].ScheduledReminderScheduledDate), "weekly reminder moves one week on")

	sent, err := f.svc.ListSent(ctx)
	require.NoError(t, err)
	require.Len(t, sent, 2)
	for _, s := range sent {
		assert.NotNil(t, s.SentReminderFromScheduledID)
	}
}

func TestTrackingAndCompletion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Send(ctx, sendNow("selected", f.bima.PartialPaymentID.String(), f.citra.PartialPaymentID.String()), "Admin")
	require.NoError(t, err)
	rcps, err := f.svc.Recipients(ctx, res.Sent.ID)
	require.NoError(t, err)
	require.Len(t, rcps, 2)

	url, err := f.svc.TrackClick(ctx, rcps[0].ReminderRecipientID)
	require.NoError(t, err)
	assert.Equal(t, f.link.PaymentLinkURL, url)
	require.NoError(t, f.svc.TrackOpen(ctx, rcps[0].ReminderRecipientID), "repeat opens count once")

	_, err = f.svc.TrackClick(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRecipientNotFound)

	require.NoError(t, f.db.Transaction(func(tx *gorm.DB) error {
		return MarkPartialCompleted(tx, rcps[0].ReminderRecipientPartialID)
	}))

	var sent model.SentReminder
	require.NoError(t, f.db.First(&sent, "sent_reminder_id = ?", res.Sent.ID).Error)
	assert.Equal(t, 1, sent.SentReminderOpened, "a click implies an open")
	assert.Equal(t, 1, sent.SentReminderClicked)
	assert.Equal(t, 1, sent.SentReminderCompleted)
	open, click, done := sent.Rates()
	assert.Equal(t, 50.0, open)
	assert.Equal(t, 50.0, click)
	assert.Equal(t, 50.0, done)
}

func TestResendSkipsSettledRecipients(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.Send(ctx, sendNow("selected", f.bima.PartialPaymentID.String(), f.citra.PartialPaymentID.String()), "Admin")
	require.NoError(t, err)

	settled := now
	require.NoError(t, f.db.Model(&partialModel.PartialPayment{}).
		Where("partial_payment_id = ?", f.citra.PartialPaymentID).
		Updates(map[string]interface{}{"partial_payment_completed_at": settled, "partial_payment_remaining_amount": 0}).Error)

	again, err := f.svc.Resend(ctx, res.Sent.ID, "Finance")
	require.NoError(t, err)
	assert.NotEqual(t, res.Sent.ID, again.SentReminderID)
	assert.Equal(t, 1, again.SentReminderRecipients)
	assert.Equal(t, "Finance", again.SentReminderSentBy)

	_, err = f.svc.Resend(ctx, uuid.New(), "Finance")
	assert.ErrorIs(t, err, ErrReminderNotFound)
}

func TestCancelScheduled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := sendNow("all_pending")
	req.ScheduleType, req.ScheduleDate, req.ScheduleTime = "later", "2026-11-01", "07:30"
	res, err := f.svc.Send(ctx, req, "Admin")
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(ctx, res.Scheduled.ID))
	assert.ErrorIs(t, f.svc.Cancel(ctx, res.Scheduled.ID), ErrReminderNotFound)

	rows, err := f.svc.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPersonalize(t *testing.T) {
	p := &partialModel.PartialPayment{
		PartialPaymentStudentName: "Bima",
		PartialPaymentLinkTitle:   "Study Tour",
		PartialPaymentRemaining:   3000000,
		PartialPaymentTotalAmount: 4000000,
		PartialPaymentDueDate:     time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC),
	}
	got := personalize("{{name}}: {{remaining}}/{{total}} for {{paymentLink}} by {{dueDate}} {{unknown}}", p)
	assert.Equal(t, "Bima: 3000000/4000000 for Study Tour by 2026-11-30 {{unknown}}", got)
}
