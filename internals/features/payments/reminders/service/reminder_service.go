// file: internals/features/payments/reminders/service/reminder_service.go
package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	linkModel "tutorhub_backend/internals/features/payments/links/model"
	partialModel "tutorhub_backend/internals/features/payments/partials/model"
	dto "tutorhub_backend/internals/features/payments/reminders/dto"
	model "tutorhub_backend/internals/features/payments/reminders/model"
	settingsSvc "tutorhub_backend/internals/features/payments/settings/service"
	"tutorhub_backend/internals/helpers/notify"
	"tutorhub_backend/internals/helpers/report"
)

var (
	ErrNoRecipients       = fiber.NewError(fiber.StatusBadRequest, "No recipients selected")
	ErrReminderNotFound   = fiber.NewError(fiber.StatusNotFound, "reminder not found")
	ErrRecipientNotFound  = fiber.NewError(fiber.StatusNotFound, "recipient not found")
	ErrScheduleInPast     = fiber.NewError(fiber.StatusBadRequest, "scheduled time must be in the future")
	ErrInvalidSchedule    = fiber.NewError(fiber.StatusBadRequest, "scheduleDate/scheduleTime are invalid")
	ErrInvalidRecipientID = fiber.NewError(fiber.StatusBadRequest, "recipients must be partial payment ids")
)

type Service struct {
	DB           *gorm.DB
	Sender       notify.Sender
	TrackBaseURL string
	Location     *time.Location
	Now          func() time.Time
}

func New(db *gorm.DB, sender notify.Sender, trackBaseURL string) *Service {
	return &Service{
		DB:           db,
		Sender:       sender,
		TrackBaseURL: strings.TrimRight(trackBaseURL, "/"),
		Location:     time.Local,
		Now:          time.Now,
	}
}

// draft is what one dispatch sends.
type draft struct {
	Title              string
	Message            string
	Channels           []string
	IncludePaymentLink bool
	SentBy             string
	FromScheduledID    *uuid.UUID
}

/* ===============================
   Recipients
=================================*/

// ResolveRecipients expands a group into open partial payments. ids, when
// given, narrow the group to the partials the caller already resolved; the
// selected group requires them.
func ResolveRecipients(ctx context.Context, db *gorm.DB, group model.RecipientGroup, ids []string) ([]partialModel.PartialPayment, error) {
	q := db.WithContext(ctx).Model(&partialModel.PartialPayment{}).
		Where("partial_payment_completed_at IS NULL")

	switch group {
	case model.GroupAllPending:
		q = q.Where("partial_payment_status = ?", partialModel.PartialPending)
	case model.GroupAllOverdue:
		q = q.Where("partial_payment_status = ?", partialModel.PartialOverdue)
	default:
		if len(ids) == 0 {
			return nil, ErrNoRecipients
		}
	}
	if len(ids) > 0 {
		uids := make([]uuid.UUID, 0, len(ids))
		for _, s := range ids {
			id, err := uuid.Parse(strings.TrimSpace(s))
			if err != nil {
				return nil, ErrInvalidRecipientID
			}
			uids = append(uids, id)
		}
		q = q.Where("partial_payment_id IN ?", uids)
	}

	var rows []partialModel.PartialPayment
	if err := q.Order("partial_payment_due_date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRecipients
	}
	return rows, nil
}

func describeRecipients(group model.RecipientGroup, n int) string {
	switch group {
	case model.GroupAllPending:
		return "All pending payments"
	case model.GroupAllOverdue:
		return "All overdue payments"
	}
	if n == 1 {
		return "1 recipient"
	}
	return strconv.Itoa(n) + " recipients"
}

/* ===============================
   Send / schedule
=================================*/

// Send dispatches now or stores a scheduled reminder for later.
func (s *Service) Send(ctx context.Context, req *dto.SendRemindersRequest, actor string) (dto.SendResult, error) {
	group := req.Group()

	if req.ScheduleType == "later" {
		at, err := req.ScheduledAt(s.Location)
		if err != nil {
			return dto.SendResult{}, ErrInvalidSchedule
		}
		if !at.After(s.Now()) {
			return dto.SendResult{}, ErrScheduleInPast
		}
		// groups are re-resolved when the reminder runs
		var ids []string
		if group == model.GroupSelected {
			ids = req.Recipients
		}
		rows, err := ResolveRecipients(ctx, s.DB, group, ids)
		if err != nil {
			return dto.SendResult{}, err
		}
		m := &model.ScheduledReminder{
			ScheduledReminderTitle:              strings.TrimSpace(req.Subject),
			ScheduledReminderMessage:            strings.TrimSpace(req.Message),
			ScheduledReminderRecipients:         describeRecipients(group, len(rows)),
			ScheduledReminderRecipientGroup:     group,
			ScheduledReminderScheduledDate:      at,
			ScheduledReminderCreatedBy:          actor,
			ScheduledReminderChannels:           req.Channels,
			ScheduledReminderIncludePaymentLink: req.IncludePaymentLink,
			ScheduledReminderRecurrence:         req.RecurrenceOrDefault(),
		}
		if group == model.GroupSelected {
			ids := make([]string, 0, len(rows))
			for _, p := range rows {
				ids = append(ids, p.PartialPaymentID.String())
			}
			m.ScheduledReminderRecipientIDs = ids
		}
		if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
			return dto.SendResult{}, err
		}
		out := dto.FromScheduled(m)
		return dto.SendResult{Scheduled: &out}, nil
	}

	rows, err := ResolveRecipients(ctx, s.DB, group, req.Recipients)
	if err != nil {
		return dto.SendResult{}, err
	}
	sent, err := s.dispatch(ctx, draft{
		Title:              strings.TrimSpace(req.Subject),
		Message:            strings.TrimSpace(req.Message),
		Channels:           req.Channels,
		IncludePaymentLink: req.IncludePaymentLink,
		SentBy:             actor,
	}, rows)
	if err != nil {
		return dto.SendResult{}, err
	}
	out := dto.FromSent(sent)
	return dto.SendResult{Sent: &out}, nil
}

// dispatch records the sent reminder with one recipient row per partial,
// bumps reminder counters on the partials, then delivers on every channel.
func (s *Service) dispatch(ctx context.Context, d draft, partials []partialModel.PartialPayment) (*model.SentReminder, error) {
	if len(partials) == 0 {
		return nil, ErrNoRecipients
	}
	now := s.Now()
	sent := &model.SentReminder{
		SentReminderTitle:              d.Title,
		SentReminderMessage:            d.Message,
		SentReminderRecipients:         len(partials),
		SentReminderSentDate:           now,
		SentReminderSentBy:             d.SentBy,
		SentReminderChannels:           d.Channels,
		SentReminderIncludePaymentLink: d.IncludePaymentLink,
		SentReminderStatus:             model.StatusSent,
		SentReminderFromScheduledID:    d.FromScheduledID,
	}
	recipients := make([]model.ReminderRecipient, 0, len(partials))
	partialIDs := make([]uuid.UUID, 0, len(partials))

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sent).Error; err != nil {
			return errors.Wrap(err, "create sent reminder")
		}
		for _, p := range partials {
			recipients = append(recipients, model.ReminderRecipient{
				ReminderRecipientID:        uuid.New(),
				ReminderRecipientReminder:  sent.SentReminderID,
				ReminderRecipientPartialID: p.PartialPaymentID,
				ReminderRecipientName:      p.PartialPaymentStudentName,
				ReminderRecipientEmail:     p.PartialPaymentEmail,
			})
			partialIDs = append(partialIDs, p.PartialPaymentID)
		}
		if err := tx.CreateInBatches(&recipients, 200).Error; err != nil {
			return errors.Wrap(err, "create reminder recipients")
		}
		return tx.Model(&partialModel.PartialPayment{}).
			Where("partial_payment_id IN ?", partialIDs).
			Updates(map[string]interface{}{
				"partial_payment_reminders_sent":     gorm.Expr("partial_payment_reminders_sent + 1"),
				"partial_payment_last_reminder_date": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	s.deliver(ctx, d, partials, recipients)
	return sent, nil
}

func (s *Service) deliver(ctx context.Context, d draft, partials []partialModel.PartialPayment, recipients []model.ReminderRecipient) {
	if s.Sender == nil {
		log.Printf("[REMINDER] no sender configured, %d recipient(s) recorded only", len(recipients))
		return
	}
	settings, err := settingsSvc.Load(ctx, s.DB)
	if err != nil {
		report.Error("REMINDER", err, nil)
		return
	}

	urls := s.linkURLs(ctx, partials)
	for i, p := range partials {
		rcp := recipients[i]
		text := personalize(d.Message, &p)
		linkURL := urls[p.PartialPaymentLinkID]
		if d.IncludePaymentLink && linkURL != "" {
			text += "\n\nPay here: " + s.trackURL("click", rcp.ReminderRecipientID)
		}
		for _, raw := range d.Channels {
			ch, ok := notify.ParseChannel(raw)
			if !ok {
				continue
			}
			if ch == notify.ChannelEmail && !settings.Notification.EmailEnabled {
				continue
			}
			if ch == notify.ChannelSMS && !settings.Notification.SMSEnabled {
				continue
			}
			msg := notify.Message{
				Channel: ch,
				To: notify.Recipient{
					Name:  p.PartialPaymentStudentName,
					Email: p.PartialPaymentEmail,
					Phone: firstNonEmpty(p.PartialPaymentParentPhone, p.PartialPaymentPhone),
					Ref:   rcp.ReminderRecipientID.String(),
				},
				Subject: d.Title,
				Text:    text,
			}
			if ch == notify.ChannelEmail {
				msg.HTML = s.emailHTML(text, rcp.ReminderRecipientID)
			}
			if err := s.Sender.Send(ctx, msg); err != nil {
				report.Error("REMINDER", errors.Wrapf(err, "deliver %s to %s", ch, p.PartialPaymentID), map[string]interface{}{
					"reminder_id": rcp.ReminderRecipientReminder.String(),
				})
			}
		}
	}
}

func (s *Service) linkURLs(ctx context.Context, partials []partialModel.PartialPayment) map[uuid.UUID]string {
	ids := make([]uuid.UUID, 0, len(partials))
	for _, p := range partials {
		ids = append(ids, p.PartialPaymentLinkID)
	}
	var links []linkModel.PaymentLink
	out := map[uuid.UUID]string{}
	if err := s.DB.WithContext(ctx).Unscoped().
		Select("payment_link_id", "payment_link_url").
		Where("payment_link_id IN ?", ids).
		Find(&links).Error; err != nil {
		log.Printf("[REMINDER] load link urls: %v", err)
		return out
	}
	for _, l := range links {
		out[l.PaymentLinkID] = l.PaymentLinkURL
	}
	return out
}

func (s *Service) trackURL(kind string, recipientID uuid.UUID) string {
	return fmt.Sprintf("%s/api/payments/reminders/track/%s/%s", s.TrackBaseURL, kind, recipientID)
}

func (s *Service) emailHTML(text string, recipientID uuid.UUID) string {
	body := strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
	return fmt.Sprintf(`<div style="font-family:sans-serif">%s</div><img src="%s" width="1" height="1" alt="">`,
		body, s.trackURL("open", recipientID))
}

// personalize fills {{name}}, {{paymentLink}}, {{remaining}}, {{total}} and {{dueDate}}.
func personalize(msg string, p *partialModel.PartialPayment) string {
	r := strings.NewReplacer(
		"{{name}}", p.PartialPaymentStudentName,
		"{{paymentLink}}", p.PartialPaymentLinkTitle,
		"{{remaining}}", strconv.FormatInt(p.PartialPaymentRemaining, 10),
		"{{total}}", strconv.FormatInt(p.PartialPaymentTotalAmount, 10),
		"{{dueDate}}", p.PartialPaymentDueDate.Format("2006-01-02"),
	)
	return r.Replace(msg)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

/* ===============================
   History
=================================*/

func (s *Service) ListSent(ctx context.Context) ([]model.SentReminder, error) {
	var rows []model.SentReminder
	err := s.DB.WithContext(ctx).Order("sent_reminder_sent_date DESC").Find(&rows).Error
	return rows, err
}

func (s *Service) ListScheduled(ctx context.Context) ([]model.ScheduledReminder, error) {
	var rows []model.ScheduledReminder
	err := s.DB.WithContext(ctx).Order("scheduled_reminder_scheduled_date ASC").Find(&rows).Error
	return rows, err
}

func (s *Service) Recipients(ctx context.Context, reminderID uuid.UUID) ([]model.ReminderRecipient, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&model.SentReminder{}).
		Where("sent_reminder_id = ?", reminderID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrReminderNotFound
	}
	var rows []model.ReminderRecipient
	err := s.DB.WithContext(ctx).
		Where("reminder_recipient_reminder_id = ?", reminderID).
		Order("reminder_recipient_name ASC").
		Find(&rows).Error
	return rows, err
}

// Resend re-dispatches a sent reminder to its original recipients that still
// have an open balance, recorded as a new sent reminder.
func (s *Service) Resend(ctx context.Context, reminderID uuid.UUID, actor string) (*model.SentReminder, error) {
	var orig model.SentReminder
	if err := s.DB.WithContext(ctx).First(&orig, "sent_reminder_id = ?", reminderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}
	var ids []string
	if err := s.DB.WithContext(ctx).Model(&model.ReminderRecipient{}).
		Where("reminder_recipient_reminder_id = ?", reminderID).
		Pluck("reminder_recipient_partial_id", &ids).Error; err != nil {
		return nil, err
	}
	rows, err := ResolveRecipients(ctx, s.DB, model.GroupSelected, ids)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, draft{
		Title:              orig.SentReminderTitle,
		Message:            orig.SentReminderMessage,
		Channels:           orig.SentReminderChannels,
		IncludePaymentLink: orig.SentReminderIncludePaymentLink,
		SentBy:             actor,
	}, rows)
}

// Cancel soft-deletes a scheduled reminder.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Delete(&model.ScheduledReminder{}, "scheduled_reminder_id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// RunDue dispatches every scheduled reminder whose time has come. One-time
// reminders are removed afterwards; recurring ones move to their next slot.
func (s *Service) RunDue(ctx context.Context, now time.Time) (int, error) {
	var due []model.ScheduledReminder
	if err := s.DB.WithContext(ctx).
		Where("scheduled_reminder_scheduled_date <= ?", now).
		Order("scheduled_reminder_scheduled_date ASC").
		Find(&due).Error; err != nil {
		return 0, err
	}

	dispatched := 0
	for i := range due {
		sr := &due[i]
		rows, err := ResolveRecipients(ctx, s.DB, sr.ScheduledReminderRecipientGroup, sr.ScheduledReminderRecipientIDs)
		switch {
		case errors.Is(err, ErrNoRecipients):
			log.Printf("[REMINDER] scheduled %s has no open recipients, skipped", sr.ScheduledReminderID)
		case err != nil:
			report.Error("REMINDER", err, map[string]interface{}{"scheduled_id": sr.ScheduledReminderID.String()})
			continue
		default:
			id := sr.ScheduledReminderID
			if _, err := s.dispatch(ctx, draft{
				Title:              sr.ScheduledReminderTitle,
				Message:            sr.ScheduledReminderMessage,
				Channels:           sr.ScheduledReminderChannels,
				IncludePaymentLink: sr.ScheduledReminderIncludePaymentLink,
				SentBy:             sr.ScheduledReminderCreatedBy,
				FromScheduledID:    &id,
			}, rows); err != nil {
				report.Error("REMINDER", err, map[string]interface{}{"scheduled_id": id.String()})
				continue
			}
			dispatched++
		}

		next, recurring := model.NextOccurrence(sr.ScheduledReminderRecurrence, sr.ScheduledReminderScheduledDate)
		if !recurring {
			if err := s.DB.WithContext(ctx).Delete(sr).Error; err != nil {
				report.Error("REMINDER", err, nil)
			}
			continue
		}
		for !next.After(now) {
			next, _ = model.NextOccurrence(sr.ScheduledReminderRecurrence, next)
		}
		if err := s.DB.WithContext(ctx).Model(sr).
			Update("scheduled_reminder_scheduled_date", next).Error; err != nil {
			report.Error("REMINDER", err, nil)
		}
	}
	return dispatched, nil
}

/* ===============================
   Engagement
=================================*/

// TrackOpen flags the recipient opened once and bumps the parent counter.
func (s *Service) TrackOpen(ctx context.Context, recipientID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := loadRecipient(tx, recipientID)
		if err != nil {
			return err
		}
		return markOpened(tx, r, s.Now())
	})
}

// TrackClick flags the click (and the implied open) and returns the link URL.
func (s *Service) TrackClick(ctx context.Context, recipientID uuid.UUID) (string, error) {
	var url string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := loadRecipient(tx, recipientID)
		if err != nil {
			return err
		}
		if err := markOpened(tx, r, s.Now()); err != nil {
			return err
		}
		if !r.ReminderRecipientClicked {
			if err := tx.Model(r).Update("reminder_recipient_clicked", true).Error; err != nil {
				return err
			}
			if err := bumpSent(tx, r.ReminderRecipientReminder, "sent_reminder_clicked", 1); err != nil {
				return err
			}
		}
		var link linkModel.PaymentLink
		err = tx.Unscoped().Model(&linkModel.PaymentLink{}).
			Joins("JOIN partial_payments ON partial_payments.partial_payment_link_id = payment_links.payment_link_id").
			Where("partial_payments.partial_payment_id = ?", r.ReminderRecipientPartialID).
			Select("payment_links.payment_link_url").
			First(&link).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		url = link.PaymentLinkURL
		return nil
	})
	return url, err
}

func loadRecipient(tx *gorm.DB, id uuid.UUID) (*model.ReminderRecipient, error) {
	var r model.ReminderRecipient
	if err := tx.First(&r, "reminder_recipient_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	return &r, nil
}

func markOpened(tx *gorm.DB, r *model.ReminderRecipient, now time.Time) error {
	if r.ReminderRecipientOpened {
		return nil
	}
	if err := tx.Model(r).Updates(map[string]interface{}{
		"reminder_recipient_opened":    true,
		"reminder_recipient_opened_at": now,
	}).Error; err != nil {
		return err
	}
	r.ReminderRecipientOpened = true
	r.ReminderRecipientOpenedAt = &now
	return bumpSent(tx, r.ReminderRecipientReminder, "sent_reminder_opened", 1)
}

func bumpSent(tx *gorm.DB, reminderID uuid.UUID, column string, n int) error {
	return tx.Model(&model.SentReminder{}).
		Where("sent_reminder_id = ?", reminderID).
		UpdateColumn(column, gorm.Expr(column+" + ?", n)).Error
}

// MarkPartialCompleted flags every recipient row of a fully paid partial and
// bumps the completed counter of their reminders. Runs inside the ledger tx.
func MarkPartialCompleted(tx *gorm.DB, partialID uuid.UUID) error {
	var rows []model.ReminderRecipient
	if err := tx.Where("reminder_recipient_partial_id = ? AND reminder_recipient_completed = ?", partialID, false).
		Find(&rows).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	perReminder := map[uuid.UUID]int{}
	for _, r := range rows {
		perReminder[r.ReminderRecipientReminder]++
	}
	if err := tx.Model(&model.ReminderRecipient{}).
		Where("reminder_recipient_partial_id = ? AND reminder_recipient_completed = ?", partialID, false).
		Update("reminder_recipient_completed", true).Error; err != nil {
		return err
	}
	for id, n := range perReminder {
		if err := bumpSent(tx, id, "sent_reminder_completed", n); err != nil {
			return err
		}
	}
	return nil
}
