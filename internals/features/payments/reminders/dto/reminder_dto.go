package dto

import (
	"time"

	"github.com/google/uuid"

	model "tutorhub_backend/internals/features/payments/reminders/model"
)

// SendRemindersRequest is the body of POST /payments/reminders.
type SendRemindersRequest struct {
	Recipients         []string `json:"recipients" validate:"dive,uuid"`
	Subject            string   `json:"subject" validate:"required,notblank,max=200"`
	Message            string   `json:"message" validate:"required,notblank,max=5000"`
	Channels           []string `json:"channels" validate:"required,min=1,dive,oneof=Email SMS In-App Push"`
	IncludePaymentLink bool     `json:"includePaymentLink"`
	ScheduleType       string   `json:"scheduleType" validate:"required,oneof=now later"`
	ScheduleDate       string   `json:"scheduleDate" validate:"required_if=ScheduleType later,omitempty,datetime=2006-01-02"`
	ScheduleTime       string   `json:"scheduleTime" validate:"required_if=ScheduleType later,omitempty,datetime=15:04"`
	Recurrence         string   `json:"recurrence" validate:"omitempty,oneof=One-time Daily Weekly Monthly"`
	RecipientGroup     string   `json:"recipientGroup" validate:"omitempty,oneof=all_pending all_overdue selected"`
}

func (r *SendRemindersRequest) Group() model.RecipientGroup {
	if r.RecipientGroup == "" {
		return model.GroupSelected
	}
	return model.RecipientGroup(r.RecipientGroup)
}

func (r *SendRemindersRequest) RecurrenceOrDefault() model.Recurrence {
	if r.Recurrence == "" {
		return model.RecurrenceOneTime
	}
	return model.Recurrence(r.Recurrence)
}

// ScheduledAt combines date and time in loc.
func (r *SendRemindersRequest) ScheduledAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", r.ScheduleDate+" "+r.ScheduleTime, loc)
}

/* ===============================
   Responses
=================================*/

type SentReminder struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title"`
	Message            string    `json:"message"`
	Recipients         int       `json:"recipients"`
	SentDate           time.Time `json:"sentDate"`
	SentBy             string    `json:"sentBy"`
	Channels           []string  `json:"channels"`
	IncludePaymentLink bool      `json:"includePaymentLink"`
	Opened             int       `json:"opened"`
	Clicked            int       `json:"clicked"`
	Completed          int       `json:"completed"`
	OpenRate           float64   `json:"openRate"`
	ClickRate          float64   `json:"clickRate"`
	CompletionRate     float64   `json:"completionRate"`
	Status             string    `json:"status"`
}

func FromSent(m *model.SentReminder) SentReminder {
	open, click, done := m.Rates()
	return SentReminder{
		ID:                 m.SentReminderID,
		Title:              m.SentReminderTitle,
		Message:            m.SentReminderMessage,
		Recipients:         m.SentReminderRecipients,
		SentDate:           m.SentReminderSentDate,
		SentBy:             m.SentReminderSentBy,
		Channels:           nonNil(m.SentReminderChannels),
		IncludePaymentLink: m.SentReminderIncludePaymentLink,
		Opened:             m.SentReminderOpened,
		Clicked:            m.SentReminderClicked,
		Completed:          m.SentReminderCompleted,
		OpenRate:           open,
		ClickRate:          click,
		CompletionRate:     done,
		Status:             m.SentReminderStatus,
	}
}

func FromSentList(rows []model.SentReminder) []SentReminder {
	out := make([]SentReminder, 0, len(rows))
	for i := range rows {
		out = append(out, FromSent(&rows[i]))
	}
	return out
}

type ScheduledReminder struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title"`
	Message            string    `json:"message"`
	Recipients         string    `json:"recipients"`
	RecipientGroup     string    `json:"recipientGroup"`
	ScheduledDate      time.Time `json:"scheduledDate"`
	CreatedBy          string    `json:"createdBy"`
	Channels           []string  `json:"channels"`
	IncludePaymentLink bool      `json:"includePaymentLink"`
	Status             string    `json:"status"`
	Recurrence         string    `json:"recurrence"`
}

func FromScheduled(m *model.ScheduledReminder) ScheduledReminder {
	return ScheduledReminder{
		ID:                 m.ScheduledReminderID,
		Title:              m.ScheduledReminderTitle,
		Message:            m.ScheduledReminderMessage,
		Recipients:         m.ScheduledReminderRecipients,
		RecipientGroup:     string(m.ScheduledReminderRecipientGroup),
		ScheduledDate:      m.ScheduledReminderScheduledDate,
		CreatedBy:          m.ScheduledReminderCreatedBy,
		Channels:           nonNil(m.ScheduledReminderChannels),
		IncludePaymentLink: m.ScheduledReminderIncludePaymentLink,
		Status:             m.ScheduledReminderStatus,
		Recurrence:         string(m.ScheduledReminderRecurrence),
	}
}

func FromScheduledList(rows []model.ScheduledReminder) []ScheduledReminder {
	out := make([]ScheduledReminder, 0, len(rows))
	for i := range rows {
		out = append(out, FromScheduled(&rows[i]))
	}
	return out
}

type Recipient struct {
	ID               uuid.UUID  `json:"id"`
	PartialPaymentID uuid.UUID  `json:"partialPaymentId"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Status           string     `json:"status"`
	OpenedAt         *time.Time `json:"openedAt,omitempty"`
	Clicked          bool       `json:"clicked"`
	Completed        bool       `json:"completed"`
}

func FromRecipients(rows []model.ReminderRecipient) []Recipient {
	out := make([]Recipient, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		out = append(out, Recipient{
			ID:               r.ReminderRecipientID,
			PartialPaymentID: r.ReminderRecipientPartialID,
			Name:             r.ReminderRecipientName,
			Email:            r.ReminderRecipientEmail,
			Status:           r.Status(),
			OpenedAt:         r.ReminderRecipientOpenedAt,
			Clicked:          r.ReminderRecipientClicked,
			Completed:        r.ReminderRecipientCompleted,
		})
	}
	return out
}

// SendResult carries whichever record the request produced.
type SendResult struct {
	Sent      *SentReminder      `json:"sent,omitempty"`
	Scheduled *ScheduledReminder `json:"scheduled,omitempty"`
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
