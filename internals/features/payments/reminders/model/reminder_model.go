// file: internals/features/payments/reminders/model/reminder_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Recurrence string

const (
	RecurrenceOneTime Recurrence = "One-time"
	RecurrenceDaily   Recurrence = "Daily"
	RecurrenceWeekly  Recurrence = "Weekly"
	RecurrenceMonthly Recurrence = "Monthly"
)

type RecipientGroup string

const (
	GroupAllPending RecipientGroup = "all_pending"
	GroupAllOverdue RecipientGroup = "all_overdue"
	GroupSelected   RecipientGroup = "selected"
)

const (
	StatusSent      = "Sent"
	StatusScheduled = "Scheduled"

	RecipientOpened    = "Opened"
	RecipientNotOpened = "Not Opened"
)

/* ===============================
   Sent reminders
=================================*/

type SentReminder struct {
	SentReminderID                 uuid.UUID                   `gorm:"column:sent_reminder_id;type:uuid;primaryKey" json:"id"`
	SentReminderTitle              string                      `gorm:"column:sent_reminder_title;type:varchar(200);not null" json:"title"`
	SentReminderMessage            string                      `gorm:"column:sent_reminder_message;type:text;not null" json:"message"`
	SentReminderRecipients         int                         `gorm:"column:sent_reminder_recipients;not null" json:"recipients"`
	SentReminderSentDate           time.Time                   `gorm:"column:sent_reminder_sent_date;not null;index" json:"sentDate"`
	SentReminderSentBy             string                      `gorm:"column:sent_reminder_sent_by;type:varchar(120)" json:"sentBy"`
	SentReminderChannels           datatypes.JSONSlice[string] `gorm:"column:sent_reminder_channels;type:jsonb" json:"channels"`
	SentReminderIncludePaymentLink bool                        `gorm:"column:sent_reminder_include_payment_link" json:"includePaymentLink"`
	SentReminderOpened             int                         `gorm:"column:sent_reminder_opened;not null;default:0" json:"opened"`
	SentReminderClicked            int                         `gorm:"column:sent_reminder_clicked;not null;default:0" json:"clicked"`
	SentReminderCompleted          int                         `gorm:"column:sent_reminder_completed;not null;default:0" json:"completed"`
	SentReminderStatus             string                      `gorm:"column:sent_reminder_status;type:varchar(20);not null;default:'Sent'" json:"status"`
	SentReminderFromScheduledID    *uuid.UUID                  `gorm:"column:sent_reminder_from_scheduled_id;type:uuid" json:"fromScheduledId,omitempty"`

	SentReminderCreatedAt time.Time      `gorm:"column:sent_reminder_created_at;autoCreateTime" json:"-"`
	SentReminderDeletedAt gorm.DeletedAt `gorm:"column:sent_reminder_deleted_at;index" json:"-"`
}

func (SentReminder) TableName() string { return "sent_reminders" }

func (s *SentReminder) BeforeCreate(tx *gorm.DB) error {
	if s.SentReminderID == uuid.Nil {
		s.SentReminderID = uuid.New()
	}
	if s.SentReminderStatus == "" {
		s.SentReminderStatus = StatusSent
	}
	return nil
}

// Rates derives open/click/completion percentages, each clamped to [0,100].
func (s *SentReminder) Rates() (open, click, completion float64) {
	return Rate(s.SentReminderOpened, s.SentReminderRecipients),
		Rate(s.SentReminderClicked, s.SentReminderRecipients),
		Rate(s.SentReminderCompleted, s.SentReminderRecipients)
}

func Rate(n, total int) float64 {
	if total <= 0 || n <= 0 {
		return 0
	}
	r := float64(n) * 100 / float64(total)
	if r > 100 {
		return 100
	}
	// one decimal
	return float64(int64(r*10+0.5)) / 10
}

/* ===============================
   Scheduled reminders
=================================*/

type ScheduledReminder struct {
	ScheduledReminderID                 uuid.UUID                   `gorm:"column:scheduled_reminder_id;type:uuid;primaryKey" json:"id"`
	ScheduledReminderTitle              string                      `gorm:"column:scheduled_reminder_title;type:varchar(200);not null" json:"title"`
	ScheduledReminderMessage            string                      `gorm:"column:scheduled_reminder_message;type:text;not null" json:"message"`
	ScheduledReminderRecipients         string                      `gorm:"column:scheduled_reminder_recipients;type:varchar(200)" json:"recipients"`
	ScheduledReminderRecipientGroup     RecipientGroup              `gorm:"column:scheduled_reminder_recipient_group;type:varchar(20);not null" json:"recipientGroup"`
	ScheduledReminderRecipientIDs       datatypes.JSONSlice[string] `gorm:"column:scheduled_reminder_recipient_ids;type:jsonb" json:"recipientIds"`
	ScheduledReminderScheduledDate      time.Time                   `gorm:"column:scheduled_reminder_scheduled_date;not null;index" json:"scheduledDate"`
	ScheduledReminderCreatedBy          string                      `gorm:"column:scheduled_reminder_created_by;type:varchar(120)" json:"createdBy"`
	ScheduledReminderChannels           datatypes.JSONSlice[string] `gorm:"column:scheduled_reminder_channels;type:jsonb" json:"channels"`
	ScheduledReminderIncludePaymentLink bool                        `gorm:"column:scheduled_reminder_include_payment_link" json:"includePaymentLink"`
	ScheduledReminderStatus             string                      `gorm:"column:scheduled_reminder_status;type:varchar(20);not null;default:'Scheduled'" json:"status"`
	ScheduledReminderRecurrence         Recurrence                  `gorm:"column:scheduled_reminder_recurrence;type:varchar(20);not null;default:'One-time'" json:"recurrence"`

	ScheduledReminderCreatedAt time.Time      `gorm:"column:scheduled_reminder_created_at;autoCreateTime" json:"-"`
	ScheduledReminderDeletedAt gorm.DeletedAt `gorm:"column:scheduled_reminder_deleted_at;index" json:"-"`
}

func (ScheduledReminder) TableName() string { return "scheduled_reminders" }

func (s *ScheduledReminder) BeforeCreate(tx *gorm.DB) error {
	if s.ScheduledReminderID == uuid.Nil {
		s.ScheduledReminderID = uuid.New()
	}
	if s.ScheduledReminderStatus == "" {
		s.ScheduledReminderStatus = StatusScheduled
	}
	if s.ScheduledReminderRecurrence == "" {
		s.ScheduledReminderRecurrence = RecurrenceOneTime
	}
	return nil
}

// NextOccurrence returns the following run after at, false for One-time.
func NextOccurrence(r Recurrence, at time.Time) (time.Time, bool) {
	switch r {
	case RecurrenceDaily:
		return at.AddDate(0, 0, 1), true
	case RecurrenceWeekly:
		return at.AddDate(0, 0, 7), true
	case RecurrenceMonthly:
		return at.AddDate(0, 1, 0), true
	}
	return time.Time{}, false
}

/* ===============================
   Recipients
=================================*/

type ReminderRecipient struct {
	ReminderRecipientID        uuid.UUID  `gorm:"column:reminder_recipient_id;type:uuid;primaryKey" json:"id"`
	ReminderRecipientReminder  uuid.UUID  `gorm:"column:reminder_recipient_reminder_id;type:uuid;not null;index" json:"reminderId"`
	ReminderRecipientPartialID uuid.UUID  `gorm:"column:reminder_recipient_partial_id;type:uuid;not null;index" json:"partialPaymentId"`
	ReminderRecipientName      string     `gorm:"column:reminder_recipient_name;type:varchar(160)" json:"name"`
	ReminderRecipientEmail     string     `gorm:"column:reminder_recipient_email;type:varchar(160)" json:"email"`
	ReminderRecipientOpened    bool       `gorm:"column:reminder_recipient_opened;not null;default:false" json:"-"`
	ReminderRecipientClicked   bool       `gorm:"column:reminder_recipient_clicked;not null;default:false" json:"clicked"`
	ReminderRecipientCompleted bool       `gorm:"column:reminder_recipient_completed;not null;default:false" json:"completed"`
	ReminderRecipientOpenedAt  *time.Time `gorm:"column:reminder_recipient_opened_at" json:"openedAt,omitempty"`
	ReminderRecipientCreatedAt time.Time  `gorm:"column:reminder_recipient_created_at;autoCreateTime" json:"-"`
}

func (ReminderRecipient) TableName() string { return "reminder_recipients" }

func (r *ReminderRecipient) BeforeCreate(tx *gorm.DB) error {
	if r.ReminderRecipientID == uuid.Nil {
		r.ReminderRecipientID = uuid.New()
	}
	return nil
}

// Status is "Opened" or "Not Opened".
func (r *ReminderRecipient) Status() string {
	if r.ReminderRecipientOpened {
		return RecipientOpened
	}
	return RecipientNotOpened
}
