// file: internals/features/payments/partials/model/partial_payment_model.go
package model

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PartialStatus string

const (
	PartialPending PartialStatus = "Pending"
	PartialOverdue PartialStatus = "Overdue"
)

var ErrOverpayment = fiber.NewError(fiber.StatusBadRequest, "payment exceeds the remaining amount")

// PartialPayment tracks one payer's outstanding balance on a link.
// Open while remaining > 0; CompletedAt is set once fully paid.
type PartialPayment struct {
	PartialPaymentID            uuid.UUID     `gorm:"column:partial_payment_id;type:uuid;primaryKey" json:"id"`
	PartialPaymentLinkID        uuid.UUID     `gorm:"column:partial_payment_link_id;type:uuid;not null;index" json:"paymentLinkId"`
	PartialPaymentLinkTitle     string        `gorm:"column:partial_payment_link_title;type:varchar(200)" json:"paymentLink"`
	PartialPaymentStudentName   string        `gorm:"column:partial_payment_student_name;type:varchar(160);not null" json:"studentName"`
	PartialPaymentEmail         string        `gorm:"column:partial_payment_email;type:varchar(160);index" json:"email"`
	PartialPaymentPhone         string        `gorm:"column:partial_payment_phone;type:varchar(40)" json:"phone"`
	PartialPaymentStudentID     string        `gorm:"column:partial_payment_student_id;type:varchar(80)" json:"studentId"`
	PartialPaymentClass         string        `gorm:"column:partial_payment_class;type:varchar(80)" json:"class"`
	PartialPaymentParentPhone   string        `gorm:"column:partial_payment_parent_phone;type:varchar(40)" json:"parentPhone"`
	PartialPaymentAmountPaid    int64         `gorm:"column:partial_payment_amount_paid;not null" json:"amountPaid"`
	PartialPaymentRemaining     int64         `gorm:"column:partial_payment_remaining_amount;not null" json:"remainingAmount"`
	PartialPaymentTotalAmount   int64         `gorm:"column:partial_payment_total_amount;not null" json:"totalAmount"`
	PartialPaymentLastPaymentAt time.Time     `gorm:"column:partial_payment_last_payment_date" json:"lastPaymentDate"`
	PartialPaymentDueDate       time.Time     `gorm:"column:partial_payment_due_date;index" json:"dueDate"`
	PartialPaymentStatus        PartialStatus `gorm:"column:partial_payment_status;type:varchar(20);not null;default:'Pending';index" json:"status"`
	PartialPaymentRemindersSent int           `gorm:"column:partial_payment_reminders_sent;not null;default:0" json:"remindersSent"`
	PartialPaymentLastReminder  *time.Time    `gorm:"column:partial_payment_last_reminder_date" json:"lastReminderDate,omitempty"`
	PartialPaymentCompletedAt   *time.Time    `gorm:"column:partial_payment_completed_at;index" json:"completedAt,omitempty"`

	PartialPaymentCreatedAt time.Time      `gorm:"column:partial_payment_created_at;autoCreateTime" json:"createdAt"`
	PartialPaymentUpdatedAt time.Time      `gorm:"column:partial_payment_updated_at;autoUpdateTime" json:"updatedAt"`
	PartialPaymentDeletedAt gorm.DeletedAt `gorm:"column:partial_payment_deleted_at;index" json:"-"`
}

func (PartialPayment) TableName() string { return "partial_payments" }

func (p *PartialPayment) BeforeCreate(tx *gorm.DB) error {
	if p.PartialPaymentID == uuid.Nil {
		p.PartialPaymentID = uuid.New()
	}
	if p.PartialPaymentStatus == "" {
		p.PartialPaymentStatus = PartialPending
	}
	return nil
}

func (p *PartialPayment) IsOpen() bool {
	return p.PartialPaymentCompletedAt == nil && p.PartialPaymentRemaining > 0
}

// ApplyPayment moves amount from remaining to paid. It keeps
// amountPaid + remainingAmount = totalAmount and reports completion.
func (p *PartialPayment) ApplyPayment(amount int64, at time.Time) (completed bool, err error) {
	if amount <= 0 {
		return false, fiber.NewError(fiber.StatusBadRequest, "amount must be positive")
	}
	if amount > p.PartialPaymentRemaining {
		return false, ErrOverpayment
	}
	p.PartialPaymentAmountPaid += amount
	p.PartialPaymentRemaining -= amount
	p.PartialPaymentLastPaymentAt = at
	if p.PartialPaymentRemaining == 0 {
		p.PartialPaymentCompletedAt = &at
		p.PartialPaymentStatus = PartialPending
		return true, nil
	}
	return false, nil
}

// DeriveStatus is Overdue once now ≥ dueDate + overdueAfterDays with a balance left.
func DeriveStatus(remaining int64, due time.Time, overdueAfterDays int, now time.Time) PartialStatus {
	if remaining > 0 && !now.Before(OverdueAt(due, overdueAfterDays)) {
		return PartialOverdue
	}
	return PartialPending
}

func OverdueAt(due time.Time, overdueAfterDays int) time.Time {
	return due.AddDate(0, 0, overdueAfterDays)
}

// DueDateFor picks the link expiry when set, else firstPayment + dueDays.
func DueDateFor(linkExpiry *time.Time, firstPayment time.Time, dueDays int) time.Time {
	if linkExpiry != nil {
		return *linkExpiry
	}
	if dueDays <= 0 {
		dueDays = 30
	}
	return firstPayment.AddDate(0, 0, dueDays)
}

// Counts is pending/overdue over a fetched list.
type Counts struct {
	PendingCount int `json:"pendingCount"`
	OverdueCount int `json:"overdueCount"`
}

func CountByStatus(items []PartialPayment) Counts {
	var c Counts
	for _, p := range items {
		switch p.PartialPaymentStatus {
		case PartialPending:
			c.PendingCount++
		case PartialOverdue:
			c.OverdueCount++
		}
	}
	return c
}
