package dto

import (
	"time"

	"github.com/google/uuid"

	model "tutorhub_backend/internals/features/payments/partials/model"
)

type ListQuery struct {
	Status        string `query:"status" validate:"omitempty,oneof=Pending Overdue"`
	PaymentLinkID string `query:"paymentLinkId" validate:"omitempty,uuid"`
	Search        string `query:"search" validate:"max=120"`
}

type PartialPayment struct {
	ID               uuid.UUID  `json:"id"`
	StudentName      string     `json:"studentName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	PaymentLink      string     `json:"paymentLink"`
	PaymentLinkID    uuid.UUID  `json:"paymentLinkId"`
	AmountPaid       int64      `json:"amountPaid"`
	RemainingAmount  int64      `json:"remainingAmount"`
	TotalAmount      int64      `json:"totalAmount"`
	LastPaymentDate  time.Time  `json:"lastPaymentDate"`
	DueDate          time.Time  `json:"dueDate"`
	Status           string     `json:"status"`
	RemindersSent    int        `json:"remindersSent"`
	LastReminderDate *time.Time `json:"lastReminderDate,omitempty"`
	StudentID        string     `json:"studentId,omitempty"`
	Class            string     `json:"class,omitempty"`
	ParentPhone      string     `json:"parentPhone,omitempty"`
}

func FromModel(m *model.PartialPayment) PartialPayment {
	return PartialPayment{
		ID:               m.PartialPaymentID,
		StudentName:      m.PartialPaymentStudentName,
		Email:            m.PartialPaymentEmail,
		Phone:            m.PartialPaymentPhone,
		PaymentLink:      m.PartialPaymentLinkTitle,
		PaymentLinkID:    m.PartialPaymentLinkID,
		AmountPaid:       m.PartialPaymentAmountPaid,
		RemainingAmount:  m.PartialPaymentRemaining,
		TotalAmount:      m.PartialPaymentTotalAmount,
		LastPaymentDate:  m.PartialPaymentLastPaymentAt,
		DueDate:          m.PartialPaymentDueDate,
		Status:           string(m.PartialPaymentStatus),
		RemindersSent:    m.PartialPaymentRemindersSent,
		LastReminderDate: m.PartialPaymentLastReminder,
		StudentID:        m.PartialPaymentStudentID,
		Class:            m.PartialPaymentClass,
		ParentPhone:      m.PartialPaymentParentPhone,
	}
}

func FromModels(rows []model.PartialPayment) []PartialPayment {
	out := make([]PartialPayment, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
