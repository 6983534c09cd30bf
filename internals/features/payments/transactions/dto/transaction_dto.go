// file: internals/features/payments/transactions/dto/transaction_dto.go
package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	model "tutorhub_backend/internals/features/payments/transactions/model"
)

/* =========================================================
   RESPONSE
   ========================================================= */

type Transaction struct {
	ID                uuid.UUID              `json:"id"`
	StudentName       string                 `json:"studentName"`
	Email             string                 `json:"email"`
	Amount            int64                  `json:"amount"`
	Status            string                 `json:"status"`
	Date              time.Time              `json:"date"`
	PaymentLink       string                 `json:"paymentLink"`
	PaymentLinkID     uuid.UUID              `json:"paymentLinkId"`
	Method            string                 `json:"method"`
	Reference         string                 `json:"reference"`
	IsPartial         bool                   `json:"isPartial"`
	RemainingAmount   int64                  `json:"remainingAmount"`
	PartialPaymentID  *uuid.UUID             `json:"partialPaymentId,omitempty"`
	StudentID         string                 `json:"studentId,omitempty"`
	Class             string                 `json:"class,omitempty"`
	ParentPhone       string                 `json:"parentPhone,omitempty"`
	CustomFieldValues map[string]interface{} `json:"customFieldValues,omitempty"`
}

func FromModel(m *model.Transaction) Transaction {
	return Transaction{
		ID:                m.TransactionID,
		StudentName:       m.TransactionStudentName,
		Email:             m.TransactionEmail,
		Amount:            m.TransactionAmount,
		Status:            string(m.TransactionStatus),
		Date:              m.TransactionDate,
		PaymentLink:       m.TransactionLinkTitle,
		PaymentLinkID:     m.TransactionLinkID,
		Method:            m.TransactionMethod,
		Reference:         m.TransactionReference,
		IsPartial:         m.TransactionIsPartial,
		RemainingAmount:   m.TransactionRemaining,
		PartialPaymentID:  m.TransactionPartialID,
		StudentID:         m.TransactionStudentID,
		Class:             m.TransactionClass,
		ParentPhone:       m.TransactionParentPhone,
		CustomFieldValues: m.TransactionCustomFields,
	}
}

func FromModels(rows []model.Transaction) []Transaction {
	out := make([]Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}

/* =========================================================
   FILTERS
   ========================================================= */

// Filters are AND-combined. DateFrom/DateTo are inclusive calendar days.
type Filters struct {
	Status        string `json:"status" query:"status" validate:"omitempty,oneof=Completed Partial Failed Pending"`
	Search        string `json:"search" query:"search" validate:"max=120"`
	DateFrom      string `json:"dateFrom" query:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo        string `json:"dateTo" query:"dateTo" validate:"omitempty,datetime=2006-01-02"`
	PaymentLinkID string `json:"paymentLinkId" query:"paymentLinkId" validate:"omitempty,uuid"`
}

type ListQuery struct {
	Filters
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

/* =========================================================
   REQUESTS
   ========================================================= */

type RecordPaymentRequest struct {
	PaymentLinkID     uuid.UUID              `json:"paymentLinkId" validate:"required"`
	StudentName       string                 `json:"studentName" validate:"required,notblank,max=160"`
	Email             string                 `json:"email" validate:"required_without=StudentID,omitempty,email,max=160"`
	Phone             string                 `json:"phone" validate:"max=40"`
	StudentID         string                 `json:"studentId" validate:"max=80"`
	Class             string                 `json:"class" validate:"max=80"`
	ParentPhone       string                 `json:"parentPhone" validate:"max=40"`
	Amount            int64                  `json:"amount" validate:"gt=0"`
	Method            string                 `json:"method" validate:"required,max=60"`
	Reference         string                 `json:"reference" validate:"max=80"`
	CustomFieldValues map[string]interface{} `json:"customFieldValues"`
}

type SendReceiptRequest struct {
	TransactionID  uuid.UUID `json:"transactionId" validate:"required"`
	Email          string    `json:"email" validate:"omitempty,email"`
	IncludeDetails *bool     `json:"includeDetails"`
	Message        string    `json:"message" validate:"max=2000"`
}

func (r *SendReceiptRequest) Details() bool {
	return r.IncludeDetails == nil || *r.IncludeDetails
}

type ExportRequest struct {
	Format  string  `json:"format" validate:"required,oneof=csv xlsx"`
	Filters Filters `json:"filters"`
}

type ExportResponse struct {
	URL string `json:"url"`
}

/* =========================================================
   CHECKOUT (public)
   ========================================================= */

type CheckoutRequest struct {
	StudentName       string                 `json:"studentName" validate:"required,notblank,max=160"`
	Email             string                 `json:"email" validate:"required,email,max=160"`
	Phone             string                 `json:"phone" validate:"max=40"`
	StudentID         string                 `json:"studentId" validate:"max=80"`
	Class             string                 `json:"class" validate:"max=80"`
	ParentPhone       string                 `json:"parentPhone" validate:"max=40"`
	Amount            int64                  `json:"amount" validate:"gt=0"`
	Method            string                 `json:"method" validate:"max=60"`
	CustomFieldValues map[string]interface{} `json:"customFieldValues"`
}

type CheckoutResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
	Reference   string `json:"reference"`
	Amount      int64  `json:"amount"`
	Fee         int64  `json:"fee"`
}

// MidtransNotification is the HTTP notification body Midtrans posts.
type MidtransNotification struct {
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	OrderID           string `json:"order_id"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
	TransactionTime   string `json:"transaction_time"`
}

func (n *MidtransNotification) Meta() map[string]interface{} {
	return map[string]interface{}{
		"transaction_id":   n.TransactionID,
		"payment_type":     n.PaymentType,
		"fraud_status":     n.FraudStatus,
		"status_code":      n.StatusCode,
		"gross_amount":     n.GrossAmount,
		"transaction_time": n.TransactionTime,
	}
}

// GatewayOutcome buckets a Midtrans status into settle, fail or wait.
type GatewayOutcome int

const (
	GatewayWait GatewayOutcome = iota
	GatewaySettle
	GatewayFail
)

func (n *MidtransNotification) Outcome() GatewayOutcome {
	switch strings.ToLower(n.TransactionStatus) {
	case "capture":
		if n.FraudStatus == "" || strings.EqualFold(n.FraudStatus, "accept") {
			return GatewaySettle
		}
		if strings.EqualFold(n.FraudStatus, "deny") {
			return GatewayFail
		}
		return GatewayWait
	case "settlement":
		return GatewaySettle
	case "deny", "cancel", "expire", "failure":
		return GatewayFail
	}
	return GatewayWait
}
