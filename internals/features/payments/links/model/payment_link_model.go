// file: internals/features/payments/links/model/payment_link_model.go
package model

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LinkStatus string

const (
	LinkActive    LinkStatus = "Active"
	LinkPaused    LinkStatus = "Paused"
	LinkCompleted LinkStatus = "Completed"
	LinkExpired   LinkStatus = "Expired"
)

func (s LinkStatus) Valid() bool {
	switch s {
	case LinkActive, LinkPaused, LinkCompleted, LinkExpired:
		return true
	}
	return false
}

func (s LinkStatus) Terminal() bool {
	return s == LinkCompleted || s == LinkExpired
}

const (
	MinPartialPercentage = 10
	MaxPartialPercentage = 90
)

var (
	ErrTerminalStatus    = fiber.NewError(fiber.StatusConflict, "payment link is completed or expired; status can no longer change")
	ErrInvalidTransition = fiber.NewError(fiber.StatusConflict, "status transition not allowed")
	ErrLinkNotPayable    = fiber.NewError(fiber.StatusConflict, "payment link is not accepting payments")
)

type PaymentLink struct {
	PaymentLinkID          uuid.UUID  `gorm:"column:payment_link_id;type:uuid;primaryKey" json:"id"`
	PaymentLinkTitle       string     `gorm:"column:payment_link_title;type:varchar(200);not null" json:"title"`
	PaymentLinkDescription string     `gorm:"column:payment_link_description;type:text" json:"description"`
	PaymentLinkAmount      int64      `gorm:"column:payment_link_amount;not null" json:"amount"`
	PaymentLinkStatus      LinkStatus `gorm:"column:payment_link_status;type:varchar(20);not null;default:'Active';index" json:"status"`
	PaymentLinkSlug        string     `gorm:"column:payment_link_slug;type:varchar(160);not null;uniqueIndex" json:"slug"`
	PaymentLinkURL         string     `gorm:"column:payment_link_url;type:text" json:"url"`

	PaymentLinkAllowPartial      bool   `gorm:"column:payment_link_allow_partial;not null;default:false" json:"allowPartialPayment"`
	PaymentLinkPartialPercentage *int   `gorm:"column:payment_link_partial_percentage" json:"partialPercentage,omitempty"`
	PaymentLinkMinimumPayment    *int64 `gorm:"column:payment_link_minimum_payment" json:"minimumPayment,omitempty"`
	PaymentLinkMaxPayments       int    `gorm:"column:payment_link_max_payments;not null;default:0" json:"maxPayments"`

	PaymentLinkCompletedPayments int   `gorm:"column:payment_link_completed_payments;not null;default:0" json:"completedPayments"`
	PaymentLinkPartialPayments   int   `gorm:"column:payment_link_partial_payments;not null;default:0" json:"partialPayments"`
	PaymentLinkCollected         int   `gorm:"column:payment_link_collected;not null;default:0" json:"collected"`
	PaymentLinkPendingAmount     int64 `gorm:"column:payment_link_pending_amount;not null;default:0" json:"pendingAmount"`
	PaymentLinkTotalAmount       int64 `gorm:"column:payment_link_total_amount;not null;default:0" json:"totalAmount"`

	PaymentLinkCustomFields datatypes.JSONSlice[string] `gorm:"column:payment_link_custom_fields;type:jsonb" json:"customFields"`
	PaymentLinkCreatedBy    string                      `gorm:"column:payment_link_created_by;type:varchar(120)" json:"createdBy"`

	PaymentLinkExpiresAt *time.Time     `gorm:"column:payment_link_expires_at;index" json:"expiresAt,omitempty"`
	PaymentLinkCreatedAt time.Time      `gorm:"column:payment_link_created_at;autoCreateTime" json:"createdAt"`
	PaymentLinkUpdatedAt time.Time      `gorm:"column:payment_link_updated_at;autoUpdateTime" json:"updatedAt"`
	PaymentLinkDeletedAt gorm.DeletedAt `gorm:"column:payment_link_deleted_at;index" json:"-"`
}

func (PaymentLink) TableName() string { return "payment_links" }

func (l *PaymentLink) BeforeCreate(tx *gorm.DB) error {
	if l.PaymentLinkID == uuid.Nil {
		l.PaymentLinkID = uuid.New()
	}
	if l.PaymentLinkStatus == "" {
		l.PaymentLinkStatus = LinkActive
	}
	return nil
}

// MinimumPaymentFor is round(amount × pct / 100), half away from zero.
func MinimumPaymentFor(amount int64, pct int) int64 {
	n := amount * int64(pct)
	if n >= 0 {
		return (n + 50) / 100
	}
	return -((-n + 50) / 100)
}

// ApplyPartialPolicy keeps minimumPayment in step with amount/percentage and
// clears both when partial payments are off.
func (l *PaymentLink) ApplyPartialPolicy() {
	if !l.PaymentLinkAllowPartial || l.PaymentLinkPartialPercentage == nil {
		l.PaymentLinkPartialPercentage = nil
		l.PaymentLinkMinimumPayment = nil
		return
	}
	min := MinimumPaymentFor(l.PaymentLinkAmount, *l.PaymentLinkPartialPercentage)
	l.PaymentLinkMinimumPayment = &min
}

func (l *PaymentLink) IsExpiredAt(now time.Time) bool {
	return l.PaymentLinkExpiresAt != nil && !now.Before(*l.PaymentLinkExpiresAt)
}

// IsPayable reports whether the link takes payments from new payers.
func (l *PaymentLink) IsPayable(now time.Time) bool {
	return l.PaymentLinkStatus == LinkActive && !l.IsExpiredAt(now)
}

// NextToggleStatus is the manual toggle: Active→Paused, Paused→Active
// (or Expired once past expiry). Completed and Expired never change.
func (l *PaymentLink) NextToggleStatus(now time.Time) (LinkStatus, error) {
	switch l.PaymentLinkStatus {
	case LinkActive:
		return LinkPaused, nil
	case LinkPaused:
		if l.IsExpiredAt(now) {
			return LinkExpired, nil
		}
		return LinkActive, nil
	case LinkCompleted, LinkExpired:
		return "", ErrTerminalStatus
	}
	return "", ErrInvalidTransition
}

// CanTransition checks an explicit status change.
func CanTransition(from, to LinkStatus) error {
	if from.Terminal() {
		if from == to {
			return nil
		}
		return ErrTerminalStatus
	}
	switch {
	case from == to:
		return nil
	case from == LinkActive && (to == LinkPaused || to == LinkCompleted || to == LinkExpired):
		return nil
	case from == LinkPaused && (to == LinkActive || to == LinkCompleted || to == LinkExpired):
		return nil
	}
	return ErrInvalidTransition
}

// RecountCollected restores collected = completedPayments + partialPayments.
func (l *PaymentLink) RecountCollected() {
	l.PaymentLinkCollected = l.PaymentLinkCompletedPayments + l.PaymentLinkPartialPayments
}

// AtCapacity reports whether collected payers reached maxPayments. Payers
// with an open partial count, so they hold a slot until they finish.
func (l *PaymentLink) AtCapacity() bool {
	return l.PaymentLinkMaxPayments > 0 && l.PaymentLinkCollected >= l.PaymentLinkMaxPayments
}
