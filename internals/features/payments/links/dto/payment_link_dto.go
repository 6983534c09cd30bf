// file: internals/features/payments/links/dto/payment_link_dto.go
package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	model "tutorhub_backend/internals/features/payments/links/model"
)

/* =========================================================
   PatchField tri-state (Unset / Null / Set(value))
   ========================================================= */

type PatchField[T any] struct {
	Set   bool `json:"-"`
	Null  bool `json:"-"`
	Value *T   `json:"-"`
}

func (p *PatchField[T]) UnmarshalJSON(b []byte) error {
	p.Set = true
	if string(b) == "null" {
		p.Null = true
		p.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	p.Value = &v
	return nil
}

/* =========================================================
   RESPONSE
   ========================================================= */

type PaymentLink struct {
	ID                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Amount              int64      `json:"amount"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"createdAt"`
	ExpiresAt           *time.Time `json:"expiresAt,omitempty"`
	Slug                string     `json:"slug"`
	URL                 string     `json:"url"`
	AllowPartialPayment bool       `json:"allowPartialPayment"`
	PartialPercentage   *int       `json:"partialPercentage,omitempty"`
	MinimumPayment      *int64     `json:"minimumPayment,omitempty"`
	MaxPayments         int        `json:"maxPayments"`
	Collected           int        `json:"collected"`
	CompletedPayments   int        `json:"completedPayments"`
	PartialPayments     int        `json:"partialPayments"`
	PendingAmount       int64      `json:"pendingAmount"`
	TotalAmount         int64      `json:"totalAmount"`
	CustomFields        []string   `json:"customFields"`
	CreatedBy           string     `json:"createdBy"`
}

func FromModel(m *model.PaymentLink) PaymentLink {
	fields := []string(m.PaymentLinkCustomFields)
	if fields == nil {
		fields = []string{}
	}
	return PaymentLink{
		ID:                  m.PaymentLinkID,
		Title:               m.PaymentLinkTitle,
		Description:         m.PaymentLinkDescription,
		Amount:              m.PaymentLinkAmount,
		Status:              string(m.PaymentLinkStatus),
		CreatedAt:           m.PaymentLinkCreatedAt,
		ExpiresAt:           m.PaymentLinkExpiresAt,
		Slug:                m.PaymentLinkSlug,
		URL:                 m.PaymentLinkURL,
		AllowPartialPayment: m.PaymentLinkAllowPartial,
		PartialPercentage:   m.PaymentLinkPartialPercentage,
		MinimumPayment:      m.PaymentLinkMinimumPayment,
		MaxPayments:         m.PaymentLinkMaxPayments,
		Collected:           m.PaymentLinkCollected,
		CompletedPayments:   m.PaymentLinkCompletedPayments,
		PartialPayments:     m.PaymentLinkPartialPayments,
		PendingAmount:       m.PaymentLinkPendingAmount,
		TotalAmount:         m.PaymentLinkTotalAmount,
		CustomFields:        fields,
		CreatedBy:           m.PaymentLinkCreatedBy,
	}
}

func FromModels(rows []model.PaymentLink) []PaymentLink {
	out := make([]PaymentLink, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}

/* =========================================================
   REQUEST: Create
   ========================================================= */

type CreatePaymentLinkRequest struct {
	Title               string     `json:"title" validate:"required,notblank,max=200"`
	Description         string     `json:"description" validate:"max=2000"`
	Amount              int64      `json:"amount" validate:"gt=0"`
	ExpiresAt           *time.Time `json:"expiresAt"`
	AllowPartialPayment bool       `json:"allowPartialPayment"`
	PartialPercentage   *int       `json:"partialPercentage" validate:"omitempty,min=10,max=90"`
	MaxPayments         int        `json:"maxPayments" validate:"min=0"`
	CustomFields        []string   `json:"customFields" validate:"max=20,dive,notblank,max=60"`
}

// ToModel leaves slug/url, defaults and minimumPayment to the service.
func (r *CreatePaymentLinkRequest) ToModel(createdBy string) *model.PaymentLink {
	return &model.PaymentLink{
		PaymentLinkTitle:             strings.TrimSpace(r.Title),
		PaymentLinkDescription:       strings.TrimSpace(r.Description),
		PaymentLinkAmount:            r.Amount,
		PaymentLinkStatus:            model.LinkActive,
		PaymentLinkExpiresAt:         r.ExpiresAt,
		PaymentLinkAllowPartial:      r.AllowPartialPayment,
		PaymentLinkPartialPercentage: r.PartialPercentage,
		PaymentLinkMaxPayments:       r.MaxPayments,
		PaymentLinkCustomFields:      trimAll(r.CustomFields),
		PaymentLinkCreatedBy:         createdBy,
	}
}

/* =========================================================
   REQUEST: Patch
   ========================================================= */

type PatchPaymentLinkRequest struct {
	Title               PatchField[string]    `json:"title"`
	Description         PatchField[string]    `json:"description"`
	Amount              PatchField[int64]     `json:"amount"`
	ExpiresAt           PatchField[time.Time] `json:"expiresAt"`
	AllowPartialPayment PatchField[bool]      `json:"allowPartialPayment"`
	PartialPercentage   PatchField[int]       `json:"partialPercentage"`
	MaxPayments         PatchField[int]       `json:"maxPayments"`
	CustomFields        PatchField[[]string]  `json:"customFields"`
}

// ApplyTo mutates m; the caller re-validates the result.
func (p *PatchPaymentLinkRequest) ApplyTo(m *model.PaymentLink) {
	if p.Title.Set && !p.Title.Null {
		m.PaymentLinkTitle = strings.TrimSpace(*p.Title.Value)
	}
	if p.Description.Set {
		m.PaymentLinkDescription = ""
		if !p.Description.Null {
			m.PaymentLinkDescription = strings.TrimSpace(*p.Description.Value)
		}
	}
	if p.Amount.Set && !p.Amount.Null {
		m.PaymentLinkAmount = *p.Amount.Value
	}
	if p.ExpiresAt.Set {
		m.PaymentLinkExpiresAt = p.ExpiresAt.Value
	}
	if p.AllowPartialPayment.Set && !p.AllowPartialPayment.Null {
		m.PaymentLinkAllowPartial = *p.AllowPartialPayment.Value
	}
	if p.PartialPercentage.Set {
		m.PaymentLinkPartialPercentage = p.PartialPercentage.Value
	}
	if p.MaxPayments.Set && !p.MaxPayments.Null {
		m.PaymentLinkMaxPayments = *p.MaxPayments.Value
	}
	if p.CustomFields.Set {
		m.PaymentLinkCustomFields = nil
		if !p.CustomFields.Null {
			m.PaymentLinkCustomFields = trimAll(*p.CustomFields.Value)
		}
	}
}

/* =========================================================
   REQUEST: Status / List
   ========================================================= */

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=Active Paused Completed Expired"`
}

type ListQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=Active Paused Completed Expired"`
	Search string `query:"search" validate:"max=120"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
