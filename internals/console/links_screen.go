// file: internals/console/links_screen.go
package console

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	linkDto "tutorhub_backend/internals/features/payments/links/dto"
	linkModel "tutorhub_backend/internals/features/payments/links/model"
)

// Confirm asks the operator a yes/no question before a destructive call.
type Confirm func(prompt string) bool

var (
	ErrTerminalLink  = fiber.NewError(fiber.StatusConflict, "payment link is completed or expired")
	ErrLinkNotLoaded = fiber.NewError(fiber.StatusNotFound, "payment link is not in the current list")
	ErrNotConfirmed  = fiber.NewError(fiber.StatusBadRequest, "action not confirmed")
)

/* ===============================
   Create form
=================================*/

type LinkForm struct {
	Title               string
	Description         string
	Amount              int64
	ExpiresAt           *time.Time
	AllowPartialPayment bool
	PartialPercentage   int
	MaxPayments         int
	CustomFields        []string
}

// MinimumPayment previews round(amount × percentage / 100).
func (f LinkForm) MinimumPayment() (int64, bool) {
	if !f.AllowPartialPayment {
		return 0, false
	}
	return linkModel.MinimumPaymentFor(f.Amount, f.PartialPercentage), true
}

// CanSubmit mirrors the disabled state of the submit button.
func (f LinkForm) CanSubmit() bool {
	if strings.TrimSpace(f.Title) == "" || f.Amount <= 0 {
		return false
	}
	if f.AllowPartialPayment {
		return f.PartialPercentage >= linkModel.MinPartialPercentage && f.PartialPercentage <= linkModel.MaxPartialPercentage
	}
	return true
}

func (f LinkForm) Request() linkDto.CreatePaymentLinkRequest {
	req := linkDto.CreatePaymentLinkRequest{
		Title:               f.Title,
		Description:         f.Description,
		Amount:              f.Amount,
		ExpiresAt:           f.ExpiresAt,
		AllowPartialPayment: f.AllowPartialPayment,
		MaxPayments:         f.MaxPayments,
		CustomFields:        f.CustomFields,
	}
	if f.AllowPartialPayment {
		pct := f.PartialPercentage
		req.PartialPercentage = &pct
	}
	return req
}

/* ===============================
   Screen
=================================*/

type LinksState struct {
	Items  []linkDto.PaymentLink
	Query  LinkQuery
	Source Source
	Err    *FetchError
}

func (st LinksState) Find(id uuid.UUID) (linkDto.PaymentLink, bool) {
	for _, l := range st.Items {
		if l.ID == id {
			return l, true
		}
	}
	return linkDto.PaymentLink{}, false
}

func (st LinksState) withItem(l linkDto.PaymentLink) LinksState {
	items := make([]linkDto.PaymentLink, 0, len(st.Items)+1)
	found := false
	for _, x := range st.Items {
		if x.ID == l.ID {
			items = append(items, l)
			found = true
			continue
		}
		items = append(items, x)
	}
	if !found {
		items = append([]linkDto.PaymentLink{l}, items...)
	}
	st.Items = items
	return st
}

func (st LinksState) without(id uuid.UUID) LinksState {
	items := make([]linkDto.PaymentLink, 0, len(st.Items))
	for _, x := range st.Items {
		if x.ID != id {
			items = append(items, x)
		}
	}
	st.Items = items
	return st
}

type LinksScreen struct {
	Client *Client
}

func (s LinksScreen) Load(ctx context.Context, st LinksState) LinksState {
	res := s.Client.Links(ctx, st.Query)
	st.Items, st.Source, st.Err = res.Data, res.Source, res.Err
	return st
}

// Create rejects forms the submit button would not allow.
func (s LinksScreen) Create(ctx context.Context, st LinksState, f LinkForm) (LinksState, error) {
	if !f.CanSubmit() {
		return st, &ValidationError{Fields: map[string][]string{"form": {"title, amount and partial percentage are required"}}}
	}
	l, err := s.Client.CreateLink(ctx, f.Request())
	if err != nil {
		return st, err
	}
	return st.withItem(l), nil
}

func (s LinksScreen) Update(ctx context.Context, st LinksState, id uuid.UUID, p LinkPatch) (LinksState, error) {
	l, err := s.Client.UpdateLink(ctx, id, p)
	if err != nil {
		return st, err
	}
	return st.withItem(l), nil
}

// Toggle flips Active and Paused. Completed and Expired links are refused
// without a request.
func (s LinksScreen) Toggle(ctx context.Context, st LinksState, id uuid.UUID) (LinksState, error) {
	cur, ok := st.Find(id)
	if !ok {
		return st, ErrLinkNotLoaded
	}
	if linkModel.LinkStatus(cur.Status).Terminal() {
		return st, ErrTerminalLink
	}
	l, err := s.Client.ToggleStatus(ctx, id)
	if err != nil {
		return st, err
	}
	return st.withItem(l), nil
}

func (s LinksScreen) Delete(ctx context.Context, st LinksState, id uuid.UUID, confirm Confirm) (LinksState, error) {
	cur, ok := st.Find(id)
	if !ok {
		return st, ErrLinkNotLoaded
	}
	if confirm == nil || !confirm("Delete payment link \""+cur.Title+"\"?") {
		return st, ErrNotConfirmed
	}
	if err := s.Client.DeleteLink(ctx, id); err != nil {
		return st, err
	}
	return st.without(id), nil
}
