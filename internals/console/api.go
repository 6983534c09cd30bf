// file: internals/console/api.go
package console

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"tutorhub_backend/internals/constants"
	analyticsDto "tutorhub_backend/internals/features/payments/analytics/dto"
	linkDto "tutorhub_backend/internals/features/payments/links/dto"
	partialDto "tutorhub_backend/internals/features/payments/partials/dto"
	remDto "tutorhub_backend/internals/features/payments/reminders/dto"
	settingsDto "tutorhub_backend/internals/features/payments/settings/dto"
	settingsModel "tutorhub_backend/internals/features/payments/settings/model"
	txDto "tutorhub_backend/internals/features/payments/transactions/dto"
	helper "tutorhub_backend/internals/helpers"
)

// ValidationError blocks an action before any request is made.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	for f, msgs := range e.Fields {
		if len(msgs) > 0 {
			return f + ": " + msgs[0]
		}
	}
	return "validation failed"
}

// validate checks struct tags; other values are left to the server.
func validate(v any) error {
	err := helper.Validate.Struct(v)
	var invalid *validator.InvalidValidationError
	if err == nil || errors.As(err, &invalid) {
		return nil
	}
	return &ValidationError{Fields: helper.TranslateValidation(err)}
}

/* ===============================
   Links
=================================*/

type LinkQuery struct {
	Status string
	Search string
	Page   int
	Limit  int
}

func (q LinkQuery) values() url.Values {
	v := url.Values{}
	setStr(v, "status", q.Status)
	setStr(v, "search", q.Search)
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	return v
}

func (c *Client) Links(ctx context.Context, q LinkQuery) Result[[]linkDto.PaymentLink] {
	return fetch(ctx, c, "links.list", "/links", q.values(), []string{constants.TagLinks},
		func(f *Fallbacks) ([]linkDto.PaymentLink, bool) { return f.links(q.Status, q.Search), true })
}

func (c *Client) Link(ctx context.Context, id uuid.UUID) Result[linkDto.PaymentLink] {
	return fetch(ctx, c, "links.get:"+id.String(), "/links/"+id.String(), nil,
		[]string{constants.TagLinks, constants.TagLink(id)},
		func(f *Fallbacks) (linkDto.PaymentLink, bool) { return f.link(id.String()) })
}

func (c *Client) CreateLink(ctx context.Context, req linkDto.CreatePaymentLinkRequest) (linkDto.PaymentLink, error) {
	if err := validate(req); err != nil {
		return linkDto.PaymentLink{}, err
	}
	return mutate[linkDto.PaymentLink](ctx, c, "links.create", http.MethodPost, "/links", req,
		constants.TagLinks, constants.TagAnalytics)
}

// LinkPatch sends only the non-nil fields. Amount changes apply to future
// payments only.
type LinkPatch struct {
	Title               *string    `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	Description         *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Amount              *int64     `json:"amount,omitempty" validate:"omitempty,gt=0"`
	ExpiresAt           *time.Time `json:"expiresAt,omitempty"`
	AllowPartialPayment *bool      `json:"allowPartialPayment,omitempty"`
	PartialPercentage   *int       `json:"partialPercentage,omitempty" validate:"omitempty,min=10,max=90"`
	MaxPayments         *int       `json:"maxPayments,omitempty" validate:"omitempty,min=0"`
	CustomFields        []string   `json:"customFields,omitempty" validate:"omitempty,max=20,dive,notblank,max=60"`
}

func (c *Client) UpdateLink(ctx context.Context, id uuid.UUID, p LinkPatch) (linkDto.PaymentLink, error) {
	if err := validate(p); err != nil {
		return linkDto.PaymentLink{}, err
	}
	return mutate[linkDto.PaymentLink](ctx, c, "links.update", http.MethodPut, "/links/"+id.String(), p,
		constants.TagLinks, constants.TagLink(id))
}

// ToggleStatus flips Active and Paused server-side.
func (c *Client) ToggleStatus(ctx context.Context, id uuid.UUID) (linkDto.PaymentLink, error) {
	return c.SetStatus(ctx, id, "")
}

// SetStatus requests an explicit status; "" toggles.
func (c *Client) SetStatus(ctx context.Context, id uuid.UUID, status string) (linkDto.PaymentLink, error) {
	body := linkDto.UpdateStatusRequest{Status: status}
	if err := validate(body); err != nil {
		return linkDto.PaymentLink{}, err
	}
	return mutate[linkDto.PaymentLink](ctx, c, "links.status", http.MethodPut, "/links/"+id.String()+"/status", body,
		constants.TagLinks, constants.TagLink(id), constants.TagAnalytics)
}

func (c *Client) DeleteLink(ctx context.Context, id uuid.UUID) error {
	_, err := mutate[map[string]any](ctx, c, "links.delete", http.MethodDelete, "/links/"+id.String(), nil,
		constants.TagLinks, constants.TagLink(id), constants.TagAnalytics)
	return err
}

/* ===============================
   Transactions
=================================*/

type TransactionQuery struct {
	txDto.Filters
	Page  int
	Limit int
}

func (q TransactionQuery) values() url.Values {
	v := url.Values{}
	setStr(v, "status", q.Status)
	setStr(v, "search", q.Search)
	setStr(v, "dateFrom", q.DateFrom)
	setStr(v, "dateTo", q.DateTo)
	setStr(v, "paymentLinkId", q.PaymentLinkID)
	setInt(v, "page", q.Page)
	setInt(v, "limit", q.Limit)
	return v
}

func (c *Client) Transactions(ctx context.Context, q TransactionQuery) Result[[]txDto.Transaction] {
	return fetch(ctx, c, "transactions.list", "/transactions", q.values(), []string{constants.TagTransactions},
		func(f *Fallbacks) ([]txDto.Transaction, bool) { return f.transactions(q.Filters), true })
}

// SendReceipt mails a receipt; an empty Email uses the transaction's own.
func (c *Client) SendReceipt(ctx context.Context, req txDto.SendReceiptRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	_, err := mutate[map[string]any](ctx, c, "transactions.receipt", http.MethodPost, "/transactions/send-receipt", req)
	return err
}

// Export returns the URL of the generated file. Nothing is invalidated.
func (c *Client) Export(ctx context.Context, format string, f txDto.Filters) (string, error) {
	req := txDto.ExportRequest{Format: format, Filters: f}
	if err := validate(req); err != nil {
		return "", err
	}
	out, err := mutate[txDto.ExportResponse](ctx, c, "transactions.export", http.MethodPost, "/transactions/export", req)
	if err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("export returned no url")
	}
	return out.URL, nil
}

/* ===============================
   Partials & reminders
=================================*/

func (c *Client) Partials(ctx context.Context, status, linkID string) Result[[]partialDto.PartialPayment] {
	v := url.Values{}
	setStr(v, "status", status)
	setStr(v, "paymentLinkId", linkID)
	return fetch(ctx, c, "partials.list", "/partial", v, []string{constants.TagPartials},
		func(f *Fallbacks) ([]partialDto.PartialPayment, bool) { return f.partials(status, linkID), true })
}

// SendReminders posts an already-resolved request; an empty recipient list is
// rejected here and never sent.
func (c *Client) SendReminders(ctx context.Context, req remDto.SendRemindersRequest) (remDto.SendResult, error) {
	if len(req.Recipients) == 0 {
		return remDto.SendResult{}, ErrNoRecipients
	}
	if err := validate(req); err != nil {
		return remDto.SendResult{}, err
	}
	return mutate[remDto.SendResult](ctx, c, "reminders.send", http.MethodPost, "/reminders", req,
		constants.ReminderTags...)
}

func (c *Client) SentReminders(ctx context.Context) Result[[]remDto.SentReminder] {
	return fetch(ctx, c, "reminders.sent", "/reminders/sent", nil, []string{constants.TagRemindersSent},
		func(f *Fallbacks) ([]remDto.SentReminder, bool) { return clone(f.SentReminders), true })
}

func (c *Client) ScheduledReminders(ctx context.Context) Result[[]remDto.ScheduledReminder] {
	return fetch(ctx, c, "reminders.scheduled", "/reminders/scheduled", nil, []string{constants.TagRemindersScheduled},
		func(f *Fallbacks) ([]remDto.ScheduledReminder, bool) { return clone(f.ScheduledReminders), true })
}

func (c *Client) ReminderRecipients(ctx context.Context, id uuid.UUID) Result[[]remDto.Recipient] {
	return fetch(ctx, c, "reminders.recipients:"+id.String(), "/reminders/"+id.String()+"/recipients", nil,
		[]string{constants.TagRemindersSent},
		func(f *Fallbacks) ([]remDto.Recipient, bool) { return f.recipients(id.String()), true })
}

func (c *Client) ResendReminder(ctx context.Context, id uuid.UUID) (remDto.SentReminder, error) {
	return mutate[remDto.SentReminder](ctx, c, "reminders.resend", http.MethodPost, "/reminders/"+id.String()+"/resend", nil,
		constants.TagRemindersSent, constants.TagPartials)
}

func (c *Client) CancelScheduledReminder(ctx context.Context, id uuid.UUID) error {
	_, err := mutate[map[string]any](ctx, c, "reminders.cancel", http.MethodDelete, "/reminders/scheduled/"+id.String(), nil,
		constants.TagRemindersScheduled)
	return err
}

/* ===============================
   Settings & analytics
=================================*/

func (c *Client) Settings(ctx context.Context) Result[settingsModel.Settings] {
	return fetch(ctx, c, "settings.get", "/settings", nil, []string{constants.TagSettings},
		func(f *Fallbacks) (settingsModel.Settings, bool) { return clone(f.Settings), true })
}

type saveSettingsBody struct {
	Section string `json:"section"`
	Data    any    `json:"data"`
}

// SaveSettings persists one whole section and returns the full panel.
func (c *Client) SaveSettings(ctx context.Context, section settingsModel.Section, data any) (settingsModel.Settings, error) {
	if !section.Valid() {
		return settingsModel.Settings{}, &ValidationError{Fields: map[string][]string{"section": {"unknown settings section"}}}
	}
	if err := validate(data); err != nil {
		return settingsModel.Settings{}, err
	}
	return mutate[settingsModel.Settings](ctx, c, "settings.save", http.MethodPut, "/settings",
		saveSettingsBody{Section: string(section), Data: data}, constants.TagSettings)
}

func (c *Client) FeePreview(ctx context.Context, method string, amount int64) (settingsDto.FeePreviewResponse, error) {
	req := settingsDto.FeePreviewRequest{Method: method, Amount: amount}
	if err := validate(req); err != nil {
		return settingsDto.FeePreviewResponse{}, err
	}
	return mutate[settingsDto.FeePreviewResponse](ctx, c, "settings.fee", http.MethodPost, "/settings/fee-preview", req)
}

func (c *Client) Analytics(ctx context.Context) Result[analyticsDto.Summary] {
	return fetch(ctx, c, "analytics.summary", "/analytics", nil, []string{constants.TagAnalytics},
		func(f *Fallbacks) (analyticsDto.Summary, bool) { return clone(f.Analytics), true })
}

func setStr(v url.Values, k, s string) {
	if s != "" {
		v.Set(k, s)
	}
}

func setInt(v url.Values, k string, n int) {
	if n > 0 {
		v.Set(k, strconv.Itoa(n))
	}
}
