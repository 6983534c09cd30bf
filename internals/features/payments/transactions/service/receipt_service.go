// file: internals/features/payments/transactions/service/receipt_service.go
package service

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	settingsSvc "tutorhub_backend/internals/features/payments/settings/service"
	dto "tutorhub_backend/internals/features/payments/transactions/dto"
	model "tutorhub_backend/internals/features/payments/transactions/model"
	"tutorhub_backend/internals/helpers/notify"
)

//go:embed templates/*.html
var templatesFS embed.FS

var ErrNoReceiptEmail = fiber.NewError(fiber.StatusBadRequest, "transaction has no email; provide one")

type ReceiptData struct {
	Tx             *model.Transaction
	Currency       string
	IncludeDetails bool
	Message        string
	IssuedAt       time.Time
}

type Receipts struct {
	DB     *gorm.DB
	Engine *html.Engine
	Sender notify.Sender
	Now    func() time.Time
}

// NewReceipts loads the embedded receipt templates.
func NewReceipts(db *gorm.DB, sender notify.Sender) (*Receipts, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("money", FormatMoney)
	engine.AddFunc("date", func(t time.Time) string { return t.Format("02 Jan 2006 15:04") })
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, "load receipt templates")
	}
	return &Receipts{DB: db, Engine: engine, Sender: sender, Now: time.Now}, nil
}

// FormatMoney renders whole currency units with dot thousands separators, e.g. "IDR 1.250.000".
func FormatMoney(currency string, amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	if currency == "" {
		return out
	}
	return currency + " " + out
}

func (r *Receipts) data(ctx context.Context, t *model.Transaction, details bool, msg string) (ReceiptData, error) {
	general, err := settingsSvc.General(ctx, r.DB)
	if err != nil {
		return ReceiptData{}, err
	}
	return ReceiptData{
		Tx:             t,
		Currency:       general.Currency,
		IncludeDetails: details,
		Message:        strings.TrimSpace(msg),
		IssuedAt:       r.Now(),
	}, nil
}

func (r *Receipts) Render(w io.Writer, d ReceiptData) error {
	return r.Engine.Render(w, "receipt", d)
}

// HTML renders the receipt page for a stored transaction.
func (r *Receipts) HTML(ctx context.Context, t *model.Transaction) ([]byte, error) {
	d, err := r.data(ctx, t, true, "")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Send emails the receipt; the stored email is used unless req overrides it.
// Returns the address it was sent to.
func (r *Receipts) Send(ctx context.Context, req *dto.SendReceiptRequest) (string, error) {
	t, err := Get(ctx, r.DB, req.TransactionID)
	if err != nil {
		return "", err
	}
	to := strings.TrimSpace(req.Email)
	if to == "" {
		to = t.TransactionEmail
	}
	if to == "" {
		return "", ErrNoReceiptEmail
	}

	d, err := r.data(ctx, t, req.Details(), req.Message)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, d); err != nil {
		return "", errors.Wrap(err, "render receipt")
	}

	text := fmt.Sprintf("Receipt %s\n%s paid %s for %s.",
		t.TransactionReference, t.TransactionStudentName, FormatMoney(d.Currency, t.TransactionAmount), t.TransactionLinkTitle)
	if t.TransactionIsPartial {
		text += fmt.Sprintf("\nRemaining balance: %s", FormatMoney(d.Currency, t.TransactionRemaining))
	}
	if d.Message != "" {
		text += "\n\n" + d.Message
	}

	err = r.Sender.Send(ctx, notify.Message{
		Channel: notify.ChannelEmail,
		To:      notify.Recipient{Name: t.TransactionStudentName, Email: to, Ref: t.TransactionID.String()},
		Subject: "Payment receipt " + t.TransactionReference,
		Text:    text,
		HTML:    buf.String(),
	})
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadGateway, "receipt delivery failed: "+err.Error())
	}
	return to, nil
}
