// file: internals/console/fallback.go
package console

import (
	_ "embed"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	analyticsDto "tutorhub_backend/internals/features/payments/analytics/dto"
	linkDto "tutorhub_backend/internals/features/payments/links/dto"
	partialDto "tutorhub_backend/internals/features/payments/partials/dto"
	remDto "tutorhub_backend/internals/features/payments/reminders/dto"
	settingsModel "tutorhub_backend/internals/features/payments/settings/model"
	txDto "tutorhub_backend/internals/features/payments/transactions/dto"
)

//go:embed fallback.yaml
var fallbackYAML []byte

// Fallbacks are the static payloads substituted for failed reads.
type Fallbacks struct {
	Links              []linkDto.PaymentLink          `json:"links"`
	Transactions       []txDto.Transaction            `json:"transactions"`
	Partials           []partialDto.PartialPayment    `json:"partials"`
	SentReminders      []remDto.SentReminder          `json:"sentReminders"`
	ScheduledReminders []remDto.ScheduledReminder     `json:"scheduledReminders"`
	Recipients         map[string][]remDto.Recipient `json:"recipients"`
	Analytics          analyticsDto.Summary           `json:"analytics"`
	Settings           settingsModel.Settings         `json:"-"`
}

var (
	fallbackOnce sync.Once
	fallbackData *Fallbacks
	fallbackErr  error
)

// LoadFallbacks parses the embedded payloads once.
func LoadFallbacks() (*Fallbacks, error) {
	fallbackOnce.Do(func() {
		fallbackData, fallbackErr = ParseFallbacks(fallbackYAML)
	})
	return fallbackData, fallbackErr
}

// ParseFallbacks reads a YAML document keyed like the API's JSON.
func ParseFallbacks(doc []byte) (*Fallbacks, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, errors.Wrap(err, "parse fallback yaml")
	}
	js, err := sonic.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "re-encode fallback")
	}
	out := &Fallbacks{}
	if err := sonic.Unmarshal(js, out); err != nil {
		return nil, errors.Wrap(err, "decode fallback")
	}
	out.Settings = settingsModel.DefaultSettings()
	return out, nil
}

/* ===============================
   Filtered copies
=================================*/

func (f *Fallbacks) links(status, search string) []linkDto.PaymentLink {
	out := []linkDto.PaymentLink{}
	for _, l := range clone(f.Links) {
		if status != "" && l.Status != status {
			continue
		}
		if search != "" && !containsFold(l.Title, search) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (f *Fallbacks) link(id string) (linkDto.PaymentLink, bool) {
	for _, l := range f.Links {
		if l.ID.String() == id {
			return clone(l), true
		}
	}
	return linkDto.PaymentLink{}, false
}

// transactions applies the ledger filters the way the API does: AND-combined,
// search over name or email, dateTo inclusive.
func (f *Fallbacks) transactions(flt txDto.Filters) []txDto.Transaction {
	from, _ := time.Parse("2006-01-02", flt.DateFrom)
	to, _ := time.Parse("2006-01-02", flt.DateTo)

	out := []txDto.Transaction{}
	for _, t := range clone(f.Transactions) {
		switch {
		case flt.Status != "" && t.Status != flt.Status:
			continue
		case flt.PaymentLinkID != "" && t.PaymentLinkID.String() != flt.PaymentLinkID:
			continue
		case flt.Search != "" && !containsFold(t.StudentName, flt.Search) && !containsFold(t.Email, flt.Search):
			continue
		case !from.IsZero() && t.Date.Before(from):
			continue
		case !to.IsZero() && !t.Date.Before(to.AddDate(0, 0, 1)):
			continue
		}
		out = append(out, t)
	}
	return out
}

func (f *Fallbacks) partials(status, linkID string) []partialDto.PartialPayment {
	out := []partialDto.PartialPayment{}
	for _, p := range clone(f.Partials) {
		if status != "" && p.Status != status {
			continue
		}
		if linkID != "" && p.PaymentLinkID.String() != linkID {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (f *Fallbacks) recipients(reminderID string) []remDto.Recipient {
	rows := clone(f.Recipients[reminderID])
	if rows == nil {
		return []remDto.Recipient{}
	}
	return rows
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}
