// file: internals/console/transactions_screen.go
package console

import (
	"context"

	"github.com/google/uuid"

	txDto "tutorhub_backend/internals/features/payments/transactions/dto"
)

type TransactionsState struct {
	Items    []txDto.Transaction
	Query    TransactionQuery
	Selected map[uuid.UUID]bool
	Source   Source
	Err      *FetchError
}

// Select toggles one row.
func (st TransactionsState) Select(id uuid.UUID) TransactionsState {
	next := make(map[uuid.UUID]bool, len(st.Selected)+1)
	for k := range st.Selected {
		next[k] = true
	}
	if next[id] {
		delete(next, id)
	} else {
		next[id] = true
	}
	st.Selected = next
	return st
}

// SelectAll selects every loaded row, or clears when all are selected.
func (st TransactionsState) SelectAll() TransactionsState {
	if len(st.Items) > 0 && len(st.Selected) == len(st.Items) {
		st.Selected = map[uuid.UUID]bool{}
		return st
	}
	next := make(map[uuid.UUID]bool, len(st.Items))
	for _, t := range st.Items {
		next[t.ID] = true
	}
	st.Selected = next
	return st
}

// SelectedIDs keeps list order.
func (st TransactionsState) SelectedIDs() []uuid.UUID {
	var out []uuid.UUID
	for _, t := range st.Items {
		if st.Selected[t.ID] {
			out = append(out, t.ID)
		}
	}
	return out
}

type TransactionsScreen struct {
	Client *Client
}

// Load fetches with st.Query and drops selections that left the list.
func (s TransactionsScreen) Load(ctx context.Context, st TransactionsState) TransactionsState {
	res := s.Client.Transactions(ctx, st.Query)
	st.Items, st.Source, st.Err = res.Data, res.Source, res.Err

	kept := map[uuid.UUID]bool{}
	for _, t := range st.Items {
		if st.Selected[t.ID] {
			kept[t.ID] = true
		}
	}
	st.Selected = kept
	return st
}

func (s TransactionsScreen) Filter(ctx context.Context, st TransactionsState, f txDto.Filters) TransactionsState {
	st.Query.Filters = f
	st.Query.Page = 1
	return s.Load(ctx, st)
}

// SendReceipt leaves the transaction untouched; email "" means the stored one.
func (s TransactionsScreen) SendReceipt(ctx context.Context, id uuid.UUID, email string, includeDetails *bool, message string) error {
	return s.Client.SendReceipt(ctx, txDto.SendReceiptRequest{
		TransactionID:  id,
		Email:          email,
		IncludeDetails: includeDetails,
		Message:        message,
	})
}

// Export asks for a file with the current filters and hands its URL to open.
func (s TransactionsScreen) Export(ctx context.Context, st TransactionsState, format string, open func(url string) error) (string, error) {
	u, err := s.Client.Export(ctx, format, st.Query.Filters)
	if err != nil {
		return "", err
	}
	if open != nil {
		if err := open(u); err != nil {
			return u, err
		}
	}
	return u, nil
}

// ReminderDraftFor prefills a reminder for a partial row.
func ReminderDraftFor(t txDto.Transaction) (ReminderDraft, bool) {
	if !t.IsPartial || t.PartialPaymentID == nil {
		return ReminderDraft{}, false
	}
	d := NewReminderDraft()
	d.Selected = []uuid.UUID{*t.PartialPaymentID}
	d.Subject = "Outstanding balance for " + t.PaymentLink
	return d, true
}
