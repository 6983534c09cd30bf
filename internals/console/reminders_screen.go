// file: internals/console/reminders_screen.go
package console

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	partialDto "tutorhub_backend/internals/features/payments/partials/dto"
	partialModel "tutorhub_backend/internals/features/payments/partials/model"
	remDto "tutorhub_backend/internals/features/payments/reminders/dto"
	remModel "tutorhub_backend/internals/features/payments/reminders/model"
	"tutorhub_backend/internals/helpers/notify"
)

var ErrNoRecipients = fiber.NewError(fiber.StatusBadRequest, "No recipients selected")

/* ===============================
   Partials
=================================*/

type PartialsState struct {
	Items         []partialDto.PartialPayment
	Status        string
	PaymentLinkID string
	Source        Source
	Err           *FetchError
}

// Counts is computed over the loaded list.
func (st PartialsState) Counts() partialModel.Counts {
	var c partialModel.Counts
	for _, p := range st.Items {
		switch partialModel.PartialStatus(p.Status) {
		case partialModel.PartialPending:
			c.PendingCount++
		case partialModel.PartialOverdue:
			c.OverdueCount++
		}
	}
	return c
}

type PartialsScreen struct {
	Client *Client
}

func (s PartialsScreen) Load(ctx context.Context, st PartialsState) PartialsState {
	res := s.Client.Partials(ctx, st.Status, st.PaymentLinkID)
	st.Items, st.Source, st.Err = res.Data, res.Source, res.Err
	return st
}

/* ===============================
   Reminder composer
=================================*/

type ReminderDraft struct {
	Group              remModel.RecipientGroup
	Selected           []uuid.UUID
	Subject            string
	Message            string
	Channels           []notify.Channel
	IncludePaymentLink bool
	ScheduleType       string // now | later
	ScheduleDate       string // yyyy-mm-dd
	ScheduleTime       string // HH:MM
	Recurrence         remModel.Recurrence
}

func NewReminderDraft() ReminderDraft {
	return ReminderDraft{
		Group:              remModel.GroupSelected,
		Channels:           []notify.Channel{notify.ChannelEmail},
		IncludePaymentLink: true,
		ScheduleType:       "now",
		Recurrence:         remModel.RecurrenceOneTime,
	}
}

// Resolve expands the recipient group against the loaded partial payments.
func (d ReminderDraft) Resolve(partials []partialDto.PartialPayment) []uuid.UUID {
	var want partialModel.PartialStatus
	switch d.Group {
	case remModel.GroupAllPending:
		want = partialModel.PartialPending
	case remModel.GroupAllOverdue:
		want = partialModel.PartialOverdue
	default:
		seen := map[uuid.UUID]bool{}
		var out []uuid.UUID
		for _, id := range d.Selected {
			if id != uuid.Nil && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
		return out
	}

	var out []uuid.UUID
	for _, p := range partials {
		if partialModel.PartialStatus(p.Status) == want {
			out = append(out, p.ID)
		}
	}
	return out
}

// Request builds the API body. An empty resolved set is ErrNoRecipients.
func (d ReminderDraft) Request(partials []partialDto.PartialPayment) (remDto.SendRemindersRequest, error) {
	ids := d.Resolve(partials)
	if len(ids) == 0 {
		return remDto.SendRemindersRequest{}, ErrNoRecipients
	}
	recipients := make([]string, 0, len(ids))
	for _, id := range ids {
		recipients = append(recipients, id.String())
	}
	channels := make([]string, 0, len(d.Channels))
	for _, ch := range d.Channels {
		channels = append(channels, string(ch))
	}

	req := remDto.SendRemindersRequest{
		Recipients:         recipients,
		Subject:            strings.TrimSpace(d.Subject),
		Message:            strings.TrimSpace(d.Message),
		Channels:           channels,
		IncludePaymentLink: d.IncludePaymentLink,
		ScheduleType:       d.ScheduleType,
		RecipientGroup:     string(d.Group),
	}
	if d.ScheduleType == "later" {
		req.ScheduleDate = d.ScheduleDate
		req.ScheduleTime = d.ScheduleTime
		req.Recurrence = string(d.Recurrence)
	}
	return req, nil
}

/* ===============================
   Reminder history
=================================*/

// RecipientsView is the engagement detail of one sent reminder.
type RecipientsView struct {
	Reminder   remDto.SentReminder
	Recipients []remDto.Recipient
	Source     Source
	Err        *FetchError
}

type RemindersState struct {
	Sent            []remDto.SentReminder
	Scheduled       []remDto.ScheduledReminder
	SentSource      Source
	ScheduledSource Source
	Err             *FetchError
	Detail          *RecipientsView
}

type RemindersScreen struct {
	Client *Client
}

func (s RemindersScreen) Load(ctx context.Context, st RemindersState) RemindersState {
	sent := s.Client.SentReminders(ctx)
	sched := s.Client.ScheduledReminders(ctx)
	st.Sent, st.SentSource = sent.Data, sent.Source
	st.Scheduled, st.ScheduledSource = sched.Data, sched.Source
	st.Err = sent.Err
	if st.Err == nil {
		st.Err = sched.Err
	}
	return st
}

// Send validates locally, dispatches, then reloads both lists.
func (s RemindersScreen) Send(ctx context.Context, st RemindersState, d ReminderDraft, partials []partialDto.PartialPayment) (RemindersState, remDto.SendResult, error) {
	req, err := d.Request(partials)
	if err != nil {
		return st, remDto.SendResult{}, err
	}
	out, err := s.Client.SendReminders(ctx, req)
	if err != nil {
		return st, remDto.SendResult{}, err
	}
	return s.Load(ctx, st), out, nil
}

func (s RemindersScreen) Resend(ctx context.Context, st RemindersState, id uuid.UUID) (RemindersState, error) {
	m, err := s.Client.ResendReminder(ctx, id)
	if err != nil {
		return st, err
	}
	st.Sent = append([]remDto.SentReminder{m}, st.Sent...)
	return st, nil
}

// Cancel asks confirm first; a refusal makes no request.
func (s RemindersScreen) Cancel(ctx context.Context, st RemindersState, id uuid.UUID, confirm Confirm) (RemindersState, error) {
	if confirm == nil || !confirm("Cancel this scheduled reminder?") {
		return st, ErrNotConfirmed
	}
	if err := s.Client.CancelScheduledReminder(ctx, id); err != nil {
		return st, err
	}
	kept := make([]remDto.ScheduledReminder, 0, len(st.Scheduled))
	for _, r := range st.Scheduled {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	st.Scheduled = kept
	return st, nil
}

// Open loads the recipient detail for a sent reminder.
func (s RemindersScreen) Open(ctx context.Context, st RemindersState, id uuid.UUID) RemindersState {
	view := &RecipientsView{}
	for _, r := range st.Sent {
		if r.ID == id {
			view.Reminder = r
			break
		}
	}
	res := s.Client.ReminderRecipients(ctx, id)
	view.Recipients, view.Source, view.Err = res.Data, res.Source, res.Err
	st.Detail = view
	return st
}

func (st RemindersState) Close() RemindersState {
	st.Detail = nil
	return st
}
