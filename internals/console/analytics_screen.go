// file: internals/console/analytics_screen.go
package console

import (
	"context"
	"fmt"

	analyticsDto "tutorhub_backend/internals/features/payments/analytics/dto"
	linkModel "tutorhub_backend/internals/features/payments/links/model"
	txSvc "tutorhub_backend/internals/features/payments/transactions/service"
)

// StatIcon is the closed set of dashboard card icons.
type StatIcon int

const (
	IconCollected StatIcon = iota
	IconPending
	IconTransactions
	IconActiveLinks
	IconPartials
	IconOverdue
	IconReminders
	IconEngagement
)

var AllStatIcons = []StatIcon{
	IconCollected, IconPending, IconTransactions, IconActiveLinks,
	IconPartials, IconOverdue, IconReminders, IconEngagement,
}

// Glyph names the icon asset.
func (i StatIcon) Glyph() string {
	//exhaustive:enforce
	switch i {
	case IconCollected:
		return "banknotes"
	case IconPending:
		return "hourglass"
	case IconTransactions:
		return "receipt"
	case IconActiveLinks:
		return "link"
	case IconPartials:
		return "pie-chart"
	case IconOverdue:
		return "alert-triangle"
	case IconReminders:
		return "bell"
	case IconEngagement:
		return "mail-open"
	}
	panic(fmt.Sprintf("unknown StatIcon %d", int(i)))
}

type StatCard struct {
	Label string
	Value string
	Icon  StatIcon
}

type AnalyticsState struct {
	Summary analyticsDto.Summary
	Cards   []StatCard
	Source  Source
	Err     *FetchError
	// ShowRetry is set whenever the live fetch failed, fallback or not.
	ShowRetry bool
}

type AnalyticsScreen struct {
	Client   *Client
	Currency string
}

func (s AnalyticsScreen) Load(ctx context.Context) AnalyticsState {
	res := s.Client.Analytics(ctx)
	st := AnalyticsState{Summary: res.Data, Source: res.Source, Err: res.Err, ShowRetry: res.Err != nil}
	if res.Source != SourceNone {
		st.Cards = Cards(res.Data, s.currency())
	}
	return st
}

func (s AnalyticsScreen) currency() string {
	if s.Currency == "" {
		return "IDR"
	}
	return s.Currency
}

// Cards lays out the dashboard tiles in display order.
func Cards(sum analyticsDto.Summary, currency string) []StatCard {
	var txCount int64
	for _, n := range sum.TransactionsByStatus {
		txCount += n
	}
	return []StatCard{
		{Label: "Collected", Value: txSvc.FormatMoney(currency, sum.CollectedAmount), Icon: IconCollected},
		{Label: "Pending", Value: txSvc.FormatMoney(currency, sum.PendingAmount), Icon: IconPending},
		{Label: "Transactions", Value: fmt.Sprint(txCount), Icon: IconTransactions},
		{Label: "Active links", Value: fmt.Sprint(sum.LinksByStatus[string(linkModel.LinkActive)]), Icon: IconActiveLinks},
		{Label: "Partial payments", Value: fmt.Sprint(sum.Partials.PendingCount), Icon: IconPartials},
		{Label: "Overdue", Value: fmt.Sprint(sum.Partials.OverdueCount), Icon: IconOverdue},
		{Label: "Reminders sent", Value: fmt.Sprint(sum.Reminders.Sent), Icon: IconReminders},
		{Label: "Avg. open rate", Value: fmt.Sprintf("%.1f%%", sum.Reminders.AvgOpenRate), Icon: IconEngagement},
	}
}
