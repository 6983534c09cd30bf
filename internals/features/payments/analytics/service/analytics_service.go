// file: internals/features/payments/analytics/service/analytics_service.go
package service

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	dto "tutorhub_backend/internals/features/payments/analytics/dto"
	linkModel "tutorhub_backend/internals/features/payments/links/model"
	partialModel "tutorhub_backend/internals/features/payments/partials/model"
	remModel "tutorhub_backend/internals/features/payments/reminders/model"
	txModel "tutorhub_backend/internals/features/payments/transactions/model"
)

const monthsBack = 6

type statusCount struct {
	Status string
	N      int64
}

func countBy(ctx context.Context, db *gorm.DB, m interface{}, column string) (map[string]int64, error) {
	var rows []statusCount
	err := db.WithContext(ctx).Model(m).
		Select(column + " AS status, COUNT(*) AS n").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// Summary aggregates the dashboard figures as of now.
func Summary(ctx context.Context, db *gorm.DB, now time.Time) (dto.Summary, error) {
	var out dto.Summary
	var err error

	if out.TransactionsByStatus, err = countBy(ctx, db, &txModel.Transaction{}, "transaction_status"); err != nil {
		return out, err
	}
	if out.LinksByStatus, err = countBy(ctx, db, &linkModel.PaymentLink{}, "payment_link_status"); err != nil {
		return out, err
	}

	paid := []txModel.TransactionStatus{txModel.TxCompleted, txModel.TxPartial}
	if err := db.WithContext(ctx).Model(&txModel.Transaction{}).
		Where("transaction_status IN ?", paid).
		Select("COALESCE(SUM(transaction_amount), 0)").
		Scan(&out.CollectedAmount).Error; err != nil {
		return out, err
	}

	var open []partialModel.PartialPayment
	if err := db.WithContext(ctx).
		Select("partial_payment_id", "partial_payment_status", "partial_payment_remaining_amount").
		Where("partial_payment_completed_at IS NULL").
		Find(&open).Error; err != nil {
		return out, err
	}
	out.Partials = partialModel.CountByStatus(open)
	for _, p := range open {
		out.PendingAmount += p.PartialPaymentRemaining
	}

	var sent []remModel.SentReminder
	if err := db.WithContext(ctx).
		Select("sent_reminder_id", "sent_reminder_recipients", "sent_reminder_opened", "sent_reminder_clicked", "sent_reminder_completed").
		Find(&sent).Error; err != nil {
		return out, err
	}
	out.Reminders = reminderRates(sent)

	start := monthStart(now).AddDate(0, -(monthsBack - 1), 0)
	var recent []txModel.Transaction
	if err := db.WithContext(ctx).
		Select("transaction_id", "transaction_amount", "transaction_date").
		Where("transaction_status IN ? AND transaction_date >= ?", paid, start).
		Find(&recent).Error; err != nil {
		return out, err
	}
	out.Monthly = monthlySeries(recent, now)
	return out, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthlySeries buckets amounts into the last six calendar months, oldest first.
func monthlySeries(rows []txModel.Transaction, now time.Time) []dto.MonthPoint {
	first := monthStart(now).AddDate(0, -(monthsBack - 1), 0)
	out := make([]dto.MonthPoint, monthsBack)
	index := map[string]int{}
	for i := 0; i < monthsBack; i++ {
		m := first.AddDate(0, i, 0)
		key := m.Format("2006-01")
		out[i] = dto.MonthPoint{Month: key}
		index[key] = i
	}
	for _, t := range rows {
		if i, ok := index[t.TransactionDate.In(now.Location()).Format("2006-01")]; ok {
			out[i].Amount += t.TransactionAmount
			out[i].Count++
		}
	}
	return out
}

func reminderRates(rows []remModel.SentReminder) dto.ReminderStats {
	st := dto.ReminderStats{Sent: len(rows)}
	if len(rows) == 0 {
		return st
	}
	var open, click, done float64
	for i := range rows {
		o, c, d := rows[i].Rates()
		open += o
		click += c
		done += d
		st.Recipients += rows[i].SentReminderRecipients
	}
	n := float64(len(rows))
	st.AvgOpenRate = round1(open / n)
	st.AvgClickRate = round1(click / n)
	st.AvgCompletionRate = round1(done / n)
	return st
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
