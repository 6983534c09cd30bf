package dto

import (
	partialModel "tutorhub_backend/internals/features/payments/partials/model"
)

type MonthPoint struct {
	Month  string `json:"month"` // yyyy-mm
	Amount int64  `json:"amount"`
	Count  int    `json:"count"`
}

type ReminderStats struct {
	Sent              int     `json:"sent"`
	Recipients        int     `json:"recipients"`
	AvgOpenRate       float64 `json:"avgOpenRate"`
	AvgClickRate      float64 `json:"avgClickRate"`
	AvgCompletionRate float64 `json:"avgCompletionRate"`
}

type Summary struct {
	CollectedAmount      int64               `json:"collectedAmount"`
	PendingAmount        int64               `json:"pendingAmount"`
	TransactionsByStatus map[string]int64    `json:"transactionsByStatus"`
	LinksByStatus        map[string]int64    `json:"linksByStatus"`
	Partials             partialModel.Counts `json:"partials"`
	Reminders            ReminderStats       `json:"reminders"`
	Monthly              []MonthPoint        `json:"monthly"`
}
