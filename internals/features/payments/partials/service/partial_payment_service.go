// file: internals/features/payments/partials/service/partial_payment_service.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dto "tutorhub_backend/internals/features/payments/partials/dto"
	model "tutorhub_backend/internals/features/payments/partials/model"
	settingsSvc "tutorhub_backend/internals/features/payments/settings/service"
)

// List returns open partial payments, soonest due first.
func List(ctx context.Context, db *gorm.DB, q dto.ListQuery) ([]model.PartialPayment, error) {
	tx := db.WithContext(ctx).Model(&model.PartialPayment{}).
		Where("partial_payment_completed_at IS NULL")
	if q.Status != "" {
		tx = tx.Where("partial_payment_status = ?", q.Status)
	}
	if q.PaymentLinkID != "" {
		id, err := uuid.Parse(q.PaymentLinkID)
		if err != nil {
			return nil, err
		}
		tx = tx.Where("partial_payment_link_id = ?", id)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("(LOWER(partial_payment_student_name) LIKE ? OR LOWER(partial_payment_email) LIKE ?)", like, like)
	}
	var rows []model.PartialPayment
	err := tx.Order("partial_payment_due_date ASC").Find(&rows).Error
	return rows, err
}

// MarkOverdue flips open Pending partials whose due date plus the configured
// grace period has passed. Returns the number of rows changed.
func MarkOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	general, err := settingsSvc.General(ctx, db)
	if err != nil {
		return 0, err
	}
	cutoff := now.AddDate(0, 0, -general.OverdueAfterDays)
	res := db.WithContext(ctx).Model(&model.PartialPayment{}).
		Where("partial_payment_completed_at IS NULL AND partial_payment_remaining_amount > 0").
		Where("partial_payment_status = ? AND partial_payment_due_date <= ?", model.PartialPending, cutoff).
		Update("partial_payment_status", model.PartialOverdue)
	return res.RowsAffected, res.Error
}
