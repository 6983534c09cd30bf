package service

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	dto "tutorhub_backend/internals/features/payments/transactions/dto"
	model "tutorhub_backend/internals/features/payments/transactions/model"
	helper "tutorhub_backend/internals/helpers"
)

var ErrInvalidDateRange = fiber.NewError(fiber.StatusBadRequest, "dateFrom must not be after dateTo")

// applyFilters scopes q by f; dates are read in loc.
func applyFilters(q *gorm.DB, f dto.Filters, loc *time.Location) (*gorm.DB, error) {
	if f.Status != "" {
		q = q.Where("transaction_status = ?", f.Status)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(transaction_student_name) LIKE ? OR LOWER(transaction_email) LIKE ?)", like, like)
	}
	if f.PaymentLinkID != "" {
		id, err := uuid.Parse(f.PaymentLinkID)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid paymentLinkId")
		}
		q = q.Where("transaction_link_id = ?", id)
	}

	var from, to time.Time
	var err error
	if f.DateFrom != "" {
		if from, err = time.ParseInLocation("2006-01-02", f.DateFrom, loc); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid dateFrom")
		}
		q = q.Where("transaction_date >= ?", from)
	}
	if f.DateTo != "" {
		if to, err = time.ParseInLocation("2006-01-02", f.DateTo, loc); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "invalid dateTo")
		}
		q = q.Where("transaction_date < ?", to.AddDate(0, 0, 1))
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, ErrInvalidDateRange
	}
	return q, nil
}

// List returns one page of transactions, newest first.
func List(ctx context.Context, db *gorm.DB, q dto.ListQuery) ([]model.Transaction, helper.Pagination, error) {
	p := helper.NewPaging(q.Page, q.Limit, 20, 200)
	tx, err := applyFilters(db.WithContext(ctx).Model(&model.Transaction{}), q.Filters, time.Local)
	if err != nil {
		return nil, helper.Pagination{}, err
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, helper.Pagination{}, err
	}
	var rows []model.Transaction
	if err := tx.Order("transaction_date DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		return nil, helper.Pagination{}, err
	}
	return rows, helper.BuildPaginationFromPage(total, p.Page, p.PerPage), nil
}

// All returns every transaction matching f, capped at limit rows.
func All(ctx context.Context, db *gorm.DB, f dto.Filters, limit int) ([]model.Transaction, error) {
	tx, err := applyFilters(db.WithContext(ctx).Model(&model.Transaction{}), f, time.Local)
	if err != nil {
		return nil, err
	}
	var rows []model.Transaction
	err = tx.Order("transaction_date DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func Get(ctx context.Context, db *gorm.DB, id uuid.UUID) (*model.Transaction, error) {
	var t model.Transaction
	if err := db.WithContext(ctx).First(&t, "transaction_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTxNotFound
		}
		return nil, err
	}
	return &t, nil
}
