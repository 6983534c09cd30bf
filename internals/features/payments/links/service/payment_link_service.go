// file: internals/features/payments/links/service/payment_link_service.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dto "tutorhub_backend/internals/features/payments/links/dto"
	model "tutorhub_backend/internals/features/payments/links/model"
	settingsSvc "tutorhub_backend/internals/features/payments/settings/service"
	helper "tutorhub_backend/internals/helpers"
)

var (
	ErrLinkNotFound      = fiber.NewError(fiber.StatusNotFound, "payment link not found")
	ErrExpiryInPast      = fiber.NewError(fiber.StatusBadRequest, "expiresAt must be in the future")
	ErrPartialDisabled   = fiber.NewError(fiber.StatusBadRequest, "partial payments are disabled in settings")
	ErrPercentageRange   = fiber.NewError(fiber.StatusBadRequest, "partialPercentage must be between 10 and 90")
	ErrInvalidAmount     = fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
	ErrTitleRequired     = fiber.NewError(fiber.StatusBadRequest, "title is required")
	ErrOpenPartialsExist = fiber.NewError(fiber.StatusConflict, "link still has open partial payments")
)

const slugMaxLen = 120

type Service struct {
	DB         *gorm.DB
	PayBaseURL string
	Now        func() time.Time
}

func New(db *gorm.DB, payBaseURL string) *Service {
	return &Service{DB: db, PayBaseURL: strings.TrimRight(payBaseURL, "/"), Now: time.Now}
}

func (s *Service) URLFor(slug string) string {
	return s.PayBaseURL + "/pay/" + slug
}

// Create stores a new Active link with a unique slug and derived minimumPayment.
func (s *Service) Create(ctx context.Context, req *dto.CreatePaymentLinkRequest, actor string) (*model.PaymentLink, error) {
	m := req.ToModel(actor)
	if m.PaymentLinkExpiresAt != nil && !m.PaymentLinkExpiresAt.After(s.Now()) {
		return nil, ErrExpiryInPast
	}
	if err := s.applyPartialDefaults(ctx, s.DB, m); err != nil {
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		base := helper.Slugify(m.PaymentLinkTitle, slugMaxLen)
		slug, err := helper.UniqueSlug(ctx, tx, model.PaymentLink{}.TableName(), "payment_link_slug", base, slugMaxLen)
		if err != nil {
			return errors.Wrap(err, "generate slug")
		}
		m.PaymentLinkSlug = slug
		m.PaymentLinkURL = s.URLFor(slug)
		return tx.Create(m).Error
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) applyPartialDefaults(ctx context.Context, db *gorm.DB, m *model.PaymentLink) error {
	if m.PaymentLinkTitle == "" {
		return ErrTitleRequired
	}
	if m.PaymentLinkAmount <= 0 {
		return ErrInvalidAmount
	}
	if m.PaymentLinkAllowPartial {
		general, err := settingsSvc.General(ctx, db)
		if err != nil {
			return err
		}
		if !general.AllowPartialPayments {
			return ErrPartialDisabled
		}
		if m.PaymentLinkPartialPercentage == nil {
			pct := general.DefaultPartialPercentage
			m.PaymentLinkPartialPercentage = &pct
		}
		pct := *m.PaymentLinkPartialPercentage
		if pct < model.MinPartialPercentage || pct > model.MaxPartialPercentage {
			return ErrPercentageRange
		}
	}
	m.ApplyPartialPolicy()
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.PaymentLink, error) {
	var m model.PaymentLink
	if err := s.DB.WithContext(ctx).First(&m, "payment_link_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.PaymentLink, error) {
	var m model.PaymentLink
	err := s.DB.WithContext(ctx).First(&m, "LOWER(payment_link_slug) = ?", strings.ToLower(strings.TrimSpace(slug))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &m, nil
}

// LockByID loads the link inside tx with a row lock (no-op lock on sqlite).
func LockByID(tx *gorm.DB, id uuid.UUID) (*model.PaymentLink, error) {
	var m model.PaymentLink
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, "payment_link_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Update applies a partial patch. Amount changes only affect future payments;
// open partial payments keep their totals.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch *dto.PatchPaymentLinkRequest) (*model.PaymentLink, error) {
	var out *model.PaymentLink
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := LockByID(tx, id)
		if err != nil {
			return err
		}
		wasPartial := m.PaymentLinkAllowPartial
		patch.ApplyTo(m)

		if patch.ExpiresAt.Set && m.PaymentLinkExpiresAt != nil && !m.PaymentLinkExpiresAt.After(s.Now()) {
			return ErrExpiryInPast
		}
		if wasPartial && !m.PaymentLinkAllowPartial {
			var open int64
			if err := tx.Table("partial_payments").
				Where("partial_payment_link_id = ? AND partial_payment_completed_at IS NULL AND partial_payment_deleted_at IS NULL", id).
				Count(&open).Error; err != nil {
				return err
			}
			if open > 0 {
				return ErrOpenPartialsExist
			}
		}
		if err := s.applyPartialDefaults(ctx, tx, m); err != nil {
			return err
		}
		if err := tx.Save(m).Error; err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

// Toggle flips Active/Paused; see PaymentLink.NextToggleStatus.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID) (*model.PaymentLink, error) {
	return s.transition(ctx, id, func(m *model.PaymentLink) (model.LinkStatus, error) {
		return m.NextToggleStatus(s.Now())
	})
}

// SetStatus performs an explicit transition such as manual completion.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, to model.LinkStatus) (*model.PaymentLink, error) {
	return s.transition(ctx, id, func(m *model.PaymentLink) (model.LinkStatus, error) {
		if err := model.CanTransition(m.PaymentLinkStatus, to); err != nil {
			return "", err
		}
		if to == model.LinkActive && m.IsExpiredAt(s.Now()) {
			return model.LinkExpired, nil
		}
		return to, nil
	})
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, next func(*model.PaymentLink) (model.LinkStatus, error)) (*model.PaymentLink, error) {
	var out *model.PaymentLink
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := LockByID(tx, id)
		if err != nil {
			return err
		}
		to, err := next(m)
		if err != nil {
			return err
		}
		if to != m.PaymentLinkStatus {
			if err := tx.Model(m).Update("payment_link_status", to).Error; err != nil {
				return err
			}
			m.PaymentLinkStatus = to
		}
		out = m
		return nil
	})
	return out, err
}

// Delete soft-deletes the link.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Delete(&model.PaymentLink{}, "payment_link_id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context, q dto.ListQuery) ([]model.PaymentLink, helper.Pagination, error) {
	p := helper.NewPaging(q.Page, q.Limit, 20, 200)

	tx := s.DB.WithContext(ctx).Model(&model.PaymentLink{})
	if q.Status != "" {
		tx = tx.Where("payment_link_status = ?", q.Status)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("(LOWER(payment_link_title) LIKE ? OR LOWER(payment_link_slug) LIKE ?)", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, helper.Pagination{}, err
	}
	var rows []model.PaymentLink
	if err := tx.Order("payment_link_created_at DESC").Limit(p.Limit).Offset(p.Offset).Find(&rows).Error; err != nil {
		return nil, helper.Pagination{}, err
	}
	return rows, helper.BuildPaginationFromPage(total, p.Page, p.PerPage), nil
}

// ExpireDue moves Active links whose expiry passed to Expired.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&model.PaymentLink{}).
		Where("payment_link_status = ? AND payment_link_expires_at IS NOT NULL AND payment_link_expires_at <= ?", model.LinkActive, now).
		Update("payment_link_status", model.LinkExpired)
	return res.RowsAffected, res.Error
}
