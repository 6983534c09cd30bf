// file: internals/features/payments/transactions/service/ledger_service.go
package service

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	linkModel "tutorhub_backend/internals/features/payments/links/model"
	linkSvc "tutorhub_backend/internals/features/payments/links/service"
	partialModel "tutorhub_backend/internals/features/payments/partials/model"
	remSvc "tutorhub_backend/internals/features/payments/reminders/service"
	settingsModel "tutorhub_backend/internals/features/payments/settings/model"
	settingsSvc "tutorhub_backend/internals/features/payments/settings/service"
	model "tutorhub_backend/internals/features/payments/transactions/model"
)

var (
	ErrPartialNotAllowed = fiber.NewError(fiber.StatusBadRequest, "this payment link does not accept partial payments")
	ErrBelowMinimum      = fiber.NewError(fiber.StatusBadRequest, "amount is below the minimum payment")
	ErrOverpayment       = partialModel.ErrOverpayment
	ErrLinkNotPayable    = linkModel.ErrLinkNotPayable
	ErrTxNotFound        = fiber.NewError(fiber.StatusNotFound, "transaction not found")
	ErrPayerRequired     = fiber.NewError(fiber.StatusBadRequest, "email or studentId is required to identify the payer")
)

// PaymentInput is one incoming payment against a link.
type PaymentInput struct {
	LinkID            uuid.UUID
	StudentName       string
	Email             string
	Phone             string
	StudentID         string
	Class             string
	ParentPhone       string
	Amount            int64
	Method            string
	Reference         string
	CustomFieldValues map[string]interface{}
}

// Outcome is what a settled or recorded payment changed.
type Outcome struct {
	Transaction      *model.Transaction
	Partial          *partialModel.PartialPayment
	Link             *linkModel.PaymentLink
	PartialCompleted bool
	AlreadySettled   bool
}

type paymentKind int

const (
	kindFull paymentKind = iota + 1
	kindFirstPartial
	kindTowardsPartial
)

// Ledger applies payments to links, partials and transactions under row locks.
type Ledger struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{DB: db, Now: time.Now}
}

// classify decides how amount lands on the link given the payer's open partial.
func classify(link *linkModel.PaymentLink, open *partialModel.PartialPayment, amount int64) (paymentKind, error) {
	if amount <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "amount must be greater than zero")
	}
	if open != nil {
		if amount > open.PartialPaymentRemaining {
			return 0, ErrOverpayment
		}
		return kindTowardsPartial, nil
	}
	switch {
	case amount == link.PaymentLinkAmount:
		return kindFull, nil
	case amount > link.PaymentLinkAmount:
		return 0, ErrOverpayment
	case !link.PaymentLinkAllowPartial:
		return 0, ErrPartialNotAllowed
	case link.PaymentLinkMinimumPayment != nil && amount < *link.PaymentLinkMinimumPayment:
		return 0, ErrBelowMinimum
	}
	return kindFirstPartial, nil
}

// admits reports whether the link takes a payment of this kind. A new payer
// needs an Active, unexpired link with a free slot. A payer finishing an open
// partial is accepted after the link expired or filled up, but not while paused.
func admits(link *linkModel.PaymentLink, kind paymentKind, now time.Time) bool {
	if kind == kindTowardsPartial {
		return link.PaymentLinkStatus != linkModel.LinkPaused
	}
	return link.IsPayable(now) && !link.AtCapacity()
}

func findOpenPartial(tx *gorm.DB, linkID uuid.UUID, email, studentID string) (*partialModel.PartialPayment, error) {
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("partial_payment_link_id = ? AND partial_payment_completed_at IS NULL", linkID)
	switch {
	case email != "":
		q = q.Where("LOWER(partial_payment_email) = ?", strings.ToLower(email))
	case studentID != "":
		q = q.Where("partial_payment_student_id = ?", studentID)
	default:
		return nil, ErrPayerRequired
	}
	var p partialModel.PartialPayment
	err := q.Order("partial_payment_created_at ASC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func normalize(in *PaymentInput) {
	in.StudentName = strings.TrimSpace(in.StudentName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Reference = strings.TrimSpace(in.Reference)
}

// Record applies an already-collected payment (manual entry, cash, bank slip).
func (l *Ledger) Record(ctx context.Context, in PaymentInput) (*Outcome, error) {
	normalize(&in)
	var out *Outcome
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := linkSvc.LockByID(tx, in.LinkID)
		if err != nil {
			return err
		}
		out, err = l.apply(ctx, tx, link, in, nil)
		return err
	})
	return out, err
}

// OpenPending checks the payment against the link policy and stores a Pending
// transaction awaiting gateway settlement. No counters move.
func (l *Ledger) OpenPending(ctx context.Context, in PaymentInput) (*model.Transaction, error) {
	normalize(&in)
	now := l.Now()
	var out *model.Transaction
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := linkSvc.LockByID(tx, in.LinkID)
		if err != nil {
			return err
		}
		open, err := findOpenPartial(tx, link.PaymentLinkID, in.Email, in.StudentID)
		if err != nil {
			return err
		}
		kind, err := classify(link, open, in.Amount)
		if err != nil {
			return err
		}
		if !admits(link, kind, now) {
			return ErrLinkNotPayable
		}
		t := newTransaction(link, in, now)
		t.TransactionStatus = model.TxPending
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

// Settle applies a Pending transaction identified by its reference.
// Already-settled references return the stored outcome unchanged.
func (l *Ledger) Settle(ctx context.Context, reference, gatewayStatus string, meta map[string]interface{}) (*Outcome, error) {
	var out *Outcome
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := lockByReference(tx, reference)
		if err != nil {
			return err
		}
		if t.TransactionStatus != model.TxPending {
			out = &Outcome{Transaction: t, AlreadySettled: true}
			return nil
		}
		link, err := linkSvc.LockByID(tx, t.TransactionLinkID)
		if err != nil {
			return err
		}
		in := PaymentInput{
			LinkID:            t.TransactionLinkID,
			StudentName:       t.TransactionStudentName,
			Email:             t.TransactionEmail,
			StudentID:         t.TransactionStudentID,
			Class:             t.TransactionClass,
			ParentPhone:       t.TransactionParentPhone,
			Amount:            t.TransactionAmount,
			Method:            t.TransactionMethod,
			Reference:         t.TransactionReference,
			CustomFieldValues: t.TransactionCustomFields,
		}
		t.TransactionGatewayStatus = gatewayStatus
		if meta != nil {
			t.TransactionGatewayMeta = datatypes.JSONMap(meta)
		}
		out, err = l.apply(ctx, tx, link, in, t)
		return err
	})
	return out, err
}

// Fail marks a Pending transaction Failed; counters are untouched.
func (l *Ledger) Fail(ctx context.Context, reference, gatewayStatus string) (*model.Transaction, error) {
	var out *model.Transaction
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := lockByReference(tx, reference)
		if err != nil {
			return err
		}
		out = t
		if t.TransactionStatus != model.TxPending {
			return nil
		}
		return tx.Model(t).Updates(map[string]interface{}{
			"transaction_status":         model.TxFailed,
			"transaction_gateway_status": gatewayStatus,
		}).Error
	})
	return out, err
}

func lockByReference(tx *gorm.DB, reference string) (*model.Transaction, error) {
	var t model.Transaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, "transaction_reference = ?", strings.TrimSpace(reference)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTxNotFound
	}
	return &t, err
}

func newTransaction(link *linkModel.PaymentLink, in PaymentInput, now time.Time) *model.Transaction {
	ref := in.Reference
	if ref == "" {
		ref = model.NewReference(now)
	}
	var custom datatypes.JSONMap
	if len(in.CustomFieldValues) > 0 {
		custom = datatypes.JSONMap(in.CustomFieldValues)
	}
	return &model.Transaction{
		TransactionLinkID:       link.PaymentLinkID,
		TransactionLinkTitle:    link.PaymentLinkTitle,
		TransactionStudentName:  in.StudentName,
		TransactionEmail:        in.Email,
		TransactionAmount:       in.Amount,
		TransactionDate:         now,
		TransactionMethod:       in.Method,
		TransactionReference:    ref,
		TransactionStudentID:    in.StudentID,
		TransactionClass:        in.Class,
		TransactionParentPhone:  in.ParentPhone,
		TransactionCustomFields: custom,
	}
}

// apply runs inside tx with the link row locked. pending is the checkout
// transaction being settled, nil for a direct record.
func (l *Ledger) apply(ctx context.Context, tx *gorm.DB, link *linkModel.PaymentLink, in PaymentInput, pending *model.Transaction) (*Outcome, error) {
	now := l.Now()
	open, err := findOpenPartial(tx, link.PaymentLinkID, in.Email, in.StudentID)
	if err != nil {
		return nil, err
	}
	kind, err := classify(link, open, in.Amount)
	if err != nil {
		return nil, err
	}
	if !admits(link, kind, now) {
		return nil, ErrLinkNotPayable
	}
	general, err := settingsSvc.General(ctx, tx)
	if err != nil {
		return nil, err
	}

	t := pending
	if t == nil {
		t = newTransaction(link, in, now)
	}
	t.TransactionDate = now
	out := &Outcome{Transaction: t, Link: link}

	switch kind {
	case kindFull:
		t.TransactionStatus = model.TxCompleted
		t.TransactionIsPartial = false
		t.TransactionRemaining = 0
		link.PaymentLinkCompletedPayments++

	case kindFirstPartial:
		p := &partialModel.PartialPayment{
			PartialPaymentLinkID:        link.PaymentLinkID,
			PartialPaymentLinkTitle:     link.PaymentLinkTitle,
			PartialPaymentStudentName:   in.StudentName,
			PartialPaymentEmail:         in.Email,
			PartialPaymentPhone:         in.Phone,
			PartialPaymentStudentID:     in.StudentID,
			PartialPaymentClass:         in.Class,
			PartialPaymentParentPhone:   in.ParentPhone,
			PartialPaymentAmountPaid:    in.Amount,
			PartialPaymentRemaining:     link.PaymentLinkAmount - in.Amount,
			PartialPaymentTotalAmount:   link.PaymentLinkAmount,
			PartialPaymentLastPaymentAt: now,
			PartialPaymentDueDate:       partialModel.DueDateFor(link.PaymentLinkExpiresAt, now, general.PartialPaymentDueDays),
		}
		p.PartialPaymentStatus = partialModel.DeriveStatus(p.PartialPaymentRemaining, p.PartialPaymentDueDate, general.OverdueAfterDays, now)
		if err := tx.Create(p).Error; err != nil {
			return nil, errors.Wrap(err, "create partial payment")
		}
		t.TransactionStatus = model.TxPartial
		t.TransactionIsPartial = true
		t.TransactionRemaining = p.PartialPaymentRemaining
		t.TransactionPartialID = &p.PartialPaymentID
		link.PaymentLinkPartialPayments++
		out.Partial = p

	case kindTowardsPartial:
		completed, err := open.ApplyPayment(in.Amount, now)
		if err != nil {
			return nil, err
		}
		if !completed {
			open.PartialPaymentStatus = partialModel.DeriveStatus(open.PartialPaymentRemaining, open.PartialPaymentDueDate, general.OverdueAfterDays, now)
		}
		if err := tx.Save(open).Error; err != nil {
			return nil, errors.Wrap(err, "update partial payment")
		}
		t.TransactionPartialID = &open.PartialPaymentID
		if completed {
			t.TransactionStatus = model.TxCompleted
			t.TransactionIsPartial = false
			t.TransactionRemaining = 0
			link.PaymentLinkPartialPayments--
			link.PaymentLinkCompletedPayments++
			if err := remSvc.MarkPartialCompleted(tx, open.PartialPaymentID); err != nil {
				return nil, err
			}
		} else {
			t.TransactionStatus = model.TxPartial
			t.TransactionIsPartial = true
			t.TransactionRemaining = open.PartialPaymentRemaining
		}
		out.Partial = open
		out.PartialCompleted = completed
	}

	if err := t.Validate(); err != nil {
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	if pending != nil {
		err = tx.Save(t).Error
	} else {
		err = tx.Create(t).Error
	}
	if err != nil {
		return nil, err
	}

	if err := l.refreshLink(tx, link, in.Amount); err != nil {
		return nil, err
	}
	return out, nil
}

// refreshLink adds amount to totalAmount and recomputes pendingAmount,
// collected and capacity completion.
func (l *Ledger) refreshLink(tx *gorm.DB, link *linkModel.PaymentLink, amount int64) error {
	var pending int64
	err := tx.Model(&partialModel.PartialPayment{}).
		Where("partial_payment_link_id = ? AND partial_payment_completed_at IS NULL", link.PaymentLinkID).
		Select("COALESCE(SUM(partial_payment_remaining_amount), 0)").
		Scan(&pending).Error
	if err != nil {
		return errors.Wrap(err, "sum pending amount")
	}

	link.PaymentLinkTotalAmount += amount
	link.PaymentLinkPendingAmount = pending
	link.RecountCollected()
	if link.AtCapacity() && link.PaymentLinkStatus == linkModel.LinkActive {
		link.PaymentLinkStatus = linkModel.LinkCompleted
	}
	return tx.Model(link).Select(
		"payment_link_completed_payments",
		"payment_link_partial_payments",
		"payment_link_collected",
		"payment_link_pending_amount",
		"payment_link_total_amount",
		"payment_link_status",
	).Updates(link).Error
}

// Recompute rebuilds a link's counters from its rows; used to repair drift.
func (l *Ledger) Recompute(ctx context.Context, linkID uuid.UUID) (*linkModel.PaymentLink, error) {
	var out *linkModel.PaymentLink
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link, err := linkSvc.LockByID(tx, linkID)
		if err != nil {
			return err
		}
		var completed, open int64
		if err := tx.Model(&model.Transaction{}).
			Where("transaction_link_id = ? AND transaction_status = ?", linkID, model.TxCompleted).
			Count(&completed).Error; err != nil {
			return err
		}
		if err := tx.Model(&partialModel.PartialPayment{}).
			Where("partial_payment_link_id = ? AND partial_payment_completed_at IS NULL", linkID).
			Count(&open).Error; err != nil {
			return err
		}
		var total int64
		if err := tx.Model(&model.Transaction{}).
			Where("transaction_link_id = ? AND transaction_status IN ?", linkID, []model.TransactionStatus{model.TxCompleted, model.TxPartial}).
			Select("COALESCE(SUM(transaction_amount), 0)").
			Scan(&total).Error; err != nil {
			return err
		}
		link.PaymentLinkCompletedPayments = int(completed)
		link.PaymentLinkPartialPayments = int(open)
		link.PaymentLinkTotalAmount = 0
		if err := l.refreshLink(tx, link, total); err != nil {
			return err
		}
		out = link
		return nil
	})
	return out, err
}

// GeneralSettings is exposed for the checkout controller.
func (l *Ledger) GeneralSettings(ctx context.Context) (settingsModel.GeneralSettings, error) {
	return settingsSvc.General(ctx, l.DB)
}
